/*
 * Copyright 2026 The Yorkie Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package server_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yorkie-team/docsync/client"
	"github.com/yorkie-team/docsync/pkg/document"
	"github.com/yorkie-team/docsync/server"
	"github.com/yorkie-team/docsync/server/backend/database/sqlite"
)

const testRPCPort = 21101

func newTestConfig(t *testing.T) *server.Config {
	conf := server.NewConfig()
	conf.RPC.Port = testRPCPort
	conf.Profiling = nil
	conf.Backend.FlushDebounce = "1h"
	conf.Backend.Hostname = "test"
	conf.SQLite = &sqlite.Config{
		Path:        filepath.Join(t.TempDir(), "docsync.db"),
		BusyTimeout: server.DefaultSQLiteBusyTimeout.String(),
	}
	return conf
}

func TestServer(t *testing.T) {
	ctx := context.Background()

	t.Run("shutdown flushes attached documents test", func(t *testing.T) {
		conf := newTestConfig(t)

		svr, err := server.New(conf)
		require.NoError(t, err)
		require.NoError(t, svr.Start())

		cli, err := client.New("http://"+svr.RPCAddr(), client.WithLogger(zap.NewNop()))
		require.NoError(t, err)
		defer func() {
			assert.NoError(t, cli.Close())
		}()

		att, err := cli.Attach(ctx, document.New("doc-1"))
		require.NoError(t, err)
		require.NoError(t, att.Insert(0, "persisted"))
		assert.Eventually(t, func() bool {
			room, ok := svr.Backend().Rooms.Room("doc-1")
			return ok && room.Text() == "persisted"
		}, 5*time.Second, 10*time.Millisecond)

		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		assert.NoError(t, svr.Shutdown(shutdownCtx, true))
		assert.NoError(t, svr.Shutdown(shutdownCtx, true))

		select {
		case <-svr.ShutdownCh():
		default:
			t.Fatal("shutdown channel should be closed")
		}

		select {
		case <-att.Done():
		case <-time.After(5 * time.Second):
			t.Fatal("attachment should be closed by the shutdown")
		}

		restarted, err := server.New(conf)
		require.NoError(t, err)
		snapshot, err := restarted.Backend().Snapshots.Load(ctx, "doc-1")
		require.NoError(t, err)
		doc, err := document.FromSnapshot("doc-1", snapshot)
		require.NoError(t, err)
		assert.Equal(t, "persisted", doc.String())
		assert.NoError(t, restarted.Shutdown(ctx, false))
	})

	t.Run("invalid config test", func(t *testing.T) {
		conf := newTestConfig(t)
		conf.RPC.SendBufferSize = -1

		_, err := server.New(conf)
		assert.Error(t, err)
	})
}

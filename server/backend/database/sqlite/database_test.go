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

package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/docsync/server/backend/database/sqlite"
	"github.com/yorkie-team/docsync/server/backend/database/testcases"
)

func openTestDB(t *testing.T, path string) *sqlite.DB {
	config := &sqlite.Config{Path: path, BusyTimeout: "5s"}
	require.NoError(t, config.Validate())

	db, err := sqlite.Open(config)
	require.NoError(t, err)
	return db
}

func TestConfig(t *testing.T) {
	config := &sqlite.Config{Path: "docsync.db", BusyTimeout: "5s"}
	assert.NoError(t, config.Validate())

	config.BusyTimeout = "5"
	assert.Error(t, config.Validate())

	config.BusyTimeout = "5s"
	config.Path = ""
	assert.Error(t, config.Validate())
}

func TestDB(t *testing.T) {
	dir := t.TempDir()

	t.Run("RunListSnapshotInfos test", func(t *testing.T) {
		db := openTestDB(t, filepath.Join(dir, "list.db"))
		defer func() {
			assert.NoError(t, db.Close())
		}()
		testcases.RunListSnapshotInfosTest(t, db)
	})

	db := openTestDB(t, filepath.Join(dir, "docsync.db"))
	defer func() {
		assert.NoError(t, db.Close())
	}()

	t.Run("RunFindSnapshotInfo test", func(t *testing.T) {
		testcases.RunFindSnapshotInfoTest(t, db)
	})

	t.Run("RunUpdateSnapshotInfo test", func(t *testing.T) {
		testcases.RunUpdateSnapshotInfoTest(t, db)
	})

	t.Run("RunDeleteSnapshotInfo test", func(t *testing.T) {
		testcases.RunDeleteSnapshotInfoTest(t, db)
	})

	t.Run("snapshot survives reopening test", func(t *testing.T) {
		path := filepath.Join(dir, "reopen.db")
		ctx := context.Background()

		first := openTestDB(t, path)
		assert.NoError(t, first.UpdateSnapshotInfo(ctx, "doc", []byte("durable"), time.Now()))
		assert.NoError(t, first.Close())

		second := openTestDB(t, path)
		defer func() {
			assert.NoError(t, second.Close())
		}()
		info, err := second.FindSnapshotInfo(ctx, "doc")
		assert.NoError(t, err)
		assert.Equal(t, []byte("durable"), info.Snapshot)
	})
}

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

package rooms

import (
	"context"
	"errors"
	"sync"
	"testing"
	gotime "time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/docsync/api/converter"
	"github.com/yorkie-team/docsync/api/types"
	"github.com/yorkie-team/docsync/pkg/document"
	"github.com/yorkie-team/docsync/server/backend/background"
	"github.com/yorkie-team/docsync/server/backend/database/memory"
	"github.com/yorkie-team/docsync/server/profiling/prometheus"
	"github.com/yorkie-team/docsync/server/snapshots"
)

type nopPeer string

func (p nopPeer) ID() string {
	return string(p)
}

func (p nopPeer) Send([]byte) error {
	return nil
}

// switchDB is an in-memory database whose saves fail while down is set.
type switchDB struct {
	*memory.DB

	mu    sync.Mutex
	down  bool
	saves int
}

func (d *switchDB) setDown(down bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.down = down
}

func (d *switchDB) UpdateSnapshotInfo(
	ctx context.Context,
	docID string,
	snapshot []byte,
	updatedAt gotime.Time,
) error {
	d.mu.Lock()
	down := d.down
	if !down {
		d.saves++
	}
	d.mu.Unlock()
	if down {
		return errors.New("storage unreachable")
	}

	return d.DB.UpdateSnapshotInfo(ctx, docID, snapshot, updatedAt)
}

func TestScheduledFlush(t *testing.T) {
	ctx := context.Background()

	t.Run("closed room does not overwrite a newer room test", func(t *testing.T) {
		memDB, err := memory.New()
		require.NoError(t, err)
		db := &switchDB{DB: memDB}

		metrics, err := prometheus.NewMetrics()
		require.NoError(t, err)
		bg := background.New(metrics)
		t.Cleanup(bg.Close)

		gateway := snapshots.New(db)
		m := NewManager(&Options{
			FlushDebounce:      gotime.Hour,
			FlushTimeout:       gotime.Second,
			FlushRetryInterval: gotime.Millisecond,
			Hostname:           "test",
		}, gateway, bg, metrics)

		edit := func(room *Room, peer Peer, content string) {
			update, err := document.New("doc-1").Insert(0, content)
			require.NoError(t, err)
			_, err = room.Receive(peer, converter.ToMessage(types.Update, update))
			require.NoError(t, err)
		}

		// the final flush of the first room fails and leaves it dirty
		db.setDown(true)
		old, err := m.Attach(ctx, "doc-1", nopPeer("p1"))
		require.NoError(t, err)
		edit(old, nopPeer("p1"), "old")
		assert.ErrorIs(t, m.Detach(ctx, old, nopPeer("p1")), snapshots.ErrPersistence)
		assert.True(t, old.IsDirty())

		db.setDown(false)
		room, err := m.Attach(ctx, "doc-1", nopPeer("p2"))
		require.NoError(t, err)
		assert.NotSame(t, old, room)
		edit(room, nopPeer("p2"), "new")
		require.NoError(t, m.Detach(ctx, room, nopPeer("p2")))
		require.Equal(t, 1, db.saves)

		// a flush the timer of the first room started late saves nothing
		old.scheduledFlush(ctx)
		assert.Equal(t, 1, db.saves)

		snapshot, err := gateway.Load(ctx, "doc-1")
		require.NoError(t, err)
		doc, err := document.FromSnapshot("doc-1", snapshot)
		require.NoError(t, err)
		assert.Equal(t, "new", doc.String())
	})
}

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

// Package testcases contains testcases for database. It is used by database
// implementations to test their own implementations with the same testcases.
package testcases

import (
	"context"
	"fmt"
	"sync"
	"testing"
	gotime "time"

	"github.com/stretchr/testify/assert"

	"github.com/yorkie-team/docsync/server/backend/database"
)

// docID returns a document ID that is unique to the running test.
func docID(suffix string) string {
	return fmt.Sprintf("%d-%s", gotime.Now().UnixNano(), suffix)
}

// RunFindSnapshotInfoTest runs the FindSnapshotInfo test for the given db.
func RunFindSnapshotInfoTest(t *testing.T, db database.Database) {
	t.Run("find missing snapshot test", func(t *testing.T) {
		_, err := db.FindSnapshotInfo(context.Background(), docID("missing"))
		assert.ErrorIs(t, err, database.ErrSnapshotNotFound)
	})

	t.Run("store and find snapshot test", func(t *testing.T) {
		ctx := context.Background()
		id := docID("find")
		updatedAt := gotime.Now().UTC().Truncate(gotime.Millisecond)

		assert.NoError(t, db.UpdateSnapshotInfo(ctx, id, []byte("snapshot-1"), updatedAt))
		info, err := db.FindSnapshotInfo(ctx, id)
		assert.NoError(t, err)
		assert.Equal(t, id, info.DocID)
		assert.Equal(t, []byte("snapshot-1"), info.Snapshot)
		assert.Equal(t, len("snapshot-1"), info.Size)
		assert.True(t, updatedAt.Equal(info.UpdatedAt))
	})
}

// RunUpdateSnapshotInfoTest runs the UpdateSnapshotInfo test for the given db.
func RunUpdateSnapshotInfoTest(t *testing.T, db database.Database) {
	t.Run("update replaces the previous snapshot test", func(t *testing.T) {
		ctx := context.Background()
		id := docID("update")
		first := gotime.Now().UTC().Truncate(gotime.Millisecond)
		second := first.Add(gotime.Second)

		assert.NoError(t, db.UpdateSnapshotInfo(ctx, id, []byte("old"), first))
		assert.NoError(t, db.UpdateSnapshotInfo(ctx, id, []byte("new-snapshot"), second))

		info, err := db.FindSnapshotInfo(ctx, id)
		assert.NoError(t, err)
		assert.Equal(t, []byte("new-snapshot"), info.Snapshot)
		assert.True(t, second.Equal(info.UpdatedAt))
	})

	t.Run("update with the same bytes is idempotent test", func(t *testing.T) {
		ctx := context.Background()
		id := docID("idempotent")
		updatedAt := gotime.Now().UTC().Truncate(gotime.Millisecond)

		assert.NoError(t, db.UpdateSnapshotInfo(ctx, id, []byte("same"), updatedAt))
		assert.NoError(t, db.UpdateSnapshotInfo(ctx, id, []byte("same"), updatedAt))

		info, err := db.FindSnapshotInfo(ctx, id)
		assert.NoError(t, err)
		assert.Equal(t, []byte("same"), info.Snapshot)
	})

	t.Run("concurrent updates of different documents test", func(t *testing.T) {
		ctx := context.Background()
		prefix := docID("concurrent")

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id := fmt.Sprintf("%s-%d", prefix, i)
				assert.NoError(t, db.UpdateSnapshotInfo(ctx, id, []byte(id), gotime.Now()))
			}(i)
		}
		wg.Wait()

		for i := 0; i < 10; i++ {
			id := fmt.Sprintf("%s-%d", prefix, i)
			info, err := db.FindSnapshotInfo(ctx, id)
			assert.NoError(t, err)
			assert.Equal(t, []byte(id), info.Snapshot)
		}
	})
}

// RunListSnapshotInfosTest runs the ListSnapshotInfos test for the given db.
// The db must be empty when the test starts.
func RunListSnapshotInfosTest(t *testing.T, db database.Database) {
	t.Run("list snapshots test", func(t *testing.T) {
		ctx := context.Background()

		infos, err := db.ListSnapshotInfos(ctx)
		assert.NoError(t, err)
		assert.Empty(t, infos)

		now := gotime.Now()
		assert.NoError(t, db.UpdateSnapshotInfo(ctx, "doc-b", []byte("bb"), now))
		assert.NoError(t, db.UpdateSnapshotInfo(ctx, "doc-a", []byte("a"), now))

		infos, err = db.ListSnapshotInfos(ctx)
		assert.NoError(t, err)
		assert.Len(t, infos, 2)
		assert.Equal(t, "doc-a", infos[0].DocID)
		assert.Equal(t, 1, infos[0].Size)
		assert.Nil(t, infos[0].Snapshot)
		assert.Equal(t, "doc-b", infos[1].DocID)
		assert.Equal(t, 2, infos[1].Size)
	})
}

// RunDeleteSnapshotInfoTest runs the DeleteSnapshotInfo test for the given db.
func RunDeleteSnapshotInfoTest(t *testing.T, db database.Database) {
	t.Run("delete snapshot test", func(t *testing.T) {
		ctx := context.Background()
		id := docID("delete")

		assert.ErrorIs(t, db.DeleteSnapshotInfo(ctx, id), database.ErrSnapshotNotFound)

		assert.NoError(t, db.UpdateSnapshotInfo(ctx, id, []byte("bytes"), gotime.Now()))
		assert.NoError(t, db.DeleteSnapshotInfo(ctx, id))

		_, err := db.FindSnapshotInfo(ctx, id)
		assert.ErrorIs(t, err, database.ErrSnapshotNotFound)
	})
}

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

package snapshots_test

import (
	"context"
	"errors"
	"testing"
	gotime "time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/yorkie-team/docsync/pkg/errors"
	"github.com/yorkie-team/docsync/server/backend/database"
	"github.com/yorkie-team/docsync/server/backend/database/memory"
	"github.com/yorkie-team/docsync/server/snapshots"
)

var errUnreachable = errors.New("storage unreachable")

// brokenDB is a database whose every call fails.
type brokenDB struct{}

func (brokenDB) Close() error { return nil }

func (brokenDB) FindSnapshotInfo(context.Context, string) (*database.SnapshotInfo, error) {
	return nil, errUnreachable
}

func (brokenDB) UpdateSnapshotInfo(context.Context, string, []byte, gotime.Time) error {
	return errUnreachable
}

func (brokenDB) ListSnapshotInfos(context.Context) ([]*database.SnapshotInfo, error) {
	return nil, errUnreachable
}

func (brokenDB) DeleteSnapshotInfo(context.Context, string) error {
	return errUnreachable
}

func TestGateway(t *testing.T) {
	ctx := context.Background()

	t.Run("load missing snapshot returns empty test", func(t *testing.T) {
		db, err := memory.New()
		require.NoError(t, err)
		gateway := snapshots.New(db)

		snapshot, err := gateway.Load(ctx, "doc")
		assert.NoError(t, err)
		assert.Nil(t, snapshot)

		_, err = gateway.Info(ctx, "doc")
		assert.ErrorIs(t, err, database.ErrSnapshotNotFound)
	})

	t.Run("save and load test", func(t *testing.T) {
		db, err := memory.New()
		require.NoError(t, err)
		gateway := snapshots.New(db)

		now := gotime.Now()
		assert.NoError(t, gateway.Save(ctx, "doc", []byte("v1"), now))
		assert.NoError(t, gateway.Save(ctx, "doc", []byte("v1"), now))

		snapshot, err := gateway.Load(ctx, "doc")
		assert.NoError(t, err)
		assert.Equal(t, []byte("v1"), snapshot)

		info, err := gateway.Info(ctx, "doc")
		assert.NoError(t, err)
		assert.Equal(t, now, info.UpdatedAt)

		infos, err := gateway.List(ctx)
		assert.NoError(t, err)
		assert.Len(t, infos, 1)

		assert.NoError(t, gateway.Delete(ctx, "doc"))
		assert.ErrorIs(t, gateway.Delete(ctx, "doc"), database.ErrSnapshotNotFound)
	})

	t.Run("storage failures are persistence errors test", func(t *testing.T) {
		gateway := snapshots.New(brokenDB{})

		_, err := gateway.Load(ctx, "doc")
		assert.ErrorIs(t, err, snapshots.ErrPersistence)
		assert.True(t, pkgerrors.IsStatus(err, pkgerrors.ErrCodeUnavailable))

		err = gateway.Save(ctx, "doc", []byte("v1"), gotime.Now())
		assert.ErrorIs(t, err, snapshots.ErrPersistence)

		_, err = gateway.List(ctx)
		assert.ErrorIs(t, err, snapshots.ErrPersistence)

		_, err = gateway.Info(ctx, "doc")
		assert.ErrorIs(t, err, snapshots.ErrPersistence)
	})
}

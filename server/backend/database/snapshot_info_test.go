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

package database_test

import (
	"testing"
	gotime "time"

	"github.com/stretchr/testify/assert"

	"github.com/yorkie-team/docsync/server/backend/database"
)

func TestSnapshotInfo(t *testing.T) {
	t.Run("deep copy test", func(t *testing.T) {
		now := gotime.Now()
		info := database.NewSnapshotInfo("doc", []byte{1, 2, 3}, now)
		assert.Equal(t, 3, info.Size)

		copied := info.DeepCopy()
		copied.Snapshot[0] = 9
		assert.Equal(t, byte(1), info.Snapshot[0])
		assert.Equal(t, now, copied.UpdatedAt)

		var nilInfo *database.SnapshotInfo
		assert.Nil(t, nilInfo.DeepCopy())
	})

	t.Run("without snapshot test", func(t *testing.T) {
		info := database.NewSnapshotInfo("doc", []byte{1, 2, 3}, gotime.Now())
		listed := info.WithoutSnapshot()
		assert.Nil(t, listed.Snapshot)
		assert.Equal(t, 3, listed.Size)
		assert.Equal(t, "doc", listed.DocID)
	})
}

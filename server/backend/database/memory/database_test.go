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

package memory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yorkie-team/docsync/server/backend/database/memory"
	"github.com/yorkie-team/docsync/server/backend/database/testcases"
)

func TestDB(t *testing.T) {
	t.Run("RunListSnapshotInfos test", func(t *testing.T) {
		db, err := memory.New()
		assert.NoError(t, err)
		testcases.RunListSnapshotInfosTest(t, db)
	})

	db, err := memory.New()
	assert.NoError(t, err)
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
}

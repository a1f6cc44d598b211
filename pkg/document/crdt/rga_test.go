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

package crdt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yorkie-team/docsync/pkg/document/crdt"
	"github.com/yorkie-team/docsync/pkg/document/time"
)

func actor(t *testing.T, hex string) time.ActorID {
	id, err := time.ActorIDFromHex(hex)
	assert.NoError(t, err)
	return id
}

func TestRGA(t *testing.T) {
	actorA := actor(t, "000000000000000000000001")
	actorB := actor(t, "000000000000000000000002")

	t.Run("insert and remove test", func(t *testing.T) {
		rga := crdt.NewRGA()
		t1 := time.NewTicket(1, 1, actorA)
		t2 := time.NewTicket(1, 2, actorA)
		assert.NoError(t, rga.InsertAfter(time.InitialTicket, t1, 'a'))
		assert.NoError(t, rga.InsertAfter(t1, t2, 'b'))
		assert.Equal(t, "ab", rga.String())
		assert.Equal(t, 2, rga.Len())

		removed, err := rga.Remove(t1)
		assert.NoError(t, err)
		assert.True(t, removed)
		assert.Equal(t, "b", rga.String())

		removed, err = rga.Remove(t1)
		assert.NoError(t, err)
		assert.False(t, removed)
		assert.Equal(t, 1, rga.Len())
		assert.True(t, rga.Has(t1))
		assert.Len(t, rga.Nodes(), 2)
	})

	t.Run("duplicated insert is ignored test", func(t *testing.T) {
		rga := crdt.NewRGA()
		t1 := time.NewTicket(1, 1, actorA)
		assert.NoError(t, rga.InsertAfter(time.InitialTicket, t1, 'a'))
		assert.NoError(t, rga.InsertAfter(time.InitialTicket, t1, 'a'))
		assert.Equal(t, "a", rga.String())
	})

	t.Run("missing origin test", func(t *testing.T) {
		rga := crdt.NewRGA()
		err := rga.InsertAfter(time.NewTicket(9, 1, actorB), time.NewTicket(10, 1, actorA), 'x')
		assert.ErrorIs(t, err, crdt.ErrNodeNotFound)

		_, err = rga.Remove(time.NewTicket(9, 1, actorB))
		assert.ErrorIs(t, err, crdt.ErrNodeNotFound)
	})

	t.Run("concurrent inserts converge test", func(t *testing.T) {
		ta := time.NewTicket(1, 1, actorA)
		tb := time.NewTicket(1, 1, actorB)

		rga1 := crdt.NewRGA()
		assert.NoError(t, rga1.InsertAfter(time.InitialTicket, ta, 'A'))
		assert.NoError(t, rga1.InsertAfter(time.InitialTicket, tb, 'B'))

		rga2 := crdt.NewRGA()
		assert.NoError(t, rga2.InsertAfter(time.InitialTicket, tb, 'B'))
		assert.NoError(t, rga2.InsertAfter(time.InitialTicket, ta, 'A'))

		assert.Equal(t, rga1.String(), rga2.String())
		assert.Equal(t, "BA", rga1.String())
	})

	t.Run("origin and range test", func(t *testing.T) {
		rga := crdt.NewRGA()
		prev := time.InitialTicket
		for i, r := range "hello" {
			id := time.NewTicket(1, uint32(i+1), actorA)
			assert.NoError(t, rga.InsertAfter(prev, id, r))
			prev = id
		}

		origin, err := rga.OriginAt(0)
		assert.NoError(t, err)
		assert.True(t, origin.IsInitial())

		origin, err = rga.OriginAt(2)
		assert.NoError(t, err)
		assert.Equal(t, uint32(2), origin.Delimiter())

		_, err = rga.OriginAt(6)
		assert.ErrorIs(t, err, crdt.ErrIndexOutOfRange)

		ids, err := rga.VisibleRange(1, 3)
		assert.NoError(t, err)
		assert.Len(t, ids, 3)
		assert.Equal(t, uint32(2), ids[0].Delimiter())

		_, err = rga.VisibleRange(3, 3)
		assert.ErrorIs(t, err, crdt.ErrIndexOutOfRange)
	})
}

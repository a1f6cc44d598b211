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

package change_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yorkie-team/docsync/pkg/document/change"
	"github.com/yorkie-team/docsync/pkg/document/crdt"
	"github.com/yorkie-team/docsync/pkg/document/operations"
	"github.com/yorkie-team/docsync/pkg/document/time"
)

func TestChange(t *testing.T) {
	actorA, _ := time.ActorIDFromHex("000000000000000000000001")
	actorB, _ := time.ActorIDFromHex("000000000000000000000002")

	t.Run("next id test", func(t *testing.T) {
		id := change.NewID(1, 3, actorA)
		next := id.Next(7)
		assert.Equal(t, uint32(2), next.ClientSeq())
		assert.Equal(t, int64(8), next.Lamport())
		assert.Equal(t, actorA, next.Actor())
		assert.Equal(t, int64(4), id.Next(0).Lamport())
	})

	t.Run("id comparing test", func(t *testing.T) {
		assert.Equal(t, -1, change.NewID(1, 1, actorB).Compare(change.NewID(1, 2, actorA)))
		assert.Equal(t, -1, change.NewID(1, 1, actorA).Compare(change.NewID(1, 1, actorB)))
		assert.Equal(t, 1, change.NewID(2, 1, actorA).Compare(change.NewID(1, 1, actorA)))
		assert.Equal(t, 0, change.NewID(1, 1, actorA).Compare(change.NewID(1, 1, actorA)))
	})

	t.Run("context issues consecutive tickets test", func(t *testing.T) {
		ctx := change.NewContext(change.NewID(1, 1, actorA))
		first := ctx.IssueTimeTickets(3)
		assert.Equal(t, uint32(1), first.Delimiter())
		assert.Equal(t, uint32(4), ctx.IssueTimeTicket().Delimiter())
		assert.False(t, ctx.HasChange())
	})

	t.Run("dependencies exclude nodes created in the change test", func(t *testing.T) {
		ctx := change.NewContext(change.NewID(1, 5, actorA))
		external := time.NewTicket(2, 1, actorB)

		createdAt := ctx.IssueTimeTickets(2)
		ctx.Push(operations.NewInsert(external, createdAt, "ab"))
		ctx.Push(operations.NewRemove([]time.Ticket{createdAt.Offset(1)}, ctx.IssueTimeTicket()))

		c := ctx.ToChange()
		assert.Equal(t, []time.Ticket{external}, c.Dependencies())

		text := crdt.NewRGA()
		assert.NoError(t, text.InsertAfter(time.InitialTicket, external, 'x'))
		assert.NoError(t, c.Execute(text))
		assert.Equal(t, "xa", text.String())
	})
}

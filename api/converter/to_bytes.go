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

package converter

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/yorkie-team/docsync/api/types"
	"github.com/yorkie-team/docsync/pkg/document/change"
	"github.com/yorkie-team/docsync/pkg/document/operations"
	"github.com/yorkie-team/docsync/pkg/document/time"
)

// ToUpdate converts the given changes to the bytes of an update. The changes
// are written in the given order.
func ToUpdate(changes []*change.Change) []byte {
	var b []byte
	for _, c := range changes {
		b = protowire.AppendTag(b, updateChanges, protowire.BytesType)
		b = protowire.AppendBytes(b, toChange(c))
	}
	return b
}

func toChange(c *change.Change) []byte {
	id := c.ID()

	var b []byte
	b = protowire.AppendTag(b, changeActor, protowire.BytesType)
	b = protowire.AppendBytes(b, id.Actor().Bytes())
	b = protowire.AppendTag(b, changeClientSeq, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(id.ClientSeq()))
	b = protowire.AppendTag(b, changeLamport, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(id.Lamport()))
	for _, op := range c.Operations() {
		b = protowire.AppendTag(b, changeOperations, protowire.BytesType)
		b = protowire.AppendBytes(b, toOperation(op))
	}
	return b
}

func toOperation(op operations.Operation) []byte {
	var b []byte
	switch op := op.(type) {
	case *operations.Insert:
		var body []byte
		body = protowire.AppendTag(body, insertOrigin, protowire.BytesType)
		body = protowire.AppendBytes(body, toTicket(op.Origin()))
		body = protowire.AppendTag(body, insertCreatedAt, protowire.BytesType)
		body = protowire.AppendBytes(body, toTicket(op.ExecutedAt()))
		body = protowire.AppendTag(body, insertContent, protowire.BytesType)
		body = protowire.AppendString(body, op.Content())

		b = protowire.AppendTag(b, operationInsert, protowire.BytesType)
		b = protowire.AppendBytes(b, body)
	case *operations.Remove:
		var body []byte
		body = protowire.AppendTag(body, removeExecutedAt, protowire.BytesType)
		body = protowire.AppendBytes(body, toTicket(op.ExecutedAt()))
		for _, target := range op.Targets() {
			body = protowire.AppendTag(body, removeTargets, protowire.BytesType)
			body = protowire.AppendBytes(body, toTicket(target))
		}

		b = protowire.AppendTag(b, operationRemove, protowire.BytesType)
		b = protowire.AppendBytes(b, body)
	}
	return b
}

func toTicket(ticket time.Ticket) []byte {
	var b []byte
	b = protowire.AppendTag(b, ticketLamport, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(ticket.Lamport()))
	b = protowire.AppendTag(b, ticketDelimiter, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(ticket.Delimiter()))
	b = protowire.AppendTag(b, ticketActor, protowire.BytesType)
	b = protowire.AppendBytes(b, ticket.ActorID().Bytes())
	return b
}

// ToVersionVector converts the given version vector to bytes. Entries are
// sorted by actor so that equal vectors have equal bytes.
func ToVersionVector(vector time.VersionVector) []byte {
	var b []byte
	for _, actor := range vector.Keys() {
		var entry []byte
		entry = protowire.AppendTag(entry, entryActor, protowire.BytesType)
		entry = protowire.AppendBytes(entry, actor.Bytes())
		entry = protowire.AppendTag(entry, entryLamport, protowire.VarintType)
		entry = protowire.AppendVarint(entry, uint64(vector[actor]))

		b = protowire.AppendTag(b, versionVectorEntries, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}
	return b
}

// ToSnapshot wraps the given full update into the snapshot layout stored by
// the persistence layer.
func ToSnapshot(update []byte) []byte {
	var b []byte
	b = protowire.AppendTag(b, snapshotFormat, protowire.VarintType)
	b = protowire.AppendVarint(b, SnapshotFormat)
	b = protowire.AppendTag(b, snapshotUpdate, protowire.BytesType)
	b = protowire.AppendBytes(b, update)
	return b
}

// ToMessage converts the given protocol message to the bytes of a frame.
func ToMessage(t types.MessageType, payload []byte) []byte {
	var b []byte
	b = protowire.AppendTag(b, messageType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(t))
	b = protowire.AppendTag(b, messagePayload, protowire.BytesType)
	b = protowire.AppendBytes(b, payload)
	return b
}

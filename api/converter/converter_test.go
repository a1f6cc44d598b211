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

package converter_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/yorkie-team/docsync/api/converter"
	"github.com/yorkie-team/docsync/api/types"
	"github.com/yorkie-team/docsync/pkg/document/change"
	"github.com/yorkie-team/docsync/pkg/document/operations"
	"github.com/yorkie-team/docsync/pkg/document/time"
	"github.com/yorkie-team/docsync/pkg/errors"
)

func newChange(t *testing.T) *change.Change {
	actor, err := time.ActorIDFromHex("0123456789abcdef01234567")
	require.NoError(t, err)

	ctx := change.NewContext(change.NewID(1, 1, actor))
	createdAt := ctx.IssueTimeTickets(5)
	ctx.Push(operations.NewInsert(time.InitialTicket, createdAt, "héllo"))
	ctx.Push(operations.NewRemove(
		[]time.Ticket{createdAt, createdAt.Offset(1)},
		ctx.IssueTimeTicket(),
	))
	return ctx.ToChange()
}

func TestConverter(t *testing.T) {
	t.Run("update round trip test", func(t *testing.T) {
		c := newChange(t)
		bytes := converter.ToUpdate([]*change.Change{c})

		changes, err := converter.FromUpdate(bytes)
		require.NoError(t, err)
		require.Len(t, changes, 1)
		assert.Equal(t, c.ID(), changes[0].ID())
		require.Len(t, changes[0].Operations(), 2)

		insert := changes[0].Operations()[0].(*operations.Insert)
		assert.Equal(t, "héllo", insert.Content())
		assert.True(t, insert.Origin().IsInitial())

		remove := changes[0].Operations()[1].(*operations.Remove)
		assert.Len(t, remove.Targets(), 2)

		assert.Equal(t, bytes, converter.ToUpdate(changes))
	})

	t.Run("empty update test", func(t *testing.T) {
		changes, err := converter.FromUpdate(nil)
		assert.NoError(t, err)
		assert.Empty(t, changes)
		assert.Empty(t, converter.ToUpdate(nil))
	})

	t.Run("version vector round trip test", func(t *testing.T) {
		actorA, _ := time.ActorIDFromHex("000000000000000000000001")
		actorB, _ := time.ActorIDFromHex("000000000000000000000002")
		vector := time.NewVersionVector()
		vector.Set(actorB, 7)
		vector.Set(actorA, 3)

		decoded, err := converter.FromVersionVector(converter.ToVersionVector(vector))
		require.NoError(t, err)
		assert.Equal(t, vector, decoded)

		empty, err := converter.FromVersionVector(nil)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("snapshot round trip test", func(t *testing.T) {
		update := converter.ToUpdate([]*change.Change{newChange(t)})
		decoded, err := converter.FromSnapshot(converter.ToSnapshot(update))
		require.NoError(t, err)
		assert.Equal(t, update, decoded)
	})

	t.Run("message round trip test", func(t *testing.T) {
		frame := converter.ToMessage(types.Awareness, []byte(`{"state":null}`))
		messageType, payload, err := converter.FromMessage(frame)
		require.NoError(t, err)
		assert.Equal(t, types.Awareness, messageType)
		assert.Equal(t, `{"state":null}`, string(payload))
	})
}

func TestConverterMalformedInput(t *testing.T) {
	update := converter.ToUpdate([]*change.Change{newChange(t)})

	var unknown []byte
	unknown = protowire.AppendTag(unknown, 9, protowire.VarintType)
	unknown = protowire.AppendVarint(unknown, 1)

	var wrongFormat []byte
	wrongFormat = protowire.AppendTag(wrongFormat, 1, protowire.VarintType)
	wrongFormat = protowire.AppendVarint(wrongFormat, 2)

	var wrongType []byte
	wrongType = protowire.AppendTag(wrongType, 1, protowire.VarintType)
	wrongType = protowire.AppendVarint(wrongType, 42)

	var changeWithoutActor []byte
	changeWithoutActor = protowire.AppendTag(changeWithoutActor, 1, protowire.BytesType)
	changeWithoutActor = protowire.AppendBytes(changeWithoutActor, nil)

	actor, err := time.ActorIDFromHex("0123456789abcdef01234567")
	require.NoError(t, err)
	lamportOverflow := change.NewContext(change.NewID(1, math.MaxInt64, actor))
	lamportOverflow.Push(operations.NewInsert(time.InitialTicket, lamportOverflow.IssueTimeTickets(1), "x"))
	vectorOverflow := time.NewVersionVector()
	vectorOverflow.Set(actor, math.MaxInt64)

	tests := []struct {
		name   string
		decode func() error
	}{
		{"lamport beyond the maximum", func() error {
			_, err := converter.FromUpdate(converter.ToUpdate([]*change.Change{lamportOverflow.ToChange()}))
			return err
		}},
		{"version vector beyond the maximum", func() error {
			_, err := converter.FromVersionVector(converter.ToVersionVector(vectorOverflow))
			return err
		}},
		{"truncated update", func() error {
			_, err := converter.FromUpdate(update[:len(update)-3])
			return err
		}},
		{"garbage update", func() error {
			_, err := converter.FromUpdate([]byte{0xff, 0xff, 0xff})
			return err
		}},
		{"unknown field in update", func() error {
			_, err := converter.FromUpdate(unknown)
			return err
		}},
		{"change without actor", func() error {
			_, err := converter.FromUpdate(changeWithoutActor)
			return err
		}},
		{"unknown field in version vector", func() error {
			_, err := converter.FromVersionVector(unknown)
			return err
		}},
		{"unsupported snapshot format", func() error {
			_, err := converter.FromSnapshot(wrongFormat)
			return err
		}},
		{"snapshot that is not a snapshot", func() error {
			_, err := converter.FromSnapshot([]byte("corrupted snapshot"))
			return err
		}},
		{"unknown message type", func() error {
			_, _, err := converter.FromMessage(wrongType)
			return err
		}},
		{"empty message", func() error {
			_, _, err := converter.FromMessage(nil)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.decode()
			assert.ErrorIs(t, err, converter.ErrDecode)
			assert.True(t, errors.IsStatus(err, errors.ErrCodeInvalidArgument))
			assert.Equal(t, "ErrDecode", errors.CodeOf(err))
		})
	}
}

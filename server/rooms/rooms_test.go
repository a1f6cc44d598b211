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

package rooms_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	gotime "time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yorkie-team/docsync/api/converter"
	"github.com/yorkie-team/docsync/api/types"
	"github.com/yorkie-team/docsync/pkg/awareness"
	"github.com/yorkie-team/docsync/pkg/document"
	"github.com/yorkie-team/docsync/pkg/document/change"
	"github.com/yorkie-team/docsync/pkg/document/operations"
	"github.com/yorkie-team/docsync/pkg/document/time"
	"github.com/yorkie-team/docsync/server/backend/background"
	"github.com/yorkie-team/docsync/server/backend/database"
	"github.com/yorkie-team/docsync/server/backend/database/memory"
	"github.com/yorkie-team/docsync/server/profiling/prometheus"
	"github.com/yorkie-team/docsync/server/rooms"
	"github.com/yorkie-team/docsync/server/snapshots"
)

var errUnreachable = errors.New("storage unreachable")

type message struct {
	msgType types.MessageType
	payload []byte
}

// testPeer records the frames sent to it.
type testPeer struct {
	id string

	mu     sync.Mutex
	frames [][]byte
}

func newPeer(id string) *testPeer {
	return &testPeer{id: id}
}

func (p *testPeer) ID() string {
	return p.id
}

func (p *testPeer) Send(frame []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frames = append(p.frames, frame)
	return nil
}

func (p *testPeer) messages(t *testing.T, msgType types.MessageType) []message {
	p.mu.Lock()
	defer p.mu.Unlock()

	var messages []message
	for _, frame := range p.frames {
		typ, payload, err := converter.FromMessage(frame)
		require.NoError(t, err)
		if typ == msgType {
			messages = append(messages, message{msgType: typ, payload: payload})
		}
	}
	return messages
}

func (p *testPeer) first(t *testing.T) message {
	p.mu.Lock()
	defer p.mu.Unlock()

	require.NotEmpty(t, p.frames)
	typ, payload, err := converter.FromMessage(p.frames[0])
	require.NoError(t, err)
	return message{msgType: typ, payload: payload}
}

// mergeAll merges every update relayed to the peer into the given replica.
func (p *testPeer) mergeAll(t *testing.T, doc *document.Document) {
	for _, msg := range p.messages(t, types.Update) {
		_, err := doc.MergeBytes(msg.payload)
		require.NoError(t, err)
	}
}

// flakyDB is an in-memory database whose loads or first saves fail. A
// stalled load waits until its context ends.
type flakyDB struct {
	*memory.DB

	mu        sync.Mutex
	failLoad  bool
	stallLoad bool
	failSaves int
	saves     int
}

func newFlakyDB(t *testing.T) *flakyDB {
	db, err := memory.New()
	require.NoError(t, err)
	return &flakyDB{DB: db}
}

func (d *flakyDB) FindSnapshotInfo(ctx context.Context, docID string) (*database.SnapshotInfo, error) {
	d.mu.Lock()
	failLoad, stallLoad := d.failLoad, d.stallLoad
	d.mu.Unlock()
	if stallLoad {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if failLoad {
		return nil, errUnreachable
	}
	return d.DB.FindSnapshotInfo(ctx, docID)
}

func (d *flakyDB) UpdateSnapshotInfo(
	ctx context.Context,
	docID string,
	snapshot []byte,
	updatedAt gotime.Time,
) error {
	d.mu.Lock()
	d.saves++
	if d.failSaves > 0 {
		d.failSaves--
		d.mu.Unlock()
		return errUnreachable
	}
	d.mu.Unlock()

	return d.DB.UpdateSnapshotInfo(ctx, docID, snapshot, updatedAt)
}

func (d *flakyDB) saveCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.saves
}

func newOptions() rooms.Options {
	return rooms.Options{
		FlushDebounce:      gotime.Hour,
		FlushTimeout:       gotime.Second,
		FlushRetries:       2,
		FlushRetryInterval: 10 * gotime.Millisecond,
		Hostname:           "test",
	}
}

func newManager(t *testing.T, db database.Database, opts rooms.Options) *rooms.Manager {
	metrics, err := prometheus.NewMetrics()
	require.NoError(t, err)

	bg := background.New(metrics)
	t.Cleanup(bg.Close)

	return rooms.NewManager(&opts, snapshots.New(db), bg, metrics)
}

func storedText(t *testing.T, db database.Database, docID string) string {
	snapshot, err := snapshots.New(db).Load(context.Background(), docID)
	require.NoError(t, err)
	require.NotNil(t, snapshot)

	doc, err := document.FromSnapshot(docID, snapshot)
	require.NoError(t, err)
	return doc.String()
}

func insert(t *testing.T, doc *document.Document, pos int, content string) []byte {
	update, err := doc.Insert(pos, content)
	require.NoError(t, err)
	return converter.ToMessage(types.Update, update)
}

// receive hands a frame to the room and returns only the error.
func receive(room *rooms.Room, peer rooms.Peer, frame []byte) error {
	_, err := room.Receive(peer, frame)
	return err
}

func TestRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("sync handshake test", func(t *testing.T) {
		m := newManager(t, newFlakyDB(t), newOptions())

		p1 := newPeer("p1")
		room, err := m.Attach(ctx, "doc-1", p1)
		require.NoError(t, err)

		first := p1.first(t)
		assert.Equal(t, types.SyncStep1, first.msgType)
		vector, err := converter.FromVersionVector(first.payload)
		require.NoError(t, err)
		assert.Empty(t, vector)

		client1 := document.New("doc-1")
		require.NoError(t, receive(room, p1, insert(t, client1, 0, "hello")))
		assert.Equal(t, "hello", room.Text())

		// a late peer catches up with sync step 2
		p2 := newPeer("p2")
		_, err = m.Attach(ctx, "doc-1", p2)
		require.NoError(t, err)
		vector, err = converter.FromVersionVector(p2.first(t).payload)
		require.NoError(t, err)
		assert.Len(t, vector, 1)

		client2 := document.New("doc-1")
		require.NoError(t, receive(room, p2, converter.ToMessage(
			types.SyncStep1,
			converter.ToVersionVector(client2.VersionVector()),
		)))
		steps := p2.messages(t, types.SyncStep2)
		require.Len(t, steps, 1)
		_, err = client2.MergeBytes(steps[0].payload)
		require.NoError(t, err)
		assert.Equal(t, "hello", client2.String())

		// the peer answers with its own changes, which the room already has
		msgType, err := room.Receive(p2, converter.ToMessage(types.SyncStep2, client2.EncodeFull()))
		require.NoError(t, err)
		assert.Equal(t, types.SyncStep2, msgType)
		assert.Len(t, p1.messages(t, types.Update), 0)

		// an up-to-date peer receives an empty delta
		require.NoError(t, receive(room, p1, converter.ToMessage(
			types.SyncStep1,
			converter.ToVersionVector(client1.VersionVector()),
		)))
		steps = p1.messages(t, types.SyncStep2)
		require.Len(t, steps, 1)
		changes, err := converter.FromUpdate(steps[0].payload)
		require.NoError(t, err)
		assert.Empty(t, changes)
	})

	t.Run("broadcast excludes the sender test", func(t *testing.T) {
		m := newManager(t, newFlakyDB(t), newOptions())

		p1, p2, p3 := newPeer("p1"), newPeer("p2"), newPeer("p3")
		room, err := m.Attach(ctx, "doc-1", p1)
		require.NoError(t, err)
		_, err = m.Attach(ctx, "doc-1", p2)
		require.NoError(t, err)
		_, err = m.Attach(ctx, "doc-1", p3)
		require.NoError(t, err)

		client := document.New("doc-1")
		frame := insert(t, client, 0, "hello")
		require.NoError(t, receive(room, p1, frame))

		assert.Len(t, p1.messages(t, types.Update), 0)
		assert.Len(t, p2.messages(t, types.Update), 1)
		assert.Len(t, p3.messages(t, types.Update), 1)

		replica := document.New("doc-1")
		p3.mergeAll(t, replica)
		assert.Equal(t, "hello", replica.String())

		// a duplicate brings nothing new and is not relayed
		require.NoError(t, receive(room, p2, frame))
		assert.Len(t, p1.messages(t, types.Update), 0)
		assert.Len(t, p3.messages(t, types.Update), 1)
	})

	t.Run("no cross-talk between rooms test", func(t *testing.T) {
		m := newManager(t, newFlakyDB(t), newOptions())

		p1, p2 := newPeer("p1"), newPeer("p2")
		room1, err := m.Attach(ctx, "doc-1", p1)
		require.NoError(t, err)
		room2, err := m.Attach(ctx, "doc-2", p2)
		require.NoError(t, err)
		assert.NotSame(t, room1, room2)

		require.NoError(t, receive(room1, p1, insert(t, document.New("doc-1"), 0, "hello")))
		assert.Len(t, p2.messages(t, types.Update), 0)
		assert.Equal(t, "", room2.Text())
		assert.Equal(t, 2, m.Len())
	})

	t.Run("concurrent edits converge test", func(t *testing.T) {
		m := newManager(t, newFlakyDB(t), newOptions())

		p1, p2 := newPeer("p1"), newPeer("p2")
		room, err := m.Attach(ctx, "doc-1", p1)
		require.NoError(t, err)
		_, err = m.Attach(ctx, "doc-1", p2)
		require.NoError(t, err)

		client1, client2 := document.New("doc-1"), document.New("doc-1")
		frame1 := insert(t, client1, 0, "A")
		frame2 := insert(t, client2, 0, "B")
		require.NoError(t, receive(room, p1, frame1))
		require.NoError(t, receive(room, p2, frame2))

		p1.mergeAll(t, client1)
		p2.mergeAll(t, client2)
		assert.Equal(t, 2, client1.Len())
		assert.Equal(t, client1.String(), client2.String())
		assert.Equal(t, client1.String(), room.Text())
	})

	t.Run("malformed messages are dropped test", func(t *testing.T) {
		m := newManager(t, newFlakyDB(t), newOptions())

		p1, p2 := newPeer("p1"), newPeer("p2")
		room, err := m.Attach(ctx, "doc-1", p1)
		require.NoError(t, err)
		_, err = m.Attach(ctx, "doc-1", p2)
		require.NoError(t, err)
		require.NoError(t, receive(room, p1, insert(t, document.New("doc-1"), 0, "hello")))

		err = receive(room, p1, converter.ToMessage(types.Update, []byte{0xff}))
		assert.ErrorIs(t, err, converter.ErrDecode)
		err = receive(room, p1, []byte{0x08})
		assert.ErrorIs(t, err, converter.ErrDecode)
		err = receive(room, p1, converter.ToMessage(types.Awareness, []byte("{")))
		assert.ErrorIs(t, err, awareness.ErrInvalidAwareness)

		assert.Equal(t, "hello", room.Text())
		assert.Len(t, p2.messages(t, types.Update), 1)
		assert.Len(t, p2.messages(t, types.Awareness), 0)
	})

	t.Run("clock jumps are refused test", func(t *testing.T) {
		m := newManager(t, newFlakyDB(t), newOptions())

		p1, p2 := newPeer("p1"), newPeer("p2")
		room, err := m.Attach(ctx, "doc-1", p1)
		require.NoError(t, err)
		_, err = m.Attach(ctx, "doc-1", p2)
		require.NoError(t, err)

		actor, err := time.ActorIDFromHex("0000000000000000000000ff")
		require.NoError(t, err)
		jump := change.NewContext(change.NewID(1, time.MaxLamport, actor))
		jump.Push(operations.NewInsert(time.InitialTicket, jump.IssueTimeTickets(1), "x"))
		update := converter.ToUpdate([]*change.Change{jump.ToChange()})

		err = receive(room, p1, converter.ToMessage(types.Update, update))
		assert.ErrorIs(t, err, document.ErrLamportOutOfRange)
		assert.Equal(t, "", room.Text())
		assert.Len(t, p2.messages(t, types.Update), 0)
		assert.False(t, room.IsDirty())

		// honest peers keep editing
		client := document.New("doc-1")
		require.NoError(t, receive(room, p1, insert(t, client, 0, "hello")))
		assert.Equal(t, "hello", room.Text())
		assert.Len(t, p2.messages(t, types.Update), 1)
	})

	t.Run("awareness test", func(t *testing.T) {
		m := newManager(t, newFlakyDB(t), newOptions())

		p1, p2 := newPeer("p1"), newPeer("p2")
		room, err := m.Attach(ctx, "doc-1", p1)
		require.NoError(t, err)
		_, err = m.Attach(ctx, "doc-1", p2)
		require.NoError(t, err)

		payload := []byte(`{"clientID":"forged","state":{"user":{"name":"alice"},"status":"active","theme":"dark"}}`)
		require.NoError(t, receive(room, p1, converter.ToMessage(types.Awareness, payload)))

		relayed := p2.messages(t, types.Awareness)
		require.Len(t, relayed, 1)
		msg, err := awareness.Decode(relayed[0].payload)
		require.NoError(t, err)
		assert.Equal(t, "p1", msg.ClientID)
		assert.Equal(t, "alice", msg.State.User.Name)
		assert.Contains(t, msg.State.Extra, "theme")
		assert.Len(t, p1.messages(t, types.Awareness), 0)

		// a late peer receives the awareness of the others on attach
		p3 := newPeer("p3")
		_, err = m.Attach(ctx, "doc-1", p3)
		require.NoError(t, err)
		require.Len(t, p3.messages(t, types.Awareness), 1)

		// detaching announces the departure
		require.NoError(t, m.Detach(ctx, room, p1))
		relayed = p2.messages(t, types.Awareness)
		require.Len(t, relayed, 2)
		msg, err = awareness.Decode(relayed[1].payload)
		require.NoError(t, err)
		assert.Equal(t, "p1", msg.ClientID)
		assert.Nil(t, msg.State)
	})
}

func TestPersistence(t *testing.T) {
	ctx := context.Background()

	t.Run("corrupted snapshot starts empty test", func(t *testing.T) {
		db := newFlakyDB(t)
		require.NoError(t, db.UpdateSnapshotInfo(ctx, "doc-1", []byte("garbage"), gotime.Now()))
		m := newManager(t, db, newOptions())

		p1 := newPeer("p1")
		room, err := m.Attach(ctx, "doc-1", p1)
		require.NoError(t, err)
		assert.Equal(t, "", room.Text())

		require.NoError(t, receive(room, p1, insert(t, document.New("doc-1"), 0, "fresh")))
		require.NoError(t, m.Detach(ctx, room, p1))
		assert.Equal(t, "fresh", storedText(t, db, "doc-1"))
	})

	t.Run("unavailable storage starts empty test", func(t *testing.T) {
		db := newFlakyDB(t)
		db.failLoad = true
		m := newManager(t, db, newOptions())

		room, err := m.Attach(ctx, "doc-1", newPeer("p1"))
		require.NoError(t, err)
		assert.Equal(t, "", room.Text())
	})

	t.Run("stalled storage starts empty test", func(t *testing.T) {
		db := newFlakyDB(t)
		db.stallLoad = true
		opts := newOptions()
		opts.FlushTimeout = 50 * gotime.Millisecond
		m := newManager(t, db, opts)

		start := gotime.Now()
		room, err := m.Attach(ctx, "doc-1", newPeer("p1"))
		require.NoError(t, err)
		assert.Equal(t, "", room.Text())
		assert.Less(t, gotime.Since(start), 2*gotime.Second)

		// the lock of the document is released for the next attach
		_, err = m.Attach(ctx, "doc-1", newPeer("p2"))
		require.NoError(t, err)
		assert.Equal(t, 2, room.Len())
	})

	t.Run("debounced flush test", func(t *testing.T) {
		db := newFlakyDB(t)
		opts := newOptions()
		opts.FlushDebounce = 100 * gotime.Millisecond
		m := newManager(t, db, opts)

		p1 := newPeer("p1")
		room, err := m.Attach(ctx, "doc-1", p1)
		require.NoError(t, err)

		client := document.New("doc-1")
		require.NoError(t, receive(room, p1, insert(t, client, 0, "hel")))
		require.NoError(t, receive(room, p1, insert(t, client, 3, "lo")))
		assert.True(t, room.IsDirty())

		assert.Eventually(t, func() bool {
			return db.saveCount() == 1 && !room.IsDirty()
		}, 3*gotime.Second, 10*gotime.Millisecond)
		assert.Equal(t, "hello", storedText(t, db, "doc-1"))
		assert.False(t, room.FlushedAt().IsZero())

		// the burst was saved at once and the room stays resident
		gotime.Sleep(200 * gotime.Millisecond)
		assert.Equal(t, 1, db.saveCount())
		assert.Equal(t, 1, m.Len())
	})

	t.Run("failed flush is retried on the next window test", func(t *testing.T) {
		db := newFlakyDB(t)
		db.failSaves = 1
		opts := newOptions()
		opts.FlushDebounce = 20 * gotime.Millisecond
		m := newManager(t, db, opts)

		p1 := newPeer("p1")
		room, err := m.Attach(ctx, "doc-1", p1)
		require.NoError(t, err)
		require.NoError(t, receive(room, p1, insert(t, document.New("doc-1"), 0, "hello")))

		assert.Eventually(t, func() bool {
			return db.saveCount() == 2 && !room.IsDirty()
		}, 3*gotime.Second, 10*gotime.Millisecond)
		assert.Equal(t, "hello", storedText(t, db, "doc-1"))
	})

	t.Run("last detach flushes and destroys test", func(t *testing.T) {
		db := newFlakyDB(t)
		m := newManager(t, db, newOptions())

		p1, p2 := newPeer("p1"), newPeer("p2")
		room, err := m.Attach(ctx, "doc-1", p1)
		require.NoError(t, err)
		_, err = m.Attach(ctx, "doc-1", p2)
		require.NoError(t, err)
		require.NoError(t, receive(room, p1, insert(t, document.New("doc-1"), 0, "hello")))

		require.NoError(t, m.Detach(ctx, room, p1))
		assert.Equal(t, 1, m.Len())
		assert.Equal(t, 0, db.saveCount())

		require.NoError(t, m.Detach(ctx, room, p2))
		assert.Equal(t, 0, m.Len())
		assert.Equal(t, "hello", storedText(t, db, "doc-1"))

		// detaching twice is harmless
		require.NoError(t, m.Detach(ctx, room, p2))

		// the next room starts from the stored snapshot
		room, err = m.Attach(ctx, "doc-1", newPeer("p3"))
		require.NoError(t, err)
		assert.Equal(t, "hello", room.Text())
	})

	t.Run("restart restores the flushed state test", func(t *testing.T) {
		db := newFlakyDB(t)
		opts := newOptions()
		opts.FlushDebounce = 20 * gotime.Millisecond
		m := newManager(t, db, opts)

		p1 := newPeer("p1")
		room, err := m.Attach(ctx, "doc-1", p1)
		require.NoError(t, err)
		require.NoError(t, receive(room, p1, insert(t, document.New("doc-1"), 0, "hello")))
		assert.Eventually(t, func() bool {
			return db.saveCount() == 1
		}, 3*gotime.Second, 10*gotime.Millisecond)

		// the first manager is abandoned without closing
		restarted := newManager(t, db, newOptions())
		room, err = restarted.Attach(ctx, "doc-1", newPeer("p1"))
		require.NoError(t, err)
		assert.Equal(t, "hello", room.Text())
	})

	t.Run("final flush retries test", func(t *testing.T) {
		db := newFlakyDB(t)
		db.failSaves = 2
		m := newManager(t, db, newOptions())

		p1 := newPeer("p1")
		room, err := m.Attach(ctx, "doc-1", p1)
		require.NoError(t, err)
		require.NoError(t, receive(room, p1, insert(t, document.New("doc-1"), 0, "hello")))

		require.NoError(t, m.Detach(ctx, room, p1))
		assert.Equal(t, 3, db.saveCount())
		assert.Equal(t, "hello", storedText(t, db, "doc-1"))
	})

	t.Run("final flush gives up test", func(t *testing.T) {
		db := newFlakyDB(t)
		db.failSaves = 10
		m := newManager(t, db, newOptions())

		p1 := newPeer("p1")
		room, err := m.Attach(ctx, "doc-1", p1)
		require.NoError(t, err)
		require.NoError(t, receive(room, p1, insert(t, document.New("doc-1"), 0, "hello")))

		err = m.Detach(ctx, room, p1)
		assert.ErrorIs(t, err, snapshots.ErrPersistence)
		assert.Equal(t, 3, db.saveCount())
		assert.Equal(t, 0, m.Len())
	})
}

func TestManager(t *testing.T) {
	ctx := context.Background()

	t.Run("concurrent first attaches share a room test", func(t *testing.T) {
		m := newManager(t, newFlakyDB(t), newOptions())

		const count = 32
		attached := make([]*rooms.Room, count)
		var wg sync.WaitGroup
		for i := 0; i < count; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				room, err := m.Attach(ctx, "doc-1", newPeer(fmt.Sprintf("p%d", i)))
				assert.NoError(t, err)
				attached[i] = room
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 1, m.Len())
		for _, room := range attached {
			assert.Same(t, attached[0], room)
		}
		assert.Equal(t, count, attached[0].Len())
	})

	t.Run("close flushes every room test", func(t *testing.T) {
		db := newFlakyDB(t)
		m := newManager(t, db, newOptions())

		p1, p2 := newPeer("p1"), newPeer("p2")
		room1, err := m.Attach(ctx, "doc-1", p1)
		require.NoError(t, err)
		room2, err := m.Attach(ctx, "doc-2", p2)
		require.NoError(t, err)
		require.NoError(t, receive(room1, p1, insert(t, document.New("doc-1"), 0, "one")))
		require.NoError(t, receive(room2, p2, insert(t, document.New("doc-2"), 0, "two")))

		require.NoError(t, m.Close(ctx))
		assert.Equal(t, 0, m.Len())
		assert.Equal(t, "one", storedText(t, db, "doc-1"))
		assert.Equal(t, "two", storedText(t, db, "doc-2"))

		_, err = m.Attach(ctx, "doc-1", newPeer("p3"))
		assert.ErrorIs(t, err, rooms.ErrManagerClosed)

		err = receive(room1, p1, insert(t, document.New("doc-1"), 0, "late"))
		assert.ErrorIs(t, err, rooms.ErrRoomClosed)
		assert.NoError(t, m.Detach(ctx, room1, p1))
		assert.NoError(t, m.Close(ctx))
	})
}

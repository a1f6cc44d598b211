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

package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yorkie-team/docsync/api/converter"
	"github.com/yorkie-team/docsync/api/types"
	"github.com/yorkie-team/docsync/pkg/awareness"
	"github.com/yorkie-team/docsync/pkg/document"
)

const writeWait = 10 * time.Second

// ErrAttachmentClosed occurs when the connection of the attachment has ended.
var ErrAttachmentClosed = errors.New("attachment is closed")

// Attachment represents the document attached. It owns the local replica
// and the connection to the room of the document.
type Attachment struct {
	docID  string
	conn   *websocket.Conn
	logger *zap.Logger

	// writeMu serializes the writers of the connection.
	writeMu sync.Mutex

	// mu guards doc, peers and status.
	mu     sync.RWMutex
	doc    *document.Document
	peers  map[string]*awareness.State
	status types.SyncStatus

	synced   chan struct{}
	syncOnce sync.Once
	changed  chan struct{}
	done     chan struct{}
	err      error
}

func newAttachment(conn *websocket.Conn, doc *document.Document, logger *zap.Logger) *Attachment {
	return &Attachment{
		docID:   doc.Key(),
		conn:    conn,
		logger:  logger,
		doc:     doc,
		peers:   make(map[string]*awareness.State),
		status:  types.Connecting,
		synced:  make(chan struct{}),
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// start starts reading and sends the version vector of the replica.
func (a *Attachment) start() error {
	go a.readLoop()

	a.mu.Lock()
	vector := converter.ToVersionVector(a.doc.VersionVector())
	a.setStatus(types.Syncing)
	a.mu.Unlock()

	return a.write(types.SyncStep1, vector)
}

// DocID returns the ID of the attached document.
func (a *Attachment) DocID() string {
	return a.docID
}

// Status returns the sync status of this attachment.
func (a *Attachment) Status() types.SyncStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.status
}

// Text returns the content of the local replica.
func (a *Attachment) Text() string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.doc.String()
}

// Snapshot returns the snapshot of the local replica.
func (a *Attachment) Snapshot() []byte {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.doc.Snapshot()
}

// Peers returns the awareness of the other sessions of the document keyed
// by their session IDs.
func (a *Attachment) Peers() map[string]awareness.State {
	a.mu.RLock()
	defer a.mu.RUnlock()

	peers := make(map[string]awareness.State, len(a.peers))
	for id, state := range a.peers {
		peers[id] = *state
	}
	return peers
}

// Changed returns a channel that receives a value after the replica or the
// awareness of the peers changes by a remote message. Notifications are
// coalesced.
func (a *Attachment) Changed() <-chan struct{} {
	return a.changed
}

// Done returns a channel that is closed when the connection ends.
func (a *Attachment) Done() <-chan struct{} {
	return a.done
}

// Err returns the reason the connection ended, or nil while it is alive.
func (a *Attachment) Err() error {
	select {
	case <-a.done:
		return a.err
	default:
		return nil
	}
}

// WaitSynced waits until the server has sent what the replica was missing.
func (a *Attachment) WaitSynced(ctx context.Context) error {
	select {
	case <-a.synced:
		return nil
	case <-a.done:
		return fmt.Errorf("wait synced: %v: %w", a.err, ErrAttachmentClosed)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Insert inserts the given content at the given position.
func (a *Attachment) Insert(pos int, content string) error {
	return a.Edit(document.InsertText{Pos: pos, Content: content})
}

// Delete deletes the given number of characters from the given position.
func (a *Attachment) Delete(pos, length int) error {
	return a.Edit(document.DeleteText{Pos: pos, Length: length})
}

// Edit applies the given edits as a single change and sends it to the
// server.
func (a *Attachment) Edit(edits ...document.Edit) error {
	a.mu.Lock()
	update, err := a.doc.ApplyLocalChange(edits...)
	a.mu.Unlock()
	if err != nil {
		return err
	}
	if update == nil {
		return nil
	}

	return a.write(types.Update, update)
}

// SetAwareness publishes the given awareness state. A nil state withdraws
// it.
func (a *Attachment) SetAwareness(state *awareness.State) error {
	data, err := awareness.Encode(&awareness.Message{State: state})
	if err != nil {
		return err
	}
	return a.write(types.Awareness, data)
}

func (a *Attachment) setStatus(next types.SyncStatus) {
	if a.status.CanTransitionTo(next) {
		a.status = next
	}
}

func (a *Attachment) notify() {
	select {
	case a.changed <- struct{}{}:
	default:
	}
}

func (a *Attachment) write(msgType types.MessageType, payload []byte) error {
	select {
	case <-a.done:
		return ErrAttachmentClosed
	default:
	}

	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	if err := a.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := a.conn.WriteMessage(websocket.BinaryMessage, converter.ToMessage(msgType, payload)); err != nil {
		return fmt.Errorf("write %s: %w", msgType, err)
	}
	return nil
}

// readLoop handles the frames of the server until the connection ends.
// Pings are answered by the default handler of the connection while
// reading.
func (a *Attachment) readLoop() {
	defer close(a.done)

	for {
		msgType, frame, err := a.conn.ReadMessage()
		if err != nil {
			a.mu.Lock()
			a.err = err
			a.setStatus(types.Closed)
			a.mu.Unlock()
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}

		if err := a.handle(frame); err != nil {
			a.logger.Warn("drop frame", zap.Error(err))
		}
	}
}

func (a *Attachment) handle(frame []byte) error {
	msgType, payload, err := converter.FromMessage(frame)
	if err != nil {
		return err
	}

	switch msgType {
	case types.SyncStep1:
		vector, err := converter.FromVersionVector(payload)
		if err != nil {
			return err
		}
		a.mu.RLock()
		update := a.doc.EncodeSince(vector)
		a.mu.RUnlock()
		return a.write(types.SyncStep2, update)
	case types.SyncStep2, types.Update:
		a.mu.Lock()
		_, err := a.doc.MergeBytes(payload)
		if err == nil && msgType == types.SyncStep2 {
			a.setStatus(types.Synced)
		}
		a.mu.Unlock()
		if err != nil {
			return err
		}

		if msgType == types.SyncStep2 {
			a.syncOnce.Do(func() { close(a.synced) })
		}
		a.notify()
	case types.Awareness:
		msg, err := awareness.Decode(payload)
		if err != nil {
			return err
		}
		a.mu.Lock()
		if msg.State == nil {
			delete(a.peers, msg.ClientID)
		} else {
			a.peers[msg.ClientID] = msg.State
		}
		a.mu.Unlock()
		a.notify()
	}

	return nil
}

// close sends a close frame and waits for the server to end the
// connection.
func (a *Attachment) close() error {
	select {
	case <-a.done:
		return a.conn.Close()
	default:
	}

	a.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	err := a.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	a.writeMu.Unlock()

	select {
	case <-a.done:
	case <-time.After(writeWait):
	}

	if closeErr := a.conn.Close(); closeErr != nil && err == nil {
		err = closeErr
	}

	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		return fmt.Errorf("close %s: %w", a.docID, err)
	}
	return nil
}

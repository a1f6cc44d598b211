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

package rooms

import (
	"context"
	"fmt"
	"sync"
	gotime "time"

	"go.uber.org/zap"

	"github.com/yorkie-team/docsync/api/converter"
	"github.com/yorkie-team/docsync/api/types"
	"github.com/yorkie-team/docsync/pkg/awareness"
	"github.com/yorkie-team/docsync/pkg/document"
	"github.com/yorkie-team/docsync/pkg/errors"
	"github.com/yorkie-team/docsync/server/logging"
)

// Peer is a session attached to a room. Send must not block: a peer that
// cannot take the frame returns an error and the frame is dropped for it.
type Peer interface {
	ID() string
	Send(frame []byte) error
}

// Room is the authority of a single document. It merges the updates of the
// attached peers into its replica one at a time, relays them to the other
// peers and saves the replica through the gateway.
type Room struct {
	docID   string
	manager *Manager
	logger  logging.Logger

	// mu guards the fields below. Frames are sent while holding it so every
	// peer receives the updates in merge order.
	mu        sync.Mutex
	doc       *document.Document
	peers     []Peer
	awareness map[string][]byte
	dirty     bool
	timer     *gotime.Timer
	updatedAt gotime.Time
	flushedAt gotime.Time
	closed    bool

	// flushMu prevents two saves of the same document from running at once.
	flushMu sync.Mutex
}

// newRoom creates a room and loads the stored snapshot of the document. A
// missing, unreadable or corrupted snapshot leaves the room empty.
func newRoom(ctx context.Context, m *Manager, docID string) *Room {
	room := &Room{
		docID:     docID,
		manager:   m,
		logger:    logging.New("room", logging.DocField(docID)),
		doc:       document.New(docID),
		awareness: make(map[string][]byte),
	}
	room.doc.SetMaxLamportDrift(maxLamportDrift)

	snapshot, err := m.gateway.Load(ctx, docID)
	if err != nil {
		room.logger.Warnf("load snapshot, starting with an empty document: %v", err)
		return room
	}
	if snapshot == nil {
		return room
	}

	doc, err := document.FromSnapshot(docID, snapshot)
	if err != nil {
		m.metrics.AddDecodeErrors(m.opts.Hostname, "snapshot")
		room.logger.Errorf("corrupted snapshot, starting with an empty document: %v", err)
		return room
	}
	doc.SetMaxLamportDrift(maxLamportDrift)
	room.doc = doc

	if logging.Enabled(zap.DebugLevel) {
		room.logger.Debugf("loaded snapshot of %d bytes, %d characters", len(snapshot), doc.Len())
	}
	return room
}

// DocID returns the ID of the document of this room.
func (r *Room) DocID() string {
	return r.docID
}

// Text returns the current content of the document.
func (r *Room) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.doc.String()
}

// UpdatedAt returns the time of the last change merged by this room. It is
// zero if nothing has changed since the room was created.
func (r *Room) UpdatedAt() gotime.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.updatedAt
}

// FlushedAt returns the time of the last successful flush.
func (r *Room) FlushedAt() gotime.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.flushedAt
}

// IsDirty returns whether the room has changes that are not saved yet.
func (r *Room) IsDirty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.dirty
}

// Len returns the number of attached peers.
func (r *Room) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.peers)
}

// attach adds the given peer and starts the handshake by sending the
// version vector of the room and the awareness of the other peers.
func (r *Room) attach(peer Peer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("attach %s to %s: %w", peer.ID(), r.docID, ErrRoomClosed)
	}
	r.peers = append(r.peers, peer)

	if err := r.send(peer, types.SyncStep1, converter.ToVersionVector(r.doc.VersionVector())); err != nil {
		return err
	}
	for _, other := range r.peers {
		if state, ok := r.awareness[other.ID()]; ok {
			if err := r.send(peer, types.Awareness, state); err != nil {
				return err
			}
		}
	}

	return nil
}

// detach removes the given peer and announces its departure to the others
// if it has published awareness. It returns whether the peer was attached
// and the number of the remaining peers.
func (r *Room) detach(peer Peer) (bool, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, p := range r.peers {
		if p.ID() == peer.ID() {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, len(r.peers)
	}
	r.peers = append(r.peers[:idx], r.peers[idx+1:]...)

	if _, ok := r.awareness[peer.ID()]; ok {
		delete(r.awareness, peer.ID())
		if data, err := awareness.Encode(awareness.Removed(peer.ID())); err != nil {
			r.logger.Errorf("encode awareness removal of %s: %v", peer.ID(), err)
		} else if !r.closed {
			r.broadcast(peer, types.Awareness, data)
		}
	}

	return true, len(r.peers)
}

// Receive handles a protocol frame sent by the given peer and returns its
// message type. Malformed frames are dropped and reported with an error
// wrapping converter.ErrDecode or awareness.ErrInvalidAwareness; the room
// keeps its last state.
func (r *Room) Receive(peer Peer, frame []byte) (types.MessageType, error) {
	hostname := r.manager.opts.Hostname

	msgType, payload, err := converter.FromMessage(frame)
	if err != nil {
		r.manager.metrics.AddDecodeErrors(hostname, "unknown")
		return msgType, fmt.Errorf("receive from %s: %w", peer.ID(), err)
	}
	r.manager.metrics.AddReceivedMessages(hostname, msgType.String())

	switch msgType {
	case types.SyncStep1:
		err = r.syncStep1(peer, payload)
	case types.SyncStep2, types.Update:
		err = r.merge(peer, payload)
	case types.Awareness:
		err = r.updateAwareness(peer, payload)
	}

	if errors.Is(err, converter.ErrDecode) || errors.Is(err, awareness.ErrInvalidAwareness) {
		r.manager.metrics.AddDecodeErrors(hostname, msgType.String())
	}
	return msgType, err
}

// syncStep1 answers the version vector of a peer with the changes the peer
// is missing.
func (r *Room) syncStep1(peer Peer, payload []byte) error {
	vector, err := converter.FromVersionVector(payload)
	if err != nil {
		return fmt.Errorf("sync step 1 of %s: %w", peer.ID(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomClosed
	}
	return r.send(peer, types.SyncStep2, r.doc.EncodeSince(vector))
}

// merge integrates an update of a peer and relays the changes that were new
// to the room to every other peer.
func (r *Room) merge(peer Peer, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomClosed
	}

	applied, err := r.doc.MergeBytes(payload)
	if err != nil {
		return fmt.Errorf("merge update of %s: %w", peer.ID(), err)
	}
	if applied == nil {
		return nil
	}

	r.markDirty()
	r.broadcast(peer, types.Update, applied)
	return nil
}

// updateAwareness stores the awareness of a peer under its session ID and
// relays it to the other peers.
func (r *Room) updateAwareness(peer Peer, payload []byte) error {
	msg, err := awareness.Decode(payload)
	if err != nil {
		return fmt.Errorf("awareness of %s: %w", peer.ID(), err)
	}
	msg.ClientID = peer.ID()

	data, err := awareness.Encode(msg)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomClosed
	}

	if msg.State == nil {
		delete(r.awareness, peer.ID())
	} else {
		r.awareness[peer.ID()] = data
	}
	r.broadcast(peer, types.Awareness, data)
	return nil
}

// send sends a frame to a single peer. It must be called with mu held.
func (r *Room) send(peer Peer, msgType types.MessageType, payload []byte) error {
	if err := peer.Send(converter.ToMessage(msgType, payload)); err != nil {
		return fmt.Errorf("send %s to %s: %w", msgType, peer.ID(), err)
	}
	return nil
}

// broadcast sends a frame to every peer except the sender in attach order.
// Peers that cannot take the frame miss it. It must be called with mu held.
func (r *Room) broadcast(sender Peer, msgType types.MessageType, payload []byte) {
	frame := converter.ToMessage(msgType, payload)

	sent := 0
	for _, peer := range r.peers {
		if peer.ID() == sender.ID() {
			continue
		}
		if err := peer.Send(frame); err != nil {
			r.logger.Warnf("send %s to %s: %v", msgType, peer.ID(), err)
			continue
		}
		sent++
	}

	r.manager.metrics.AddBroadcastMessages(r.manager.opts.Hostname, msgType.String(), sent)
}

// markDirty records a change and schedules a flush if none is scheduled.
// The window is not extended by later changes, so a burst of changes is
// saved at most FlushDebounce after its first change. It must be called
// with mu held.
func (r *Room) markDirty() {
	r.dirty = true
	r.updatedAt = gotime.Now()
	r.scheduleFlush()
}

// scheduleFlush must be called with mu held.
func (r *Room) scheduleFlush() {
	if r.timer != nil || r.closed {
		return
	}
	r.timer = gotime.AfterFunc(r.manager.opts.FlushDebounce, r.onFlushTimer)
}

func (r *Room) onFlushTimer() {
	r.mu.Lock()
	r.timer = nil
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return
	}

	attached := r.manager.background.AttachGoroutine(r.scheduledFlush, "flush")
	if !attached {
		r.logger.Warn("backend is closing; leaving the flush to the room teardown")
	}
}

// scheduledFlush runs the flush of the timer. Once the room is closed its
// state belongs to the final flush of close, and a newer room of the same
// document may already own the stored snapshot.
func (r *Room) scheduledFlush(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, r.manager.opts.FlushTimeout)
	defer cancel()

	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return
	}

	if err := r.flush(ctx); err != nil {
		logging.From(ctx).Warnf("flush %s, retrying in %s: %v", r.docID, r.manager.opts.FlushDebounce, err)
	}
}

// Flush saves the snapshot of the document if it has unsaved changes. On
// failure the changes stay unsaved and another flush is scheduled.
func (r *Room) Flush(ctx context.Context) error {
	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	return r.flush(ctx)
}

// flush must be called with flushMu held.
func (r *Room) flush(ctx context.Context) error {
	r.mu.Lock()
	if !r.dirty {
		r.mu.Unlock()
		return nil
	}
	snapshot := r.doc.Snapshot()
	updatedAt := r.updatedAt
	r.dirty = false
	r.mu.Unlock()

	hostname := r.manager.opts.Hostname
	start := gotime.Now()
	if err := r.manager.gateway.Save(ctx, r.docID, snapshot, updatedAt); err != nil {
		r.mu.Lock()
		r.dirty = true
		r.scheduleFlush()
		r.mu.Unlock()

		r.manager.metrics.AddFlushFailures(hostname)
		return err
	}
	r.manager.metrics.ObserveFlushDurationSeconds(gotime.Since(start).Seconds())
	r.manager.metrics.AddFlushBytes(hostname, len(snapshot))

	r.mu.Lock()
	r.flushedAt = gotime.Now()
	r.mu.Unlock()

	if logging.Enabled(zap.DebugLevel) {
		r.logger.Debugf("flushed snapshot of %d bytes", len(snapshot))
	}
	return nil
}

// close stops the room and saves its last state. The final flush is retried
// FlushRetries times with a linearly growing wait between attempts.
func (r *Room) close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.mu.Unlock()

	opts := r.manager.opts
	var err error
	for attempt := 0; attempt <= opts.FlushRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-gotime.After(gotime.Duration(attempt) * opts.FlushRetryInterval):
			case <-ctx.Done():
				return fmt.Errorf("final flush of %s: %w", r.docID, ctx.Err())
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, opts.FlushTimeout)
		err = r.Flush(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		r.logger.Warnf("final flush, attempt %d of %d: %v", attempt+1, opts.FlushRetries+1, err)
	}

	return fmt.Errorf("final flush of %s: %w", r.docID, err)
}

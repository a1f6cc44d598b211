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

// Package rooms provides the rooms of documents. A room is created when the
// first session attaches to a document and destroyed, after a final flush,
// when the last one detaches.
package rooms

import (
	"context"
	"fmt"
	"sync"
	gotime "time"

	"golang.org/x/sync/errgroup"

	"github.com/yorkie-team/docsync/pkg/errors"
	"github.com/yorkie-team/docsync/pkg/locker"
	"github.com/yorkie-team/docsync/server/backend/background"
	"github.com/yorkie-team/docsync/server/logging"
	"github.com/yorkie-team/docsync/server/profiling/prometheus"
	"github.com/yorkie-team/docsync/server/snapshots"
)

var (
	// ErrManagerClosed is returned when a session attaches after the manager
	// has been closed.
	ErrManagerClosed = errors.FailedPrecond("rooms manager closed").WithCode("ErrManagerClosed")

	// ErrRoomClosed is returned when a message arrives at a destroyed room.
	ErrRoomClosed = errors.FailedPrecond("room closed").WithCode("ErrRoomClosed")
)

const (
	defaultFlushRetryInterval = 200 * gotime.Millisecond

	// maxLamportDrift is the largest clock gap a room accepts in an update.
	maxLamportDrift = 1 << 20
)

// Options are the options of the rooms.
type Options struct {
	// FlushDebounce is the time between the first unsaved change of a room
	// and its flush.
	FlushDebounce gotime.Duration

	// FlushTimeout bounds a single load or save of a snapshot.
	FlushTimeout gotime.Duration

	// FlushRetries is the number of extra attempts of the final flush.
	FlushRetries int

	// FlushRetryInterval is the wait before the first retry of the final
	// flush. The n-th retry waits n times as long.
	FlushRetryInterval gotime.Duration

	// Hostname is used by metrics.
	Hostname string
}

// Manager owns the resident rooms, keyed by document ID.
type Manager struct {
	opts       *Options
	gateway    *snapshots.Gateway
	background *background.Background
	metrics    *prometheus.Metrics

	// locker serializes the creation and the destruction of the room of
	// each document.
	locker *locker.Locker[string]

	mu     sync.RWMutex
	rooms  map[string]*Room
	closed bool
}

// NewManager creates a new instance of Manager.
func NewManager(
	opts *Options,
	gateway *snapshots.Gateway,
	bg *background.Background,
	metrics *prometheus.Metrics,
) *Manager {
	if opts.FlushRetryInterval == 0 {
		opts.FlushRetryInterval = defaultFlushRetryInterval
	}

	return &Manager{
		opts:       opts,
		gateway:    gateway,
		background: bg,
		metrics:    metrics,
		locker:     locker.New[string](),
		rooms:      make(map[string]*Room),
	}
}

// Attach attaches the given peer to the room of the document, creating the
// room if it is not resident. Concurrent attaches to the same document
// always end up in the same room.
func (m *Manager) Attach(ctx context.Context, docID string, peer Peer) (*Room, error) {
	m.locker.Lock(docID)
	defer m.unlock(ctx, docID)

	m.mu.RLock()
	closed := m.closed
	room, ok := m.rooms[docID]
	m.mu.RUnlock()
	if closed {
		return nil, ErrManagerClosed
	}

	if !ok {
		// the load holds the lock of the document and is bounded like a save.
		loadCtx, cancel := context.WithTimeout(ctx, m.opts.FlushTimeout)
		room = newRoom(loadCtx, m, docID)
		cancel()

		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return nil, ErrManagerClosed
		}
		m.rooms[docID] = room
		m.mu.Unlock()

		m.metrics.AddRooms(m.opts.Hostname)
		logging.From(ctx).Infof("room of %s created", docID)
	}

	if err := room.attach(peer); err != nil {
		// a peer that failed the handshake must not keep an empty room
		// resident.
		if detached, remaining := room.detach(peer); detached && remaining == 0 {
			return nil, m.destroy(ctx, room, err)
		}
		return nil, err
	}
	m.metrics.AddSessions(m.opts.Hostname)

	return room, nil
}

// Detach detaches the given peer from the room. When the peer was the last
// one, the room is flushed and destroyed.
func (m *Manager) Detach(ctx context.Context, room *Room, peer Peer) error {
	docID := room.DocID()
	m.locker.Lock(docID)
	defer m.unlock(ctx, docID)

	detached, remaining := room.detach(peer)
	if !detached {
		return nil
	}
	m.metrics.RemoveSessions(m.opts.Hostname)
	if remaining > 0 {
		return nil
	}

	return m.destroy(ctx, room, nil)
}

// destroy removes the room from the resident rooms and closes it. It must be
// called with the lock of the document held. cause is returned as is if
// the room closes cleanly.
func (m *Manager) destroy(ctx context.Context, room *Room, cause error) error {
	m.mu.Lock()
	if m.rooms[room.DocID()] != room {
		// the room has been closed by Close
		m.mu.Unlock()
		return cause
	}
	delete(m.rooms, room.DocID())
	m.mu.Unlock()
	m.metrics.RemoveRooms(m.opts.Hostname)

	if err := room.close(ctx); err != nil {
		logging.From(ctx).Errorf("destroy room of %s: %v", room.DocID(), err)
		return err
	}
	logging.From(ctx).Infof("room of %s destroyed", room.DocID())
	return cause
}

// Room returns the resident room of the given document.
func (m *Manager) Room(docID string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room, ok := m.rooms[docID]
	return room, ok
}

// Len returns the number of resident rooms.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.rooms)
}

// Close refuses further attaches and flushes every resident room in
// parallel. A room whose final flush fails is still destroyed, and the first
// failure is returned after every room has been handled.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	rooms := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	m.mu.Unlock()

	group := errgroup.Group{}
	for _, room := range rooms {
		room := room
		group.Go(func() error {
			m.locker.Lock(room.DocID())
			defer m.unlock(ctx, room.DocID())

			return m.destroy(ctx, room, nil)
		})
	}
	if err := group.Wait(); err != nil {
		return fmt.Errorf("close rooms: %w", err)
	}

	return nil
}

func (m *Manager) unlock(ctx context.Context, docID string) {
	if err := m.locker.Unlock(docID); err != nil {
		logging.From(ctx).Errorf("unlock %s: %v", docID, err)
	}
}

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

package rpc

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/xid"

	"github.com/yorkie-team/docsync/api/types"
	"github.com/yorkie-team/docsync/pkg/errors"
	"github.com/yorkie-team/docsync/server/logging"
	"github.com/yorkie-team/docsync/server/rooms"
)

const writeWait = 10 * time.Second

var (
	// ErrTransport is returned when the connection of a session fails.
	ErrTransport = errors.Unavailable("transport failed").WithCode("ErrTransport")

	// ErrSlowConsumer is returned when a frame does not fit in the send
	// buffer of a session. The session is closed.
	ErrSlowConsumer = errors.ResourceExhausted("send buffer is full").WithCode("ErrSlowConsumer")
)

// reasons of sessions closed by the server.
const (
	reasonSlowConsumer = "slow_consumer"
	reasonLiveness     = "liveness"
	reasonTooLarge     = "too_large"
	reasonRoomClosed   = "room_closed"
	reasonShutdown     = "shutdown"
)

// Session is a connection of a client to the room of a document.
type Session struct {
	id     string
	docID  string
	conn   *websocket.Conn
	server *Server
	logger logging.Logger

	// send buffers the frames written by writePump. It is never closed;
	// closing is closed instead.
	send      chan []byte
	closing   chan struct{}
	closeOnce sync.Once
	closeCode int
	reason    string

	statusMu sync.Mutex
	status   types.SyncStatus

	lastSeen atomic.Int64
}

func newSession(s *Server, conn *websocket.Conn, docID string) *Session {
	id := xid.New().String()
	session := &Session{
		id:      id,
		docID:   docID,
		conn:    conn,
		server:  s,
		logger:  logging.New("session", logging.DocField(docID), logging.SessionField(id)),
		send:    make(chan []byte, s.conf.SendBufferSize),
		closing: make(chan struct{}),
		status:  types.Connecting,
	}
	session.touch()
	return session
}

// ID returns the ID of this session.
func (s *Session) ID() string {
	return s.id
}

// Status returns the sync status of this session.
func (s *Session) Status() types.SyncStatus {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	return s.status
}

// LastSeen returns the time the client was last heard from.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// Send queues the given frame. It never blocks: when the buffer is full the
// session is closed and the client is expected to resync on reconnect.
func (s *Session) Send(frame []byte) error {
	select {
	case <-s.closing:
		return fmt.Errorf("session %s closed: %w", s.id, ErrTransport)
	default:
	}

	select {
	case s.send <- frame:
		return nil
	default:
		s.close(websocket.CloseTryAgainLater, reasonSlowConsumer)
		return fmt.Errorf("session %s: %w", s.id, ErrSlowConsumer)
	}
}

func (s *Session) setStatus(next types.SyncStatus) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	if !s.status.CanTransitionTo(next) {
		return
	}
	s.status = next
}

func (s *Session) touch() {
	s.lastSeen.Store(time.Now().UnixNano())
}

// close closes the session once. Frames still buffered are discarded.
func (s *Session) close(code int, reason string) {
	s.closeOnce.Do(func() {
		s.closeCode = code
		s.reason = reason
		s.setStatus(types.Closed)
		close(s.closing)

		if reason != "" {
			s.server.backend.Metrics.AddDroppedSessions(s.server.backend.Config.Hostname, reason)
			s.logger.Infof("closing session: %s", reason)
		}
	})
}

// serve attaches the session to the room of its document and handles its
// frames until the connection ends. The session is detached before serve
// returns.
func (s *Session) serve(ctx context.Context) error {
	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		s.writePump()
	}()

	room, err := s.server.backend.Rooms.Attach(ctx, s.docID, s)
	if err != nil {
		s.close(websocket.CloseTryAgainLater, "")
		<-writeDone
		return fmt.Errorf("attach %s: %w", s.docID, err)
	}
	s.setStatus(types.Syncing)

	readErr := s.readPump(room)
	s.close(websocket.CloseNormalClosure, "")
	<-writeDone

	if err := s.server.backend.Rooms.Detach(ctx, room, s); err != nil {
		s.logger.Errorf("detach: %v", err)
	}
	return readErr
}

// readPump reads the frames of the client until the connection fails. Read
// deadlines are extended by every frame and pong, so a client silent for
// LivenessTimeout is dropped.
func (s *Session) readPump(room *rooms.Room) error {
	livenessTimeout := s.server.conf.ParseLivenessTimeout()
	extend := func() error {
		s.touch()
		return s.conn.SetReadDeadline(time.Now().Add(livenessTimeout))
	}

	s.conn.SetReadLimit(s.server.conf.MaxMessageBytes)
	if err := extend(); err != nil {
		return fmt.Errorf("set read deadline: %s: %w", err.Error(), ErrTransport)
	}
	s.conn.SetPongHandler(func(string) error {
		return extend()
	})

	for {
		msgType, frame, err := s.conn.ReadMessage()
		if err != nil {
			s.closeOnReadError(err)
			return fmt.Errorf("read: %s: %w", err.Error(), ErrTransport)
		}
		if err := extend(); err != nil {
			return fmt.Errorf("set read deadline: %s: %w", err.Error(), ErrTransport)
		}
		if msgType != websocket.BinaryMessage {
			continue
		}

		if err := s.receive(room, frame); err != nil {
			if errors.Is(err, rooms.ErrRoomClosed) {
				s.close(websocket.CloseGoingAway, reasonRoomClosed)
				return err
			}
			s.logger.Warnf("drop frame: %v", err)
		}
	}
}

func (s *Session) receive(room *rooms.Room, frame []byte) error {
	msgType, err := room.Receive(s, frame)
	if err != nil {
		return err
	}

	if msgType == types.SyncStep2 {
		s.setStatus(types.Synced)
	}
	return nil
}

func (s *Session) closeOnReadError(err error) {
	select {
	case <-s.closing:
		return
	default:
	}

	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		s.close(websocket.CloseMessageTooBig, reasonTooLarge)
	case isTimeout(err):
		s.close(websocket.CloseGoingAway, reasonLiveness)
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		s.close(websocket.CloseNormalClosure, "")
	default:
		s.logger.Debugf("read: %v", err)
		s.close(websocket.CloseAbnormalClosure, "")
	}
}

// writePump writes the queued frames and the pings. It closes the
// connection when the session closes or a write fails.
func (s *Session) writePump() {
	ticker := time.NewTicker(s.server.conf.ParsePingInterval())
	defer func() {
		ticker.Stop()
		if err := s.conn.Close(); err != nil {
			s.logger.Debugf("close connection: %v", err)
		}
	}()

	for {
		select {
		case frame := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				s.close(websocket.CloseAbnormalClosure, "")
				return
			}
			if err := s.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				s.logger.Debugf("write: %v", err)
				s.close(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				s.logger.Debugf("ping: %v", err)
				s.close(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-s.closing:
			if s.closeCode != websocket.CloseAbnormalClosure {
				msg := websocket.FormatCloseMessage(s.closeCode, s.reason)
				_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			}
			return
		}
	}
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

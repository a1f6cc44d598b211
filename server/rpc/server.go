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

// Package rpc provides the transport of docsync. Each client opens a
// WebSocket per document and exchanges the sync protocol frames with the
// room of the document through its session.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/yorkie-team/docsync/internal/validation"
	"github.com/yorkie-team/docsync/pkg/document"
	"github.com/yorkie-team/docsync/pkg/errors"
	"github.com/yorkie-team/docsync/server/backend"
	"github.com/yorkie-team/docsync/server/logging"
)

var (
	// ErrInvalidDocID is returned when the document ID of a request is invalid.
	ErrInvalidDocID = errors.InvalidArgument("invalid document id").WithCode("ErrInvalidDocID")

	// ErrCorruptedSnapshot is returned when the stored snapshot of a document
	// cannot be decoded.
	ErrCorruptedSnapshot = errors.Internal("corrupted snapshot").WithCode("ErrCorruptedSnapshot")

	// ErrServerClosed is returned when a session connects to a closing server.
	ErrServerClosed = errors.Unavailable("server closed").WithCode("ErrServerClosed")
)

// Server serves the sync protocol and the document routes over HTTP.
type Server struct {
	conf       *Config
	backend    *backend.Backend
	router     *mux.Router
	httpServer *http.Server
	upgrader   websocket.Upgrader

	// sessionsMu guards sessions and closed. wg tracks the running
	// sessions; it is only added to while closed is false.
	sessionsMu sync.Mutex
	sessions   map[string]*Session
	closed     bool
	wg         sync.WaitGroup
}

// NewServer creates a new instance of Server.
func NewServer(conf *Config, be *backend.Backend) *Server {
	s := &Server{
		conf:    conf,
		backend: be,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sessions: make(map[string]*Session),
	}

	router := mux.NewRouter()
	router.Use(s.accessLog)
	router.Methods(http.MethodGet).Path("/healthz").HandlerFunc(s.healthz)
	router.Methods(http.MethodGet).Path("/docs/{docID}").HandlerFunc(s.getDocument)
	router.Methods(http.MethodGet).Path("/docs/{docID}/sync").HandlerFunc(s.syncDocument)
	s.router = router

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", conf.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the handler of this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts this server by opening the rpc port.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		logging.DefaultLogger().Error(err)
		return err
	}

	go func() {
		logging.DefaultLogger().Infof("serving RPC on %d", s.conf.Port)
		if err := s.httpServer.Serve(lis); !errors.Is(err, http.ErrServerClosed) {
			logging.DefaultLogger().Error(err)
		}
	}()

	return nil
}

// Shutdown stops accepting connections and closes every session. It waits
// until the sessions are detached from their rooms or ctx is done. If
// graceful is false, in-flight HTTP requests are not waited for.
func (s *Server) Shutdown(ctx context.Context, graceful bool) error {
	s.sessionsMu.Lock()
	s.closed = true
	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.sessionsMu.Unlock()

	if graceful {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			logging.DefaultLogger().Errorf("HTTP server Shutdown: %v", err)
		}
	} else if err := s.httpServer.Close(); err != nil {
		logging.DefaultLogger().Errorf("HTTP server Close: %v", err)
	}

	for _, session := range sessions {
		session.close(websocket.CloseServiceRestart, reasonShutdown)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for %d sessions: %w", len(sessions), ctx.Err())
	}
}

// SessionCount returns the number of connected sessions.
func (s *Server) SessionCount() int {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()

	return len(s.sessions)
}

func (s *Server) register(session *Session) bool {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()

	if s.closed {
		return false
	}
	s.sessions[session.ID()] = session
	s.wg.Add(1)
	return true
}

func (s *Server) unregister(session *Session) {
	s.sessionsMu.Lock()
	delete(s.sessions, session.ID())
	s.sessionsMu.Unlock()

	s.wg.Done()
}

// syncDocument upgrades the request to a WebSocket and serves the session
// until the connection ends.
func (s *Server) syncDocument(w http.ResponseWriter, r *http.Request) {
	docID := mux.Vars(r)["docID"]
	if err := validation.ValidateDocID(docID); err != nil {
		writeError(w, fmt.Errorf("%s: %w", err.Error(), ErrInvalidDocID))
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.DefaultLogger().Warnf("upgrade %s: %v", docID, err)
		return
	}

	session := newSession(s, conn, docID)
	if !s.register(session) {
		msg := websocket.FormatCloseMessage(websocket.CloseServiceRestart, ErrServerClosed.Error())
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	defer s.unregister(session)

	// the session outlives the request, so it must not inherit its context.
	ctx := logging.With(context.Background(), session.logger)
	if err := session.serve(ctx); err != nil && !errors.Is(err, ErrTransport) {
		session.logger.Warnf("session ended: %v", err)
	}
}

type documentResponse struct {
	DocID     string    `json:"docID"`
	Text      string    `json:"text"`
	UpdatedAt time.Time `json:"updatedAt"`
	Resident  bool      `json:"resident"`
	Sessions  int       `json:"sessions"`
}

// getDocument returns the current text of a document, from its room if it
// is resident or from its stored snapshot otherwise.
func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	docID := mux.Vars(r)["docID"]
	if err := validation.ValidateDocID(docID); err != nil {
		writeError(w, fmt.Errorf("%s: %w", err.Error(), ErrInvalidDocID))
		return
	}

	if room, ok := s.backend.Rooms.Room(docID); ok {
		resp := &documentResponse{
			DocID:     docID,
			Text:      room.Text(),
			UpdatedAt: room.UpdatedAt(),
			Resident:  true,
			Sessions:  room.Len(),
		}
		if resp.UpdatedAt.IsZero() {
			if info, err := s.backend.Snapshots.Info(r.Context(), docID); err == nil {
				resp.UpdatedAt = info.UpdatedAt
			}
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	info, err := s.backend.Snapshots.Info(r.Context(), docID)
	if err != nil {
		writeError(w, err)
		return
	}

	doc, err := document.FromSnapshot(docID, info.Snapshot)
	if err != nil {
		writeError(w, fmt.Errorf("%s: %s: %w", docID, err.Error(), ErrCorruptedSnapshot))
		return
	}

	writeJSON(w, http.StatusOK, &documentResponse{
		DocID:     docID,
		Text:      doc.String(),
		UpdatedAt: info.UpdatedAt,
	})
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"rooms":    s.backend.Rooms.Len(),
		"sessions": s.SessionCount(),
	})
}

// accessLog logs every request and counts it by route and status code.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if template, err := current.GetPathTemplate(); err == nil {
				route = template
			}
		}
		s.backend.Metrics.AddServerHandledCounter(r.Method, route, strconv.Itoa(m.Code))

		logging.DefaultLogger().Infof(
			"HTTP %s %s: %d, %d bytes, %s",
			r.Method,
			r.URL.Path,
			m.Code,
			m.Written,
			m.Duration,
		)
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errors.StatusOf(err).HTTPStatus(), &errorResponse{
		Code:    errors.CodeOf(err),
		Message: err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.DefaultLogger().Warnf("write response: %v", err)
	}
}

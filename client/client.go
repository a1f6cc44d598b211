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

// Package client provides the client of docsync. A client attaches local
// replicas of documents to the server and keeps them in sync with the other
// clients of the same documents.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/yorkie-team/docsync/pkg/document"
)

var (
	// ErrClientClosed occurs when the client has been closed.
	ErrClientClosed = errors.New("client is closed")

	// ErrDocumentAlreadyAttached occurs when the document is attached twice.
	ErrDocumentAlreadyAttached = errors.New("document is already attached")

	// ErrDocumentNotAttached occurs when the document is not attached.
	ErrDocumentNotAttached = errors.New("document is not attached")
)

const defaultHandshakeTimeout = 10 * time.Second

// Client is a normal client that can communicate with the server. It holds
// an attachment for each document it syncs.
type Client struct {
	rpcAddr string
	key     string
	logger  *zap.Logger
	dialer  *websocket.Dialer

	mu          sync.Mutex
	attachments map[string]*Attachment
	closed      bool
}

// New creates an instance of Client. rpcAddr is the address of the server
// such as "localhost:8080" or "http://localhost:8080".
func New(rpcAddr string, opts ...Option) (*Client, error) {
	var options Options
	for _, opt := range opts {
		opt(&options)
	}

	key := options.Key
	if key == "" {
		key = xid.New().String()
	}

	handshakeTimeout := options.HandshakeTimeout
	if handshakeTimeout == 0 {
		handshakeTimeout = defaultHandshakeTimeout
	}

	logger := options.Logger
	if logger == nil {
		l, err := zap.NewProduction()
		if err != nil {
			return nil, fmt.Errorf("create logger: %w", err)
		}
		logger = l
	}

	return &Client{
		rpcAddr: rpcAddr,
		key:     key,
		logger:  logger.Named(key),
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		attachments: make(map[string]*Attachment),
	}, nil
}

// Key returns the key of this client.
func (c *Client) Key() string {
	return c.key
}

// Attach connects the given document to its room on the server and waits
// until both sides have exchanged what the other is missing. The document
// must not be used directly afterwards; use the returned attachment.
func (c *Client) Attach(ctx context.Context, doc *document.Document) (*Attachment, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClientClosed
	}
	if _, ok := c.attachments[doc.Key()]; ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", doc.Key(), ErrDocumentAlreadyAttached)
	}
	c.mu.Unlock()

	endpoint, err := syncURL(c.rpcAddr, doc.Key())
	if err != nil {
		return nil, err
	}

	conn, resp, err := c.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", endpoint, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	attachment := newAttachment(conn, doc, c.logger.With(zap.String("doc", doc.Key())))
	if err := attachment.start(); err != nil {
		_ = attachment.close()
		return nil, err
	}
	if err := attachment.WaitSynced(ctx); err != nil {
		_ = attachment.close()
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		_ = attachment.close()
		return nil, ErrClientClosed
	}
	if _, ok := c.attachments[doc.Key()]; ok {
		_ = attachment.close()
		return nil, fmt.Errorf("%s: %w", doc.Key(), ErrDocumentAlreadyAttached)
	}
	c.attachments[doc.Key()] = attachment

	return attachment, nil
}

// Detach closes the connection of the given attachment.
func (c *Client) Detach(attachment *Attachment) error {
	c.mu.Lock()
	if c.attachments[attachment.DocID()] != attachment {
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", attachment.DocID(), ErrDocumentNotAttached)
	}
	delete(c.attachments, attachment.DocID())
	c.mu.Unlock()

	return attachment.close()
}

// Close detaches every attachment of this client.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	attachments := make([]*Attachment, 0, len(c.attachments))
	for _, attachment := range c.attachments {
		attachments = append(attachments, attachment)
	}
	c.attachments = make(map[string]*Attachment)
	c.mu.Unlock()

	var errs []error
	for _, attachment := range attachments {
		if err := attachment.close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// syncURL returns the WebSocket URL of the sync route of the document.
func syncURL(rpcAddr, docID string) (string, error) {
	if !strings.Contains(rpcAddr, "://") {
		rpcAddr = "ws://" + rpcAddr
	}

	u, err := url.Parse(rpcAddr)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", rpcAddr, err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %s", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/docs/" + url.PathEscape(docID) + "/sync"

	return u.String(), nil
}

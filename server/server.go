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

// Package server provides the docsync server which is the main entry point
// of the docsync system. The server is responsible for starting the RPC
// server, the profiling server and the backend that holds the rooms.
package server

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"

	"github.com/yorkie-team/docsync/server/backend"
	"github.com/yorkie-team/docsync/server/logging"
	"github.com/yorkie-team/docsync/server/profiling"
	"github.com/yorkie-team/docsync/server/profiling/prometheus"
	"github.com/yorkie-team/docsync/server/rpc"
)

// DocSync is a server of docsync.
// The server accepts sessions of clients, merges their updates in the room
// of each document and saves the snapshots of the rooms.
type DocSync struct {
	lock gosync.Mutex

	conf            *Config
	backend         *backend.Backend
	rpcServer       *rpc.Server
	profilingServer *profiling.Server

	shutdown   bool
	shutdownCh chan struct{}
}

// New creates a new instance of DocSync.
func New(conf *Config) (*DocSync, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	metrics, err := prometheus.NewMetrics()
	if err != nil {
		return nil, err
	}

	be, err := backend.New(
		conf.Backend,
		conf.Mongo,
		conf.Redis,
		conf.Postgres,
		conf.SQLite,
		metrics,
	)
	if err != nil {
		return nil, err
	}

	var profilingServer *profiling.Server
	if conf.Profiling != nil {
		profilingServer = profiling.NewServer(conf.Profiling, metrics)
	}

	return &DocSync{
		conf:            conf,
		backend:         be,
		rpcServer:       rpc.NewServer(conf.RPC, be),
		profilingServer: profilingServer,
		shutdownCh:      make(chan struct{}),
	}, nil
}

// Start starts the server by opening the rpc port.
func (d *DocSync) Start() error {
	d.lock.Lock()
	defer d.lock.Unlock()

	if d.profilingServer != nil {
		if err := d.profilingServer.Start(); err != nil {
			return err
		}
	}

	if err := d.rpcServer.Start(); err != nil {
		return err
	}

	logging.DefaultLogger().Infof("docsync started: rpc: %s", d.conf.RPCAddr())
	return nil
}

// Shutdown shuts down this docsync server. Sessions are closed first so
// that the last detach of each room flushes its snapshot, then the rooms
// left are flushed by the backend.
func (d *DocSync) Shutdown(ctx context.Context, graceful bool) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.shutdown {
		return nil
	}

	var errs []error
	if err := d.rpcServer.Shutdown(ctx, graceful); err != nil {
		errs = append(errs, fmt.Errorf("shutdown rpc server: %w", err))
	}

	if err := d.backend.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown backend: %w", err))
	}

	if d.profilingServer != nil {
		d.profilingServer.Shutdown(ctx, graceful)
	}

	close(d.shutdownCh)
	d.shutdown = true

	return errors.Join(errs...)
}

// ShutdownCh returns the shutdown channel.
func (d *DocSync) ShutdownCh() <-chan struct{} {
	return d.shutdownCh
}

// RPCAddr returns the address of the RPC.
func (d *DocSync) RPCAddr() string {
	return d.conf.RPCAddr()
}

// Backend returns the backend of this server.
func (d *DocSync) Backend() *backend.Backend {
	return d.backend
}

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

// Package backend provides the backend of docsync. It is responsible for
// the storage of snapshots, the rooms of documents and the goroutines that
// run on behalf of them.
package backend

import (
	"context"
	"fmt"
	"os"

	"github.com/yorkie-team/docsync/server/backend/background"
	"github.com/yorkie-team/docsync/server/backend/database"
	memdb "github.com/yorkie-team/docsync/server/backend/database/memory"
	"github.com/yorkie-team/docsync/server/backend/database/mongo"
	"github.com/yorkie-team/docsync/server/backend/database/postgres"
	"github.com/yorkie-team/docsync/server/backend/database/redis"
	"github.com/yorkie-team/docsync/server/backend/database/sqlite"
	"github.com/yorkie-team/docsync/server/logging"
	"github.com/yorkie-team/docsync/server/profiling/prometheus"
	"github.com/yorkie-team/docsync/server/rooms"
	"github.com/yorkie-team/docsync/server/snapshots"
)

// Backend manages the database, the rooms and the background routines of
// docsync.
type Backend struct {
	Config *Config

	// DB is the database instance.
	DB database.Database
	// Snapshots loads and saves the snapshots of documents.
	Snapshots *snapshots.Gateway
	// Rooms owns the rooms of the documents being edited.
	Rooms *rooms.Manager

	// Background is used to manage background tasks.
	Background *background.Background
	// Metrics is used to expose metrics.
	Metrics *prometheus.Metrics
}

// New creates a new instance of Backend. The first non-nil storage
// configuration among mongo, redis, postgres and sqlite selects the
// database; without any, snapshots are kept in memory.
func New(
	conf *Config,
	mongoConf *mongo.Config,
	redisConf *redis.Config,
	postgresConf *postgres.Config,
	sqliteConf *sqlite.Config,
	metrics *prometheus.Metrics,
) (*Backend, error) {
	// 01. Resolve the hostname used by metrics.
	if conf.Hostname == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("os.Hostname: %w", err)
		}
		conf.Hostname = hostname
	}

	// 02. Open the database.
	db, err := OpenDatabase(mongoConf, redisConf, postgresConf, sqliteConf)
	if err != nil {
		return nil, err
	}

	// 03. Create the persistence gateway, the background and the rooms.
	gateway := snapshots.New(db)
	bg := background.New(metrics)
	roomManager := rooms.NewManager(&rooms.Options{
		FlushDebounce: conf.ParseFlushDebounce(),
		FlushTimeout:  conf.ParseFlushTimeout(),
		FlushRetries:  conf.FlushRetries,
		Hostname:      conf.Hostname,
	}, gateway, bg, metrics)

	logging.DefaultLogger().Infof(
		"backend created: hostname: %s, db: %T, flush debounce: %s",
		conf.Hostname,
		db,
		conf.FlushDebounce,
	)

	return &Backend{
		Config:     conf,
		DB:         db,
		Snapshots:  gateway,
		Rooms:      roomManager,
		Background: bg,
		Metrics:    metrics,
	}, nil
}

// OpenDatabase opens the database selected by the given configurations in
// the same order of preference as New.
func OpenDatabase(
	mongoConf *mongo.Config,
	redisConf *redis.Config,
	postgresConf *postgres.Config,
	sqliteConf *sqlite.Config,
) (database.Database, error) {
	switch {
	case mongoConf != nil:
		client, err := mongo.Dial(mongoConf)
		if err != nil {
			return nil, err
		}
		return client, nil
	case redisConf != nil:
		client, err := redis.Dial(redisConf)
		if err != nil {
			return nil, err
		}
		return client, nil
	case postgresConf != nil:
		client, err := postgres.Dial(postgresConf)
		if err != nil {
			return nil, err
		}
		return client, nil
	case sqliteConf != nil:
		db, err := sqlite.Open(sqliteConf)
		if err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := memdb.New()
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Shutdown flushes and destroys every resident room, waits for the
// background routines and closes the database. The database is closed even
// if a flush fails.
func (b *Backend) Shutdown(ctx context.Context) error {
	flushErr := b.Rooms.Close(ctx)
	if flushErr != nil {
		logging.DefaultLogger().Errorf("flush rooms on shutdown: %v", flushErr)
	}

	b.Background.Close()

	if err := b.DB.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	logging.DefaultLogger().Infof("backend stopped: hostname: %s", b.Config.Hostname)
	return flushErr
}

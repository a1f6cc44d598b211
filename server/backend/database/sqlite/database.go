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

// Package sqlite implements the database interface using an embedded SQLite
// database file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	gotime "time"

	// registers the "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/yorkie-team/docsync/server/backend/database"
	"github.com/yorkie-team/docsync/server/logging"
)

const createTable = `CREATE TABLE IF NOT EXISTS snapshots (
	doc_id     TEXT PRIMARY KEY,
	snapshot   BLOB NOT NULL,
	size       INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
)`

// DB is a database stored in a single SQLite file.
type DB struct {
	db *sql.DB
}

// Open opens the database file of the given configuration, creating it if it
// does not exist.
func Open(conf *Config) (*DB, error) {
	busyTimeout, err := gotime.ParseDuration(conf.BusyTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse busy timeout: %w", err)
	}

	db, err := sql.Open("sqlite", conf.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", conf.Path, err)
	}

	// Pragmas apply per connection, so a single connection is shared.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout.Milliseconds()),
		"PRAGMA synchronous=NORMAL",
		createTable,
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("prepare sqlite %s: %w", conf.Path, err)
		}
	}

	logging.DefaultLogger().Infof("SQLite opened, Path: %s", conf.Path)

	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	if err := d.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}

// FindSnapshotInfo returns the snapshot of the given document.
func (d *DB) FindSnapshotInfo(ctx context.Context, docID string) (*database.SnapshotInfo, error) {
	var snapshot []byte
	var updatedAt int64
	err := d.db.QueryRowContext(
		ctx,
		"SELECT snapshot, updated_at FROM snapshots WHERE doc_id = ?",
		docID,
	).Scan(&snapshot, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", docID, database.ErrSnapshotNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find snapshot of %s: %w", docID, err)
	}

	return database.NewSnapshotInfo(docID, snapshot, gotime.Unix(0, updatedAt)), nil
}

// UpdateSnapshotInfo stores the given snapshot of the document.
func (d *DB) UpdateSnapshotInfo(
	ctx context.Context,
	docID string,
	snapshot []byte,
	updatedAt gotime.Time,
) error {
	if snapshot == nil {
		snapshot = []byte{}
	}

	if _, err := d.db.ExecContext(
		ctx,
		`INSERT INTO snapshots (doc_id, snapshot, size, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			snapshot = excluded.snapshot,
			size = excluded.size,
			updated_at = excluded.updated_at`,
		docID, snapshot, len(snapshot), updatedAt.UnixNano(),
	); err != nil {
		return fmt.Errorf("update snapshot of %s: %w", docID, err)
	}

	return nil
}

// ListSnapshotInfos returns the snapshots of every document.
func (d *DB) ListSnapshotInfos(ctx context.Context) ([]*database.SnapshotInfo, error) {
	rows, err := d.db.QueryContext(
		ctx,
		"SELECT doc_id, size, updated_at FROM snapshots ORDER BY doc_id",
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var infos []*database.SnapshotInfo
	for rows.Next() {
		info := &database.SnapshotInfo{}
		var updatedAt int64
		if err := rows.Scan(&info.DocID, &info.Size, &updatedAt); err != nil {
			return nil, fmt.Errorf("list snapshots: %w", err)
		}
		info.UpdatedAt = gotime.Unix(0, updatedAt)
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	return infos, nil
}

// DeleteSnapshotInfo deletes the snapshot of the given document.
func (d *DB) DeleteSnapshotInfo(ctx context.Context, docID string) error {
	result, err := d.db.ExecContext(ctx, "DELETE FROM snapshots WHERE doc_id = ?", docID)
	if err != nil {
		return fmt.Errorf("delete snapshot of %s: %w", docID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete snapshot of %s: %w", docID, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", docID, database.ErrSnapshotNotFound)
	}

	return nil
}

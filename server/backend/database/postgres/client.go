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

// Package postgres implements the database interface using PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	gotime "time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yorkie-team/docsync/server/backend/database"
	"github.com/yorkie-team/docsync/server/logging"
)

// Client is a client that connects to PostgreSQL and reads or saves
// snapshots.
type Client struct {
	pool  *pgxpool.Pool
	table string
}

// Dial creates an instance of Client, pings the server and creates the table
// of snapshots if it does not exist.
func Dial(conf *Config) (*Client, error) {
	timeout, err := gotime.ParseDuration(conf.ConnectionTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse connection timeout: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, conf.ConnectionURI)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		doc_id     TEXT PRIMARY KEY,
		snapshot   BYTEA NOT NULL,
		size       INTEGER NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`, pgx.Identifier{conf.Table}.Sanitize())); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create table %s: %w", conf.Table, err)
	}

	logging.DefaultLogger().Infof("PostgreSQL connected, Table: %s", conf.Table)

	return &Client{
		pool:  pool,
		table: pgx.Identifier{conf.Table}.Sanitize(),
	}, nil
}

// Close closes the connections of this client.
func (c *Client) Close() error {
	c.pool.Close()
	return nil
}

// DropTable drops the table of snapshots. It is used by tests.
func (c *Client) DropTable(ctx context.Context) error {
	if _, err := c.pool.Exec(ctx, "DROP TABLE IF EXISTS "+c.table); err != nil {
		return fmt.Errorf("drop table %s: %w", c.table, err)
	}
	return nil
}

// FindSnapshotInfo returns the snapshot of the given document.
func (c *Client) FindSnapshotInfo(ctx context.Context, docID string) (*database.SnapshotInfo, error) {
	var snapshot []byte
	var updatedAt gotime.Time
	err := c.pool.QueryRow(
		ctx,
		"SELECT snapshot, updated_at FROM "+c.table+" WHERE doc_id = $1",
		docID,
	).Scan(&snapshot, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", docID, database.ErrSnapshotNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find snapshot of %s: %w", docID, err)
	}

	return database.NewSnapshotInfo(docID, snapshot, updatedAt), nil
}

// UpdateSnapshotInfo stores the given snapshot of the document.
func (c *Client) UpdateSnapshotInfo(
	ctx context.Context,
	docID string,
	snapshot []byte,
	updatedAt gotime.Time,
) error {
	if snapshot == nil {
		snapshot = []byte{}
	}

	if _, err := c.pool.Exec(
		ctx,
		`INSERT INTO `+c.table+` (doc_id, snapshot, size, updated_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (doc_id) DO UPDATE SET
			snapshot = EXCLUDED.snapshot,
			size = EXCLUDED.size,
			updated_at = EXCLUDED.updated_at`,
		docID, snapshot, len(snapshot), updatedAt,
	); err != nil {
		return fmt.Errorf("update snapshot of %s: %w", docID, err)
	}

	return nil
}

// ListSnapshotInfos returns the snapshots of every document.
func (c *Client) ListSnapshotInfos(ctx context.Context) ([]*database.SnapshotInfo, error) {
	rows, err := c.pool.Query(
		ctx,
		"SELECT doc_id, size, updated_at FROM "+c.table+" ORDER BY doc_id",
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var infos []*database.SnapshotInfo
	for rows.Next() {
		info := &database.SnapshotInfo{}
		if err := rows.Scan(&info.DocID, &info.Size, &info.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list snapshots: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	return infos, nil
}

// DeleteSnapshotInfo deletes the snapshot of the given document.
func (c *Client) DeleteSnapshotInfo(ctx context.Context, docID string) error {
	tag, err := c.pool.Exec(ctx, "DELETE FROM "+c.table+" WHERE doc_id = $1", docID)
	if err != nil {
		return fmt.Errorf("delete snapshot of %s: %w", docID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", docID, database.ErrSnapshotNotFound)
	}

	return nil
}

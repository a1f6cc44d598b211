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

// Package redis implements the database interface using Redis. The snapshot
// of each document is stored in a hash, and the IDs of the documents are
// kept in a set for listing.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	gotime "time"

	"github.com/redis/go-redis/v9"

	"github.com/yorkie-team/docsync/server/backend/database"
	"github.com/yorkie-team/docsync/server/logging"
)

const (
	fieldSnapshot  = "snapshot"
	fieldSize      = "size"
	fieldUpdatedAt = "updated_at"
)

// Client is a client that connects to Redis and reads or saves snapshots.
type Client struct {
	client *redis.Client
	prefix string
}

// Dial creates an instance of Client and pings the given Redis.
func Dial(conf *Config) (*Client, error) {
	opts, err := redis.ParseURL(conf.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*gotime.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	logging.DefaultLogger().Infof("Redis connected, Addr: %s, DB: %d", opts.Addr, opts.DB)

	return &Client{
		client: client,
		prefix: conf.KeyPrefix,
	}, nil
}

// Close closes the connection of this client.
func (c *Client) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("close redis client: %w", err)
	}
	return nil
}

func (c *Client) snapshotKey(docID string) string {
	return c.prefix + "snapshot:" + docID
}

func (c *Client) indexKey() string {
	return c.prefix + "snapshots"
}

// FindSnapshotInfo returns the snapshot of the given document.
func (c *Client) FindSnapshotInfo(ctx context.Context, docID string) (*database.SnapshotInfo, error) {
	values, err := c.client.HGetAll(ctx, c.snapshotKey(docID)).Result()
	if err != nil {
		return nil, fmt.Errorf("find snapshot of %s: %w", docID, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s: %w", docID, database.ErrSnapshotNotFound)
	}

	updatedAt, err := parseUpdatedAt(values[fieldUpdatedAt])
	if err != nil {
		return nil, fmt.Errorf("find snapshot of %s: %w", docID, err)
	}

	return database.NewSnapshotInfo(docID, []byte(values[fieldSnapshot]), updatedAt), nil
}

// UpdateSnapshotInfo stores the given snapshot of the document.
func (c *Client) UpdateSnapshotInfo(
	ctx context.Context,
	docID string,
	snapshot []byte,
	updatedAt gotime.Time,
) error {
	if _, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, c.snapshotKey(docID),
			fieldSnapshot, snapshot,
			fieldSize, len(snapshot),
			fieldUpdatedAt, updatedAt.UnixNano(),
		)
		pipe.SAdd(ctx, c.indexKey(), docID)
		return nil
	}); err != nil {
		return fmt.Errorf("update snapshot of %s: %w", docID, err)
	}

	return nil
}

// ListSnapshotInfos returns the snapshots of every document.
func (c *Client) ListSnapshotInfos(ctx context.Context) ([]*database.SnapshotInfo, error) {
	docIDs, err := c.client.SMembers(ctx, c.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	sort.Strings(docIDs)

	cmds := make([]*redis.SliceCmd, len(docIDs))
	if _, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, docID := range docIDs {
			cmds[i] = pipe.HMGet(ctx, c.snapshotKey(docID), fieldSize, fieldUpdatedAt)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	var infos []*database.SnapshotInfo
	for i, cmd := range cmds {
		values := cmd.Val()
		if len(values) != 2 || values[0] == nil || values[1] == nil {
			continue
		}

		size, err := strconv.Atoi(fmt.Sprint(values[0]))
		if err != nil {
			return nil, fmt.Errorf("list snapshots: size of %s: %w", docIDs[i], err)
		}
		updatedAt, err := parseUpdatedAt(fmt.Sprint(values[1]))
		if err != nil {
			return nil, fmt.Errorf("list snapshots: %w", err)
		}

		infos = append(infos, &database.SnapshotInfo{
			DocID:     docIDs[i],
			Size:      size,
			UpdatedAt: updatedAt,
		})
	}

	return infos, nil
}

// DeleteSnapshotInfo deletes the snapshot of the given document.
func (c *Client) DeleteSnapshotInfo(ctx context.Context, docID string) error {
	var deleted *redis.IntCmd
	if _, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, c.snapshotKey(docID))
		pipe.SRem(ctx, c.indexKey(), docID)
		return nil
	}); err != nil {
		return fmt.Errorf("delete snapshot of %s: %w", docID, err)
	}

	if deleted.Val() == 0 {
		return fmt.Errorf("%s: %w", docID, database.ErrSnapshotNotFound)
	}
	return nil
}

func parseUpdatedAt(value string) (gotime.Time, error) {
	if value == "" {
		return gotime.Time{}, errors.New("missing updated_at")
	}

	nanos, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return gotime.Time{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return gotime.Unix(0, nanos), nil
}

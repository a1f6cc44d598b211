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

// Package mongo implements the database interface using MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	gotime "time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/yorkie-team/docsync/server/backend/database"
	"github.com/yorkie-team/docsync/server/logging"
)

// Client is a client that connects to Mongo DB and reads or saves snapshots.
type Client struct {
	config *Config
	client *mongo.Client
}

// Dial creates an instance of Client and dials the given MongoDB.
func Dial(conf *Config) (*Client, error) {
	ctx, cancel := context.WithTimeout(
		context.Background(),
		conf.ParseConnectionTimeout(),
	)
	defer cancel()

	client, err := mongo.Connect(
		ctx,
		options.Client().ApplyURI(conf.ConnectionURI),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	pingTimeout := conf.ParsePingTimeout()
	ctxPing, cancelPing := context.WithTimeout(ctx, pingTimeout)
	defer cancelPing()

	if err := client.Ping(ctxPing, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	if err := ensureIndexes(ctx, client.Database(conf.Database)); err != nil {
		return nil, err
	}

	logging.DefaultLogger().Infof("MongoDB connected, URI: %s, DB: %s", conf.ConnectionURI, conf.Database)

	return &Client{
		config: conf,
		client: client,
	}, nil
}

// Close all resources of this client.
func (c *Client) Close() error {
	if err := c.client.Disconnect(context.Background()); err != nil {
		return fmt.Errorf("close mongo client: %w", err)
	}

	return nil
}

// DropDatabase drops the database of this client. It is used by tests.
func (c *Client) DropDatabase(ctx context.Context) error {
	if err := c.client.Database(c.config.Database).Drop(ctx); err != nil {
		return fmt.Errorf("drop database %s: %w", c.config.Database, err)
	}
	return nil
}

// FindSnapshotInfo returns the snapshot of the given document.
func (c *Client) FindSnapshotInfo(ctx context.Context, docID string) (*database.SnapshotInfo, error) {
	result := c.collection(ColSnapshots).FindOne(ctx, bson.M{
		"_id": docID,
	})

	info := &database.SnapshotInfo{}
	if err := result.Decode(info); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", docID, database.ErrSnapshotNotFound)
		}
		return nil, fmt.Errorf("find snapshot of %s: %w", docID, err)
	}

	return info, nil
}

// UpdateSnapshotInfo stores the given snapshot of the document.
func (c *Client) UpdateSnapshotInfo(
	ctx context.Context,
	docID string,
	snapshot []byte,
	updatedAt gotime.Time,
) error {
	if _, err := c.collection(ColSnapshots).UpdateOne(ctx, bson.M{
		"_id": docID,
	}, bson.M{
		"$set": bson.M{
			"snapshot":   snapshot,
			"size":       len(snapshot),
			"updated_at": updatedAt,
		},
	}, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("update snapshot of %s: %w", docID, err)
	}

	return nil
}

// ListSnapshotInfos returns the snapshots of every document.
func (c *Client) ListSnapshotInfos(ctx context.Context) ([]*database.SnapshotInfo, error) {
	cursor, err := c.collection(ColSnapshots).Find(
		ctx,
		bson.M{},
		options.Find().
			SetSort(bson.D{{Key: "_id", Value: 1}}).
			SetProjection(bson.M{"snapshot": 0}),
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	var infos []*database.SnapshotInfo
	if err := cursor.All(ctx, &infos); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	return infos, nil
}

// DeleteSnapshotInfo deletes the snapshot of the given document.
func (c *Client) DeleteSnapshotInfo(ctx context.Context, docID string) error {
	result, err := c.collection(ColSnapshots).DeleteOne(ctx, bson.M{
		"_id": docID,
	})
	if err != nil {
		return fmt.Errorf("delete snapshot of %s: %w", docID, err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", docID, database.ErrSnapshotNotFound)
	}

	return nil
}

func (c *Client) collection(name string) *mongo.Collection {
	return c.client.Database(c.config.Database).Collection(name)
}

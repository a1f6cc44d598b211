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

// Package snapshots provides the persistence gateway of documents. It loads
// the latest snapshot of a document when its room is created and saves the
// snapshot when the room flushes.
package snapshots

import (
	"context"
	"fmt"
	gotime "time"

	"github.com/yorkie-team/docsync/pkg/errors"
	"github.com/yorkie-team/docsync/server/backend/database"
)

var (
	// ErrPersistence is returned when the storage of snapshots fails.
	ErrPersistence = errors.Unavailable("persistence unavailable").WithCode("ErrPersistence")
)

// Gateway loads and saves the snapshots of documents.
type Gateway struct {
	db database.Database
}

// New creates a new instance of Gateway.
func New(db database.Database) *Gateway {
	return &Gateway{db: db}
}

// Load returns the latest snapshot of the given document. It returns nil
// without an error if the document has never been saved.
func (g *Gateway) Load(ctx context.Context, docID string) ([]byte, error) {
	info, err := g.db.FindSnapshotInfo(ctx, docID)
	if err != nil {
		if errors.Is(err, database.ErrSnapshotNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load snapshot of %s: %s: %w", docID, err.Error(), ErrPersistence)
	}

	return info.Snapshot, nil
}

// Save stores the given snapshot of the document with its modification time.
// Saving the same snapshot again leaves the storage as it is apart from the
// time.
func (g *Gateway) Save(ctx context.Context, docID string, snapshot []byte, updatedAt gotime.Time) error {
	if err := g.db.UpdateSnapshotInfo(ctx, docID, snapshot, updatedAt); err != nil {
		return fmt.Errorf("save snapshot of %s: %s: %w", docID, err.Error(), ErrPersistence)
	}

	return nil
}

// Info returns the stored snapshot of the given document. It returns
// database.ErrSnapshotNotFound if the document has never been saved.
func (g *Gateway) Info(ctx context.Context, docID string) (*database.SnapshotInfo, error) {
	info, err := g.db.FindSnapshotInfo(ctx, docID)
	if err != nil {
		if errors.Is(err, database.ErrSnapshotNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("find snapshot of %s: %s: %w", docID, err.Error(), ErrPersistence)
	}

	return info, nil
}

// List returns the stored snapshots without their bytes.
func (g *Gateway) List(ctx context.Context) ([]*database.SnapshotInfo, error) {
	infos, err := g.db.ListSnapshotInfos(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %s: %w", err.Error(), ErrPersistence)
	}

	return infos, nil
}

// Delete removes the stored snapshot of the given document.
func (g *Gateway) Delete(ctx context.Context, docID string) error {
	if err := g.db.DeleteSnapshotInfo(ctx, docID); err != nil {
		if errors.Is(err, database.ErrSnapshotNotFound) {
			return err
		}
		return fmt.Errorf("delete snapshot of %s: %s: %w", docID, err.Error(), ErrPersistence)
	}

	return nil
}

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

// Package database provides the database interface for the snapshots of
// documents.
package database

import (
	"context"
	gotime "time"

	"github.com/yorkie-team/docsync/pkg/errors"
)

var (
	// ErrSnapshotNotFound is returned when the snapshot could not be found.
	ErrSnapshotNotFound = errors.NotFound("snapshot not found").WithCode("ErrSnapshotNotFound")
)

// Database represents the storage of the snapshots of documents. Only the
// latest snapshot of each document is kept.
type Database interface {
	// Close closes the database.
	Close() error

	// FindSnapshotInfo returns the snapshot of the given document. It returns
	// ErrSnapshotNotFound if the document has no snapshot.
	FindSnapshotInfo(ctx context.Context, docID string) (*SnapshotInfo, error)

	// UpdateSnapshotInfo stores the given snapshot of the document, replacing
	// the previous one if it exists.
	UpdateSnapshotInfo(
		ctx context.Context,
		docID string,
		snapshot []byte,
		updatedAt gotime.Time,
	) error

	// ListSnapshotInfos returns the snapshots of every document sorted by the
	// document ID. The bytes of the snapshots are not loaded.
	ListSnapshotInfos(ctx context.Context) ([]*SnapshotInfo, error)

	// DeleteSnapshotInfo deletes the snapshot of the given document. It
	// returns ErrSnapshotNotFound if the document has no snapshot.
	DeleteSnapshotInfo(ctx context.Context, docID string) error
}

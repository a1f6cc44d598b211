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

package database

import (
	gotime "time"
)

// SnapshotInfo is a structure representing information of the snapshot.
type SnapshotInfo struct {
	// DocID is the ID of the document which the snapshot belongs to.
	DocID string `bson:"_id"`

	// Snapshot is the snapshot of the document.
	Snapshot []byte `bson:"snapshot"`

	// Size is the length of the snapshot in bytes.
	Size int `bson:"size"`

	// UpdatedAt is the time when the snapshot was last stored.
	UpdatedAt gotime.Time `bson:"updated_at"`
}

// NewSnapshotInfo creates a new instance of SnapshotInfo.
func NewSnapshotInfo(docID string, snapshot []byte, updatedAt gotime.Time) *SnapshotInfo {
	return &SnapshotInfo{
		DocID:     docID,
		Snapshot:  snapshot,
		Size:      len(snapshot),
		UpdatedAt: updatedAt,
	}
}

// DeepCopy returns a deep copy of the SnapshotInfo.
func (i *SnapshotInfo) DeepCopy() *SnapshotInfo {
	if i == nil {
		return nil
	}

	var snapshot []byte
	if i.Snapshot != nil {
		snapshot = make([]byte, len(i.Snapshot))
		copy(snapshot, i.Snapshot)
	}

	return &SnapshotInfo{
		DocID:     i.DocID,
		Snapshot:  snapshot,
		Size:      i.Size,
		UpdatedAt: i.UpdatedAt,
	}
}

// WithoutSnapshot returns a copy of the SnapshotInfo without the bytes of the
// snapshot.
func (i *SnapshotInfo) WithoutSnapshot() *SnapshotInfo {
	return &SnapshotInfo{
		DocID:     i.DocID,
		Size:      i.Size,
		UpdatedAt: i.UpdatedAt,
	}
}

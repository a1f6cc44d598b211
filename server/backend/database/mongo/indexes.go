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

package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	// ColSnapshots represents the snapshots collection in the database.
	ColSnapshots = "snapshots"
)

var idxSnapshots = []mongo.IndexModel{{
	Keys: bson.D{{Key: "updated_at", Value: int32(-1)}},
}}

func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection(ColSnapshots).Indexes().CreateMany(
		ctx,
		idxSnapshots,
	); err != nil {
		return fmt.Errorf("create indexes of %s: %w", ColSnapshots, err)
	}

	return nil
}

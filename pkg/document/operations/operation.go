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

// Package operations implements the operations that can be executed on the
// document.
package operations

import (
	"github.com/yorkie-team/docsync/pkg/document/crdt"
	"github.com/yorkie-team/docsync/pkg/document/time"
)

// Operation represents an operation to be executed on a document.
type Operation interface {
	// Execute executes this operation on the given text.
	Execute(text *crdt.RGA) error

	// ExecutedAt returns execution time of this operation.
	ExecutedAt() time.Ticket

	// Dependencies returns the IDs of the nodes that must exist before this
	// operation can be executed.
	Dependencies() []time.Ticket

	// CreatedIDs returns the IDs of the nodes created by this operation.
	CreatedIDs() []time.Ticket
}

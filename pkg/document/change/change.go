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

// Package change provides the implementation of Change. Change is a set of
// operations that can be applied to a document at once.
package change

import (
	"github.com/yorkie-team/docsync/pkg/document/crdt"
	"github.com/yorkie-team/docsync/pkg/document/operations"
	"github.com/yorkie-team/docsync/pkg/document/time"
)

// Change represents a unit of modification in the document.
type Change struct {
	// id is the unique identifier of the change.
	id ID

	// operations represent a series of user edits.
	operations []operations.Operation
}

// New creates a new instance of Change.
func New(id ID, ops []operations.Operation) *Change {
	return &Change{
		id:         id,
		operations: ops,
	}
}

// Execute applies this change to the given text.
func (c *Change) Execute(text *crdt.RGA) error {
	for _, op := range c.operations {
		if err := op.Execute(text); err != nil {
			return err
		}
	}
	return nil
}

// ID returns the ID of this change.
func (c *Change) ID() ID {
	return c.id
}

// Operations returns the operations of this change.
func (c *Change) Operations() []operations.Operation {
	return c.operations
}

// Dependencies returns the IDs of the nodes this change refers to that are
// not created by the change itself.
func (c *Change) Dependencies() []time.Ticket {
	created := make(map[time.Ticket]struct{})
	var deps []time.Ticket
	for _, op := range c.operations {
		for _, dep := range op.Dependencies() {
			if dep.IsInitial() {
				continue
			}
			if _, ok := created[dep]; ok {
				continue
			}
			deps = append(deps, dep)
		}
		for _, id := range op.CreatedIDs() {
			created[id] = struct{}{}
		}
	}
	return deps
}

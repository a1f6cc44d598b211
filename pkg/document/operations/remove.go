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

package operations

import (
	"github.com/yorkie-team/docsync/pkg/document/crdt"
	"github.com/yorkie-team/docsync/pkg/document/time"
)

// Remove is an operation representing removing runes from the text.
type Remove struct {
	// targets are the IDs of the removed runes.
	targets []time.Ticket

	// executedAt is the time the operation was executed.
	executedAt time.Ticket
}

// NewRemove creates a new instance of Remove.
func NewRemove(targets []time.Ticket, executedAt time.Ticket) *Remove {
	return &Remove{
		targets:    targets,
		executedAt: executedAt,
	}
}

// Execute executes this operation on the given text. Targets that are
// already removed are left as they are.
func (o *Remove) Execute(text *crdt.RGA) error {
	for _, target := range o.targets {
		if _, err := text.Remove(target); err != nil {
			return err
		}
	}

	return nil
}

// ExecutedAt returns execution time of this operation.
func (o *Remove) ExecutedAt() time.Ticket {
	return o.executedAt
}

// Dependencies returns the targets of this operation.
func (o *Remove) Dependencies() []time.Ticket {
	return o.targets
}

// CreatedIDs returns nil because Remove does not create nodes.
func (o *Remove) CreatedIDs() []time.Ticket {
	return nil
}

// Targets returns the IDs of the removed runes.
func (o *Remove) Targets() []time.Ticket {
	return o.targets
}

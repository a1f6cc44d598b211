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

package change

import (
	"github.com/yorkie-team/docsync/pkg/document/operations"
	"github.com/yorkie-team/docsync/pkg/document/time"
)

// Context is used to record the context of modification when editing a document.
// Each time we add an operation, a new time ticket is issued.
// Finally, returns a Change after the modification has been completed.
type Context struct {
	id         ID
	operations []operations.Operation
	delimiter  uint32
}

// NewContext creates a new instance of Context.
func NewContext(id ID) *Context {
	return &Context{
		id: id,
	}
}

// ID returns ID for new change.
func (c *Context) ID() ID {
	return c.id
}

// ToChange creates a new change of this context.
func (c *Context) ToChange() *Change {
	return New(c.id, c.operations)
}

// HasChange returns whether this context has changes.
func (c *Context) HasChange() bool {
	return len(c.operations) > 0
}

// IssueTimeTicket creates a time ticket to be used to create a new operation.
func (c *Context) IssueTimeTicket() time.Ticket {
	c.delimiter++
	return c.id.NewTimeTicket(c.delimiter)
}

// IssueTimeTickets reserves n consecutive delimiters and returns the first
// ticket of them.
func (c *Context) IssueTimeTickets(n int) time.Ticket {
	first := c.IssueTimeTicket()
	if n > 1 {
		c.delimiter += uint32(n - 1)
	}
	return first
}

// Push pushes a new operations into context queue.
func (c *Context) Push(op operations.Operation) {
	c.operations = append(c.operations, op)
}

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
	"unicode/utf8"

	"github.com/yorkie-team/docsync/pkg/document/crdt"
	"github.com/yorkie-team/docsync/pkg/document/time"
)

// Insert is an operation representing inserting content into the text. The
// runes of the content are created with consecutive delimiters starting at
// createdAt, each one placed after the previous one.
type Insert struct {
	// origin is the ID of the node after which the content is inserted.
	origin time.Ticket

	// createdAt is the ID of the first inserted rune.
	createdAt time.Ticket

	content string
}

// NewInsert creates a new instance of Insert.
func NewInsert(origin, createdAt time.Ticket, content string) *Insert {
	return &Insert{
		origin:    origin,
		createdAt: createdAt,
		content:   content,
	}
}

// Execute executes this operation on the given text.
func (o *Insert) Execute(text *crdt.RGA) error {
	prev := o.origin
	offset := 0
	for _, r := range o.content {
		id := o.createdAt.Offset(offset)
		if err := text.InsertAfter(prev, id, r); err != nil {
			return err
		}
		prev = id
		offset++
	}

	return nil
}

// ExecutedAt returns execution time of this operation.
func (o *Insert) ExecutedAt() time.Ticket {
	return o.createdAt
}

// Dependencies returns the origin of this operation.
func (o *Insert) Dependencies() []time.Ticket {
	return []time.Ticket{o.origin}
}

// CreatedIDs returns the IDs of the inserted runes.
func (o *Insert) CreatedIDs() []time.Ticket {
	ids := make([]time.Ticket, 0, o.Len())
	for i := 0; i < o.Len(); i++ {
		ids = append(ids, o.createdAt.Offset(i))
	}
	return ids
}

// Origin returns the ID of the node after which the content is inserted.
func (o *Insert) Origin() time.Ticket {
	return o.origin
}

// Content returns the inserted content.
func (o *Insert) Content() string {
	return o.content
}

// Len returns the number of inserted runes.
func (o *Insert) Len() int {
	return utf8.RuneCountInString(o.content)
}

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

// Package crdt provides the replicated data type that backs a document.
package crdt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yorkie-team/docsync/pkg/document/time"
)

var (
	// ErrNodeNotFound is returned when the node of the given ID is not found.
	ErrNodeNotFound = errors.New("node not found")

	// ErrIndexOutOfRange is returned when the given index is out of range.
	ErrIndexOutOfRange = errors.New("index out of range")
)

// RGANode is a node of RGA. Each node holds a single rune.
type RGANode struct {
	id      time.Ticket
	value   rune
	removed bool

	prev *RGANode
	next *RGANode
}

// ID returns the ID of this node.
func (n *RGANode) ID() time.Ticket {
	return n.id
}

// Value returns the rune of this node.
func (n *RGANode) Value() rune {
	return n.value
}

// IsRemoved returns whether this node is a tombstone.
func (n *RGANode) IsRemoved() bool {
	return n.removed
}

// RGA is a Replicated Growable Array of runes. Nodes are never unlinked;
// removed nodes stay in the list as tombstones so that concurrent inserts
// referring to them can still find their origin.
type RGA struct {
	head        *RGANode
	nodeMapByID map[time.Ticket]*RGANode
	size        int
}

// NewRGA creates a new instance of RGA.
func NewRGA() *RGA {
	head := &RGANode{id: time.InitialTicket}
	return &RGA{
		head:        head,
		nodeMapByID: map[time.Ticket]*RGANode{time.InitialTicket: head},
	}
}

// Has returns whether a node of the given ID exists, including tombstones.
func (s *RGA) Has(id time.Ticket) bool {
	_, ok := s.nodeMapByID[id]
	return ok
}

// InsertAfter inserts a rune with the given ID after the node of the origin
// ID. Nodes that were inserted after the same origin with a greater ID are
// skipped, so that concurrent inserts converge to the same order on every
// replica. Inserting an ID that already exists is a no-op.
func (s *RGA) InsertAfter(origin, id time.Ticket, value rune) error {
	if _, ok := s.nodeMapByID[id]; ok {
		return nil
	}

	prev, ok := s.nodeMapByID[origin]
	if !ok {
		return fmt.Errorf("origin %s: %w", origin, ErrNodeNotFound)
	}

	for prev.next != nil && prev.next.id.After(id) {
		prev = prev.next
	}

	node := &RGANode{id: id, value: value, prev: prev, next: prev.next}
	if prev.next != nil {
		prev.next.prev = node
	}
	prev.next = node

	s.nodeMapByID[id] = node
	s.size++
	return nil
}

// Remove marks the node of the given ID as removed. It returns false if the
// node was already removed.
func (s *RGA) Remove(id time.Ticket) (bool, error) {
	node, ok := s.nodeMapByID[id]
	if !ok || node == s.head {
		return false, fmt.Errorf("remove %s: %w", id, ErrNodeNotFound)
	}

	if node.removed {
		return false, nil
	}

	node.removed = true
	s.size--
	return true, nil
}

// OriginAt returns the ID of the visible node that precedes the given index.
// Index 0 refers to the head of the list.
func (s *RGA) OriginAt(index int) (time.Ticket, error) {
	if index < 0 || index > s.size {
		return time.InitialTicket, fmt.Errorf("index %d of %d: %w", index, s.size, ErrIndexOutOfRange)
	}

	node := s.head
	for i := 0; i < index; {
		node = node.next
		if !node.removed {
			i++
		}
	}

	return node.id, nil
}

// VisibleRange returns IDs of the visible nodes in [from, from+length).
func (s *RGA) VisibleRange(from, length int) ([]time.Ticket, error) {
	if from < 0 || length < 0 || from+length > s.size {
		return nil, fmt.Errorf("range %d:%d of %d: %w", from, length, s.size, ErrIndexOutOfRange)
	}

	ids := make([]time.Ticket, 0, length)
	index := 0
	for node := s.head.next; node != nil && len(ids) < length; node = node.next {
		if node.removed {
			continue
		}
		if index >= from {
			ids = append(ids, node.id)
		}
		index++
	}

	return ids, nil
}

// Len returns the number of visible runes.
func (s *RGA) Len() int {
	return s.size
}

// Nodes returns all nodes including tombstones in list order.
func (s *RGA) Nodes() []*RGANode {
	var nodes []*RGANode
	for node := s.head.next; node != nil; node = node.next {
		nodes = append(nodes, node)
	}
	return nodes
}

// String returns the visible text of this RGA.
func (s *RGA) String() string {
	var builder strings.Builder
	for node := s.head.next; node != nil; node = node.next {
		if !node.removed {
			builder.WriteRune(node.value)
		}
	}
	return builder.String()
}

// StructureAsString returns a string containing the metadata of the nodes
// for debugging purpose.
func (s *RGA) StructureAsString() string {
	var builder strings.Builder
	for node := s.head.next; node != nil; node = node.next {
		if node.removed {
			builder.WriteString(fmt.Sprintf("{%s %q}", node.id, node.value))
		} else {
			builder.WriteString(fmt.Sprintf("[%s %q]", node.id, node.value))
		}
	}
	return builder.String()
}

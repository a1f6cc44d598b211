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

// Package time provides logical clock and ticket for document.
package time

import (
	"fmt"
	"math"
)

const (
	// InitialLamport is the initial value of Lamport timestamp.
	InitialLamport = 0

	// MaxLamport is the largest Lamport timestamp a replica accepts. Clocks
	// stop at it instead of overflowing.
	MaxLamport = math.MaxInt64 / 2
)

// InitialTicket is the initial value of Ticket. The head of every sequence
// is identified by it, so inserting at the front uses it as the origin.
var InitialTicket = NewTicket(InitialLamport, 0, InitialActorID)

// Ticket represents the logical clock. It is used to determine the order of
// changes and identify nodes in the document. It can't be used to detect the
// relationship between changes whether they are causally related or
// concurrent.
//
// Ticket is a comparable value, so it can be used as a map key.
type Ticket struct {
	lamport   int64
	delimiter uint32
	actorID   ActorID
}

// NewTicket creates an instance of Ticket.
func NewTicket(lamport int64, delimiter uint32, actorID ActorID) Ticket {
	return Ticket{
		lamport:   lamport,
		delimiter: delimiter,
		actorID:   actorID,
	}
}

// Lamport returns the lamport value.
func (t Ticket) Lamport() int64 {
	return t.lamport
}

// Delimiter returns the delimiter value.
func (t Ticket) Delimiter() uint32 {
	return t.delimiter
}

// ActorID returns the actorID value.
func (t Ticket) ActorID() ActorID {
	return t.actorID
}

// Offset returns the ticket that is n positions after this one within the
// same change. Runes inserted by a single operation use consecutive
// delimiters.
func (t Ticket) Offset(n int) Ticket {
	return NewTicket(t.lamport, t.delimiter+uint32(n), t.actorID)
}

// IsInitial returns whether this ticket is the initial ticket.
func (t Ticket) IsInitial() bool {
	return t == InitialTicket
}

// String returns a string containing the metadata of the ticket for
// debugging purpose.
func (t Ticket) String() string {
	return fmt.Sprintf("%d:%d:%s", t.lamport, t.delimiter, t.actorID.String())
}

// After returns whether the given ticket was created later.
func (t Ticket) After(other Ticket) bool {
	return t.Compare(other) > 0
}

// Compare returns an integer comparing two Ticket.
// The result will be 0 if id==other, -1 if id < other, and +1 if id > other.
func (t Ticket) Compare(other Ticket) int {
	if t.lamport > other.lamport {
		return 1
	} else if t.lamport < other.lamport {
		return -1
	}

	compare := t.actorID.Compare(other.actorID)
	if compare != 0 {
		return compare
	}

	if t.delimiter > other.delimiter {
		return 1
	} else if t.delimiter < other.delimiter {
		return -1
	}

	return 0
}

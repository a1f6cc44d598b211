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
	"github.com/yorkie-team/docsync/pkg/document/time"
)

var (
	// InitialID represents the initial state ID. Usually this is used to
	// represent a state where nothing has been edited.
	InitialID = NewID(0, time.InitialLamport, time.InitialActorID)
)

// ID is for identifying the Change. This struct is immutable.
type ID struct {
	// clientSeq is a sequence index of the change on this replica.
	clientSeq uint32

	// lamport is lamport timestamp.
	lamport int64

	// actor is an ID of actor.
	actor time.ActorID
}

// NewID creates a new instance of ID.
func NewID(
	clientSeq uint32,
	lamport int64,
	actorID time.ActorID,
) ID {
	return ID{
		clientSeq: clientSeq,
		lamport:   lamport,
		actor:     actorID,
	}
}

// Next creates a next ID of this ID whose lamport is greater than both this
// ID and the given lamport. The lamport never exceeds time.MaxLamport.
func (id ID) Next(seen int64) ID {
	lamport := id.lamport
	if seen > lamport {
		lamport = seen
	}
	if lamport < time.MaxLamport {
		lamport++
	}

	return NewID(id.clientSeq+1, lamport, id.actor)
}

// NewTimeTicket creates a ticket of the given delimiter.
func (id ID) NewTimeTicket(delimiter uint32) time.Ticket {
	return time.NewTicket(
		id.lamport,
		delimiter,
		id.actor,
	)
}

// ClientSeq returns the client sequence of this ID.
func (id ID) ClientSeq() uint32 {
	return id.clientSeq
}

// Lamport returns the lamport clock of this ID.
func (id ID) Lamport() int64 {
	return id.lamport
}

// Actor returns the actor of this ID.
func (id ID) Actor() time.ActorID {
	return id.actor
}

// Compare orders IDs by lamport, then actor, then client sequence. Every
// replica sorts the same set of changes into the same order with it.
func (id ID) Compare(other ID) int {
	if id.lamport != other.lamport {
		if id.lamport < other.lamport {
			return -1
		}
		return 1
	}

	if cmp := id.actor.Compare(other.actor); cmp != 0 {
		return cmp
	}

	if id.clientSeq != other.clientSeq {
		if id.clientSeq < other.clientSeq {
			return -1
		}
		return 1
	}

	return 0
}

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

// Package types provides the types shared by the server and the client of the
// sync protocol.
package types

import "fmt"

// MessageType is the type of a protocol message exchanged over a session.
type MessageType int

const (
	// SyncStep1 carries the version vector of the sender. The receiver answers
	// it with SyncStep2.
	SyncStep1 MessageType = 1

	// SyncStep2 carries the changes that the sender of SyncStep1 is missing.
	SyncStep2 MessageType = 2

	// Update carries changes made after the initial synchronization.
	Update MessageType = 3

	// Awareness carries ephemeral presence of a session.
	Awareness MessageType = 4
)

// IsValid returns whether this type is a known message type.
func (t MessageType) IsValid() bool {
	return t >= SyncStep1 && t <= Awareness
}

// String returns the string representation of the message type.
func (t MessageType) String() string {
	switch t {
	case SyncStep1:
		return "sync-step-1"
	case SyncStep2:
		return "sync-step-2"
	case Update:
		return "update"
	case Awareness:
		return "awareness"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

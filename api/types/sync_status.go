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

package types

// SyncStatus is the state of a session in the sync protocol.
type SyncStatus string

const (
	// Connecting means the transport is established but the handshake has
	// not started yet.
	Connecting SyncStatus = "connecting"

	// Syncing means the version vectors have been exchanged and the session
	// waits for the missing changes of the peer.
	Syncing SyncStatus = "syncing"

	// Synced means both sides have caught up. Updates are exchanged
	// incrementally from now on.
	Synced SyncStatus = "synced"

	// Closed is terminal. No further messages are processed.
	Closed SyncStatus = "closed"
)

// CanTransitionTo returns whether the status can move to the given one.
func (s SyncStatus) CanTransitionTo(next SyncStatus) bool {
	switch s {
	case Connecting:
		return next == Syncing || next == Closed
	case Syncing:
		return next == Synced || next == Closed
	case Synced:
		return next == Closed
	default:
		return false
	}
}

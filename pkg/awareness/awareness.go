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

// Package awareness provides the ephemeral presence that sessions of a
// document share with each other, such as the name of the user and the
// position of the cursor. Awareness is never persisted and never merged into
// the document.
package awareness

import (
	"encoding/json"
	"fmt"

	"github.com/yorkie-team/docsync/internal/validation"
	"github.com/yorkie-team/docsync/pkg/errors"
)

var (
	// ErrInvalidAwareness is returned when the given awareness payload is
	// malformed or does not pass validation.
	ErrInvalidAwareness = errors.InvalidArgument("invalid awareness").WithCode("ErrInvalidAwareness")
)

// Status is the activity of a user.
type Status string

const (
	// StatusActive means the user is editing.
	StatusActive Status = "active"

	// StatusIdle means the user has not edited for a while.
	StatusIdle Status = "idle"

	// StatusAway means the tab of the user is in the background.
	StatusAway Status = "away"
)

// User is the identity a session shows to others.
type User struct {
	Name  string `json:"name" validate:"required,max=64"`
	Color string `json:"color,omitempty" validate:"omitempty,color"`
}

// Cursor is the selection of a user in runes. Anchor equals Head when
// nothing is selected.
type Cursor struct {
	Anchor int `json:"anchor" validate:"gte=0"`
	Head   int `json:"head" validate:"gte=0"`
}

// known keys of State.
const (
	keyUser   = "user"
	keyCursor = "cursor"
	keyStatus = "status"
)

// State is the awareness state of a session. Fields that are not known to
// the server are kept as they are and relayed to other sessions.
type State struct {
	User   *User   `json:"user,omitempty" validate:"omitempty"`
	Cursor *Cursor `json:"cursor,omitempty" validate:"omitempty"`
	Status Status  `json:"status,omitempty" validate:"omitempty,oneof=active idle away"`

	// Extra holds the fields that are not known to the server.
	Extra map[string]json.RawMessage `json:"-" validate:"-"`
}

// UnmarshalJSON decodes the known fields of the state and keeps the rest in
// Extra.
func (s *State) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*s = State{}
	if raw, ok := fields[keyUser]; ok {
		if err := json.Unmarshal(raw, &s.User); err != nil {
			return fmt.Errorf("%s: %w", keyUser, err)
		}
		delete(fields, keyUser)
	}
	if raw, ok := fields[keyCursor]; ok {
		if err := json.Unmarshal(raw, &s.Cursor); err != nil {
			return fmt.Errorf("%s: %w", keyCursor, err)
		}
		delete(fields, keyCursor)
	}
	if raw, ok := fields[keyStatus]; ok {
		if err := json.Unmarshal(raw, &s.Status); err != nil {
			return fmt.Errorf("%s: %w", keyStatus, err)
		}
		delete(fields, keyStatus)
	}

	if len(fields) > 0 {
		s.Extra = fields
	}
	return nil
}

// MarshalJSON encodes the known fields of the state together with Extra.
func (s State) MarshalJSON() ([]byte, error) {
	fields := make(map[string]any, len(s.Extra)+3)
	for k, v := range s.Extra {
		fields[k] = v
	}
	if s.User != nil {
		fields[keyUser] = s.User
	}
	if s.Cursor != nil {
		fields[keyCursor] = s.Cursor
	}
	if s.Status != "" {
		fields[keyStatus] = s.Status
	}

	return json.Marshal(fields)
}

// Message is the payload of an awareness frame. A nil State announces that
// the session has left.
type Message struct {
	ClientID string `json:"clientID"`
	State    *State `json:"state"`
}

// Decode decodes and validates the given awareness payload.
func Decode(data []byte) (*Message, error) {
	msg := &Message{}
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("decode awareness: %s: %w", err.Error(), ErrInvalidAwareness)
	}

	if msg.State != nil {
		if err := validation.ValidateStruct(msg.State); err != nil {
			return nil, fmt.Errorf("validate awareness: %s: %w", err.Error(), ErrInvalidAwareness)
		}
	}

	return msg, nil
}

// Encode encodes the given message.
func Encode(msg *Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode awareness: %w", err)
	}
	return data, nil
}

// Removed returns the message announcing that the given client has left.
func Removed(clientID string) *Message {
	return &Message{ClientID: clientID}
}

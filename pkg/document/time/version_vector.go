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

package time

import (
	"sort"
	"strconv"
	"strings"
)

// VersionVector maps each actor to the Lamport timestamp of the last change
// of that actor that has been applied. The Lamport timestamps of a single
// actor only grow, so the vector summarizes which changes a replica holds.
type VersionVector map[ActorID]int64

// NewVersionVector creates a new instance of VersionVector.
func NewVersionVector() VersionVector {
	return make(VersionVector)
}

// Get gets the version of the given actor.
// Returns the version and whether the actor exists in the vector.
func (v VersionVector) Get(id ActorID) (int64, bool) {
	version, exists := v[id]
	return version, exists
}

// Set sets the given actor's version to the given value.
func (v VersionVector) Set(id ActorID, i int64) {
	v[id] = i
}

// VersionOf returns the version of the given actor. It returns 0 if the actor
// is unknown.
func (v VersionVector) VersionOf(id ActorID) int64 {
	return v[id]
}

// DeepCopy creates a deep copy of this VersionVector.
func (v VersionVector) DeepCopy() VersionVector {
	copied := make(VersionVector, len(v))
	for k, val := range v {
		copied[k] = val
	}
	return copied
}

// Max modifies the receiver in-place to contain the maximum values between
// itself and the given version vector, and returns the modified receiver.
func (v VersionVector) Max(other VersionVector) VersionVector {
	for key, value := range other {
		if current, exists := v[key]; !exists || current < value {
			v[key] = value
		}
	}

	return v
}

// AfterOrEqual returns whether this VersionVector covers every entry of the
// given VersionVector.
func (v VersionVector) AfterOrEqual(other VersionVector) bool {
	for k, val := range other {
		if v[k] < val {
			return false
		}
	}

	return true
}

// MaxLamport returns max lamport value in version vector.
func (v VersionVector) MaxLamport() int64 {
	var maxLamport int64 = InitialLamport

	for _, value := range v {
		if value > maxLamport {
			maxLamport = value
		}
	}

	return maxLamport
}

// Keys returns the actors of this vector sorted in ascending order.
func (v VersionVector) Keys() []ActorID {
	keys := make([]ActorID, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Compare(keys[j]) < 0
	})

	return keys
}

// Marshal returns a stable string representation of this VersionVector.
func (v VersionVector) Marshal() string {
	builder := strings.Builder{}

	builder.WriteRune('{')
	for i, k := range v.Keys() {
		if i > 0 {
			builder.WriteRune(',')
		}
		builder.WriteString(k.String())
		builder.WriteRune(':')
		builder.WriteString(strconv.FormatInt(v[k], 10))
	}
	builder.WriteRune('}')

	return builder.String()
}

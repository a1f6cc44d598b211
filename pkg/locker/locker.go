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

// Package locker provides mutexes keyed by name, so that work on different
// keys proceeds in parallel while work on the same key is serialized. The
// mutex of a key exists only while someone holds or waits for it.
package locker

import (
	"errors"
	"sync"
)

// ErrNoSuchLock is returned when the requested lock does not exist
var ErrNoSuchLock = errors.New("no such lock")

// Locker provides a locking mechanism based on the passed in key.
type Locker[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*entry
}

// entry is the mutex of a single key. refs counts the holder and the
// waiters, and is guarded by the mutex of the Locker.
type entry struct {
	mu   sync.Mutex
	refs int
}

// New creates a new Locker.
func New[K comparable]() *Locker[K] {
	return &Locker[K]{
		locks: make(map[K]*entry),
	}
}

// acquire returns the entry of the given key, registering the caller as a
// reference so the entry is not removed until it is released.
func (l *Locker[K]) acquire(key K) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.locks[key]
	if !ok {
		e = &entry{}
		l.locks[key] = e
	}
	e.refs++
	return e
}

// release drops a reference of the entry of the given key and removes the
// entry when nobody refers to it anymore.
func (l *Locker[K]) release(key K, e *entry) {
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

// Lock locks the mutex of the given key. The mutex is created if it does not
// exist.
func (l *Locker[K]) Lock(key K) {
	e := l.acquire(key)
	e.mu.Lock()
}

// TryLock tries to lock the mutex of the given key without blocking.
func (l *Locker[K]) TryLock(key K) bool {
	e := l.acquire(key)
	if e.mu.TryLock() {
		return true
	}

	l.mu.Lock()
	l.release(key, e)
	l.mu.Unlock()
	return false
}

// Unlock unlocks the mutex of the given key.
func (l *Locker[K]) Unlock(key K) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.locks[key]
	if !ok {
		return ErrNoSuchLock
	}

	l.release(key, e)
	e.mu.Unlock()
	return nil
}

// Len returns the number of keys that are held or waited for.
func (l *Locker[K]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.locks)
}

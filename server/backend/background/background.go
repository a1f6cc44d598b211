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

// Package background manages the goroutines that the backend starts on its
// own, such as the debounced flushes of rooms, so that closing the backend
// waits for them to finish.
package background

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/yorkie-team/docsync/server/logging"
	"github.com/yorkie-team/docsync/server/profiling/prometheus"
)

type routineID int32

func (c *routineID) next() string {
	next := atomic.AddInt32((*int32)(c), 1)
	return "b" + strconv.Itoa(int(next))
}

// Background tracks the goroutines attached to it.
type Background struct {
	// closing is closed when the background starts closing.
	closing chan struct{}

	// wgMu prevents wg.Add from racing with wg.Wait in Close.
	wgMu sync.RWMutex
	wg   sync.WaitGroup

	routineID routineID

	metrics *prometheus.Metrics
}

// New creates a new background service. metrics can be nil.
func New(metrics *prometheus.Metrics) *Background {
	return &Background{
		closing: make(chan struct{}),
		metrics: metrics,
	}
}

// AttachGoroutine runs the given function in a new goroutine tracked by this
// background. It returns false without running the function if the
// background has been closed.
func (b *Background) AttachGoroutine(f func(ctx context.Context), taskType string) bool {
	b.wgMu.RLock()
	defer b.wgMu.RUnlock()

	select {
	case <-b.closing:
		logging.DefaultLogger().Warnf("background has closed; skipping %s", taskType)
		return false
	default:
	}

	b.wg.Add(1)
	logger := logging.New(b.routineID.next(), logging.NewField("task", taskType))
	if b.metrics != nil {
		b.metrics.AddBackgroundGoroutines(taskType)
	}
	go func() {
		defer func() {
			if b.metrics != nil {
				b.metrics.RemoveBackgroundGoroutines(taskType)
			}
			b.wg.Done()
		}()
		f(logging.With(context.Background(), logger))
	}()
	return true
}

// Closing returns a channel that is closed when the background starts
// closing.
func (b *Background) Closing() <-chan struct{} {
	return b.closing
}

// Close stops accepting new goroutines and waits for the attached ones.
func (b *Background) Close() {
	b.wgMu.Lock()
	select {
	case <-b.closing:
	default:
		close(b.closing)
	}
	b.wgMu.Unlock()

	b.wg.Wait()
}

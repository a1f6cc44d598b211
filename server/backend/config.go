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

package backend

import (
	"fmt"
	"os"
	"time"
)

// Config is the configuration for creating a Backend instance.
type Config struct {
	// FlushDebounce is the time a room waits after its first unsaved change
	// before it saves the snapshot. Changes made in the meantime are saved
	// together. Default is "2s".
	FlushDebounce string `yaml:"FlushDebounce"`

	// FlushTimeout bounds a single save of a snapshot. Default is "10s".
	FlushTimeout string `yaml:"FlushTimeout"`

	// FlushRetries is the number of extra attempts of the final flush when a
	// room is destroyed. Default is 3.
	FlushRetries int `yaml:"FlushRetries"`

	// Hostname is docsync server hostname. hostname is used by metrics.
	Hostname string `yaml:"Hostname"`
}

// Validate validates this config.
func (c *Config) Validate() error {
	debounce, err := time.ParseDuration(c.FlushDebounce)
	if err != nil {
		return fmt.Errorf(
			`invalid argument "%s" for "--backend-flush-debounce" flag: %w`,
			c.FlushDebounce,
			err,
		)
	}
	if debounce <= 0 {
		return fmt.Errorf(`invalid argument "%s" for "--backend-flush-debounce" flag: must be positive`, c.FlushDebounce)
	}

	timeout, err := time.ParseDuration(c.FlushTimeout)
	if err != nil {
		return fmt.Errorf(
			`invalid argument "%s" for "--backend-flush-timeout" flag: %w`,
			c.FlushTimeout,
			err,
		)
	}
	if timeout <= 0 {
		return fmt.Errorf(`invalid argument "%s" for "--backend-flush-timeout" flag: must be positive`, c.FlushTimeout)
	}

	if c.FlushRetries < 0 {
		return fmt.Errorf(`invalid argument "%d" for "--backend-flush-retries" flag: must not be negative`, c.FlushRetries)
	}

	return nil
}

// ParseFlushDebounce returns the debounce window of flushes.
func (c *Config) ParseFlushDebounce() time.Duration {
	result, err := time.ParseDuration(c.FlushDebounce)
	if err != nil {
		fmt.Fprintln(os.Stderr, "parse flush debounce:", err)
		os.Exit(1)
	}

	return result
}

// ParseFlushTimeout returns the timeout of a single flush.
func (c *Config) ParseFlushTimeout() time.Duration {
	result, err := time.ParseDuration(c.FlushTimeout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "parse flush timeout:", err)
		os.Exit(1)
	}

	return result
}

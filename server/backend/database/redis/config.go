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

package redis

import (
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Config is the configuration for creating a Client instance.
type Config struct {
	// URL is the URL of the redis server such as redis://localhost:6379/0.
	URL string `yaml:"URL"`

	// KeyPrefix is prepended to every key written by docsync.
	KeyPrefix string `yaml:"KeyPrefix"`
}

// Validate returns an error if the provided Config is invalidated.
func (c *Config) Validate() error {
	if _, err := redis.ParseURL(c.URL); err != nil {
		return fmt.Errorf(`invalid argument "%s" for "--redis-url" flag: %w`, c.URL, err)
	}

	return nil
}

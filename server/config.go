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

package server

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yorkie-team/docsync/server/backend"
	"github.com/yorkie-team/docsync/server/backend/database/mongo"
	"github.com/yorkie-team/docsync/server/backend/database/postgres"
	"github.com/yorkie-team/docsync/server/backend/database/redis"
	"github.com/yorkie-team/docsync/server/backend/database/sqlite"
	"github.com/yorkie-team/docsync/server/profiling"
	"github.com/yorkie-team/docsync/server/rpc"
)

// Below are the values of the default values of docsync config.
const (
	DefaultRPCPort       = 8080
	DefaultProfilingPort = 8081

	DefaultPingInterval    = 10 * time.Second
	DefaultLivenessTimeout = 30 * time.Second
	DefaultMaxMessageBytes = 8 << 20
	DefaultSendBufferSize  = 256

	DefaultFlushDebounce = 2 * time.Second
	DefaultFlushTimeout  = 10 * time.Second
	DefaultFlushRetries  = 3

	DefaultMongoConnectionURI     = "mongodb://localhost:27017"
	DefaultMongoConnectionTimeout = 5 * time.Second
	DefaultMongoPingTimeout       = 5 * time.Second
	DefaultMongoDatabase          = "docsync"

	DefaultRedisURL       = "redis://localhost:6379/0"
	DefaultRedisKeyPrefix = "docsync"

	DefaultPostgresConnectionTimeout = 5 * time.Second
	DefaultPostgresTable             = "snapshots"

	DefaultSQLitePath        = "docsync.db"
	DefaultSQLiteBusyTimeout = 5 * time.Second

	DefaultHostname = ""
)

// Config is the configuration for creating a docsync instance.
type Config struct {
	RPC       *rpc.Config       `yaml:"RPC"`
	Profiling *profiling.Config `yaml:"Profiling"`
	Backend   *backend.Config   `yaml:"Backend"`
	Mongo     *mongo.Config     `yaml:"Mongo"`
	Redis     *redis.Config     `yaml:"Redis"`
	Postgres  *postgres.Config  `yaml:"Postgres"`
	SQLite    *sqlite.Config    `yaml:"SQLite"`
}

// NewConfig returns a Config struct that contains reasonable defaults
// for most of the configurations.
func NewConfig() *Config {
	return newConfig(DefaultRPCPort, DefaultProfilingPort)
}

// NewConfigFromFile returns a Config struct for the given conf file.
func NewConfigFromFile(path string) (*Config, error) {
	conf := &Config{}
	bytes, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err = yaml.Unmarshal(bytes, conf); err != nil {
		return nil, fmt.Errorf("unmarshal config file: %w", err)
	}

	conf.EnsureDefaultValue()
	return conf, nil
}

// RPCAddr returns the RPC address.
func (c *Config) RPCAddr() string {
	return fmt.Sprintf("localhost:%d", c.RPC.Port)
}

// Validate returns an error if the provided Config is invalidated.
func (c *Config) Validate() error {
	if err := c.RPC.Validate(); err != nil {
		return err
	}

	if c.Profiling != nil {
		if err := c.Profiling.Validate(); err != nil {
			return err
		}
	}

	if err := c.Backend.Validate(); err != nil {
		return err
	}

	if c.Mongo != nil {
		if err := c.Mongo.Validate(); err != nil {
			return err
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Validate(); err != nil {
			return err
		}
	}

	if c.Postgres != nil {
		if err := c.Postgres.Validate(); err != nil {
			return err
		}
	}

	if c.SQLite != nil {
		if err := c.SQLite.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// EnsureDefaultValue sets the value of the option to which the default value
// should be applied when the user does not input it.
func (c *Config) EnsureDefaultValue() {
	if c.RPC == nil {
		c.RPC = &rpc.Config{}
	}
	if c.RPC.Port == 0 {
		c.RPC.Port = DefaultRPCPort
	}
	if c.RPC.PingInterval == "" {
		c.RPC.PingInterval = DefaultPingInterval.String()
	}
	if c.RPC.LivenessTimeout == "" {
		c.RPC.LivenessTimeout = DefaultLivenessTimeout.String()
	}
	if c.RPC.MaxMessageBytes == 0 {
		c.RPC.MaxMessageBytes = DefaultMaxMessageBytes
	}
	if c.RPC.SendBufferSize == 0 {
		c.RPC.SendBufferSize = DefaultSendBufferSize
	}

	if c.Profiling != nil && c.Profiling.Port == 0 {
		c.Profiling.Port = DefaultProfilingPort
	}

	if c.Backend == nil {
		c.Backend = &backend.Config{}
	}
	if c.Backend.FlushDebounce == "" {
		c.Backend.FlushDebounce = DefaultFlushDebounce.String()
	}
	if c.Backend.FlushTimeout == "" {
		c.Backend.FlushTimeout = DefaultFlushTimeout.String()
	}
	if c.Backend.FlushRetries == 0 {
		c.Backend.FlushRetries = DefaultFlushRetries
	}

	if c.Mongo != nil {
		if c.Mongo.ConnectionURI == "" {
			c.Mongo.ConnectionURI = DefaultMongoConnectionURI
		}
		if c.Mongo.ConnectionTimeout == "" {
			c.Mongo.ConnectionTimeout = DefaultMongoConnectionTimeout.String()
		}
		if c.Mongo.PingTimeout == "" {
			c.Mongo.PingTimeout = DefaultMongoPingTimeout.String()
		}
		if c.Mongo.Database == "" {
			c.Mongo.Database = DefaultMongoDatabase
		}
	}

	if c.Redis != nil {
		if c.Redis.URL == "" {
			c.Redis.URL = DefaultRedisURL
		}
		if c.Redis.KeyPrefix == "" {
			c.Redis.KeyPrefix = DefaultRedisKeyPrefix
		}
	}

	if c.Postgres != nil {
		if c.Postgres.ConnectionTimeout == "" {
			c.Postgres.ConnectionTimeout = DefaultPostgresConnectionTimeout.String()
		}
		if c.Postgres.Table == "" {
			c.Postgres.Table = DefaultPostgresTable
		}
	}

	if c.SQLite != nil {
		if c.SQLite.Path == "" {
			c.SQLite.Path = DefaultSQLitePath
		}
		if c.SQLite.BusyTimeout == "" {
			c.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout.String()
		}
	}
}

func newConfig(port int, profilingPort int) *Config {
	return &Config{
		RPC: &rpc.Config{
			Port:            port,
			PingInterval:    DefaultPingInterval.String(),
			LivenessTimeout: DefaultLivenessTimeout.String(),
			MaxMessageBytes: DefaultMaxMessageBytes,
			SendBufferSize:  DefaultSendBufferSize,
		},
		Profiling: &profiling.Config{
			Port: profilingPort,
		},
		Backend: &backend.Config{
			FlushDebounce: DefaultFlushDebounce.String(),
			FlushTimeout:  DefaultFlushTimeout.String(),
			FlushRetries:  DefaultFlushRetries,
			Hostname:      DefaultHostname,
		},
	}
}

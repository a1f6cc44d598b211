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

package rpc

import (
	"errors"
	"fmt"
	"os"
	"time"
)

var (
	// ErrInvalidRPCPort occurs when the port in the config is invalid.
	ErrInvalidRPCPort = errors.New("invalid port number for RPC server")
	// ErrInvalidPingInterval occurs when the ping interval is invalid.
	ErrInvalidPingInterval = errors.New("invalid ping interval for RPC server")
	// ErrInvalidLivenessTimeout occurs when the liveness timeout is invalid.
	ErrInvalidLivenessTimeout = errors.New("invalid liveness timeout for RPC server")
	// ErrInvalidMaxMessageBytes occurs when the max message size is invalid.
	ErrInvalidMaxMessageBytes = errors.New("invalid max message bytes for RPC server")
	// ErrInvalidSendBufferSize occurs when the send buffer size is invalid.
	ErrInvalidSendBufferSize = errors.New("invalid send buffer size for RPC server")
)

// Config is the configuration for creating a Server instance.
type Config struct {
	// Port is the port number for the RPC server.
	Port int `yaml:"Port"`

	// PingInterval is the interval of the pings sent to each session.
	PingInterval string `yaml:"PingInterval"`

	// LivenessTimeout is how long a session may stay silent, pongs included,
	// before it is detached. It must be longer than PingInterval.
	LivenessTimeout string `yaml:"LivenessTimeout"`

	// MaxMessageBytes is the maximum size of a frame the server accepts.
	MaxMessageBytes int64 `yaml:"MaxMessageBytes"`

	// SendBufferSize is the number of frames buffered for each session. A
	// session whose buffer is full is closed.
	SendBufferSize int `yaml:"SendBufferSize"`
}

// Validate validates the port number and the liveness settings.
func (c *Config) Validate() error {
	if c.Port < 1 || 65535 < c.Port {
		return fmt.Errorf("must be between 1 and 65535, given %d: %w", c.Port, ErrInvalidRPCPort)
	}

	pingInterval, err := time.ParseDuration(c.PingInterval)
	if err != nil || pingInterval <= 0 {
		return fmt.Errorf("%s: %w", c.PingInterval, ErrInvalidPingInterval)
	}

	livenessTimeout, err := time.ParseDuration(c.LivenessTimeout)
	if err != nil {
		return fmt.Errorf("%s: %w", c.LivenessTimeout, ErrInvalidLivenessTimeout)
	}
	if livenessTimeout <= pingInterval {
		return fmt.Errorf(
			"%s must be longer than ping interval %s: %w",
			c.LivenessTimeout,
			c.PingInterval,
			ErrInvalidLivenessTimeout,
		)
	}

	if c.MaxMessageBytes <= 0 {
		return fmt.Errorf("given %d: %w", c.MaxMessageBytes, ErrInvalidMaxMessageBytes)
	}

	if c.SendBufferSize <= 0 {
		return fmt.Errorf("given %d: %w", c.SendBufferSize, ErrInvalidSendBufferSize)
	}

	return nil
}

// ParsePingInterval returns the ping interval.
func (c *Config) ParsePingInterval() time.Duration {
	result, err := time.ParseDuration(c.PingInterval)
	if err != nil {
		fmt.Fprintln(os.Stderr, "parse ping interval:", err)
		os.Exit(1)
	}

	return result
}

// ParseLivenessTimeout returns the liveness timeout.
func (c *Config) ParseLivenessTimeout() time.Duration {
	result, err := time.ParseDuration(c.LivenessTimeout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "parse liveness timeout:", err)
		os.Exit(1)
	}

	return result
}

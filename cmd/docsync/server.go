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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yorkie-team/docsync/server"
	"github.com/yorkie-team/docsync/server/backend/database/mongo"
	"github.com/yorkie-team/docsync/server/backend/database/postgres"
	"github.com/yorkie-team/docsync/server/backend/database/redis"
	"github.com/yorkie-team/docsync/server/backend/database/sqlite"
	"github.com/yorkie-team/docsync/server/logging"
)

var (
	gracefulTimeout = 30 * time.Second
)

var (
	flagConfPath    string
	flagLogLevel    string
	flagLogEncoding string

	pingInterval    time.Duration
	livenessTimeout time.Duration
	flushDebounce   time.Duration
	flushTimeout    time.Duration

	mongoConnectionURI     string
	mongoConnectionTimeout time.Duration
	mongoDatabase          string
	mongoPingTimeout       time.Duration

	redisURL       string
	redisKeyPrefix string

	postgresConnectionURI     string
	postgresConnectionTimeout time.Duration
	postgresTable             string

	sqlitePath        string
	sqliteBusyTimeout time.Duration

	conf = server.NewConfig()
)

func newServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server [options]",
		Short: "Start docsync server",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf.RPC.PingInterval = pingInterval.String()
			conf.RPC.LivenessTimeout = livenessTimeout.String()
			conf.Backend.FlushDebounce = flushDebounce.String()
			conf.Backend.FlushTimeout = flushTimeout.String()

			if mongoConnectionURI != "" {
				conf.Mongo = &mongo.Config{
					ConnectionURI:     mongoConnectionURI,
					ConnectionTimeout: mongoConnectionTimeout.String(),
					Database:          mongoDatabase,
					PingTimeout:       mongoPingTimeout.String(),
				}
			}
			if redisURL != "" {
				conf.Redis = &redis.Config{
					URL:       redisURL,
					KeyPrefix: redisKeyPrefix,
				}
			}
			if postgresConnectionURI != "" {
				conf.Postgres = &postgres.Config{
					ConnectionURI:     postgresConnectionURI,
					ConnectionTimeout: postgresConnectionTimeout.String(),
					Table:             postgresTable,
				}
			}
			if sqlitePath != "" {
				conf.SQLite = &sqlite.Config{
					Path:        sqlitePath,
					BusyTimeout: sqliteBusyTimeout.String(),
				}
			}

			// If config file is given, command-line arguments will be overwritten.
			if flagConfPath != "" {
				parsed, err := server.NewConfigFromFile(flagConfPath)
				if err != nil {
					return err
				}
				conf = parsed
			}

			if err := logging.SetLogLevel(flagLogLevel); err != nil {
				return err
			}
			if err := logging.SetEncoding(flagLogEncoding); err != nil {
				return err
			}

			d, err := server.New(conf)
			if err != nil {
				return err
			}

			if err := d.Start(); err != nil {
				return err
			}

			if code := handleSignal(d); code != 0 {
				return fmt.Errorf("exit code: %d", code)
			}

			return nil
		},
	}
}

func handleSignal(d *server.DocSync) int {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	var sig os.Signal
	select {
	case s := <-sigCh:
		sig = s
	case <-d.ShutdownCh():
		// docsync is already shutdown
		return 0
	}

	graceful := false
	if sig == syscall.SIGINT || sig == syscall.SIGTERM {
		graceful = true
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulTimeout)
	defer cancel()

	gracefulCh := make(chan error, 1)
	go func() {
		gracefulCh <- d.Shutdown(ctx, graceful)
	}()

	select {
	case <-sigCh:
		return 1
	case err := <-gracefulCh:
		if err != nil {
			logging.DefaultLogger().Errorf("shutdown: %v", err)
			return 1
		}
		return 0
	}
}

func init() {
	cmd := newServerCmd()
	cmd.Flags().StringVarP(
		&flagConfPath,
		"config",
		"c",
		"",
		"Config path",
	)
	cmd.Flags().StringVarP(
		&flagLogLevel,
		"log-level",
		"l",
		"info",
		"Log level: debug, info, warn, error, panic, fatal",
	)
	cmd.Flags().StringVar(
		&flagLogEncoding,
		"log-encoding",
		"console",
		"Log encoding: console, json",
	)
	cmd.Flags().IntVar(
		&conf.RPC.Port,
		"rpc-port",
		server.DefaultRPCPort,
		"RPC port",
	)
	cmd.Flags().DurationVar(
		&pingInterval,
		"rpc-ping-interval",
		server.DefaultPingInterval,
		"Interval of the pings sent to each session.",
	)
	cmd.Flags().DurationVar(
		&livenessTimeout,
		"rpc-liveness-timeout",
		server.DefaultLivenessTimeout,
		"How long a session may stay silent before it is detached.",
	)
	cmd.Flags().Int64Var(
		&conf.RPC.MaxMessageBytes,
		"rpc-max-message-bytes",
		server.DefaultMaxMessageBytes,
		"Maximum frame size in bytes the server will accept.",
	)
	cmd.Flags().IntVar(
		&conf.RPC.SendBufferSize,
		"rpc-send-buffer-size",
		server.DefaultSendBufferSize,
		"Number of frames buffered for each session before it is closed as a slow consumer.",
	)
	cmd.Flags().IntVar(
		&conf.Profiling.Port,
		"profiling-port",
		server.DefaultProfilingPort,
		"Profiling port",
	)
	cmd.Flags().BoolVar(
		&conf.Profiling.EnablePprof,
		"enable-pprof",
		false,
		"Enable runtime profiling data via HTTP server.",
	)
	cmd.Flags().DurationVar(
		&flushDebounce,
		"backend-flush-debounce",
		server.DefaultFlushDebounce,
		"Time a room waits after its first unsaved change before it saves the snapshot.",
	)
	cmd.Flags().DurationVar(
		&flushTimeout,
		"backend-flush-timeout",
		server.DefaultFlushTimeout,
		"Timeout of a single save of a snapshot.",
	)
	cmd.Flags().IntVar(
		&conf.Backend.FlushRetries,
		"backend-flush-retries",
		server.DefaultFlushRetries,
		"Number of extra attempts of the final flush of a room.",
	)
	cmd.Flags().StringVar(
		&conf.Backend.Hostname,
		"hostname",
		server.DefaultHostname,
		"docsync's hostname, used by metrics. The OS hostname is used if empty.",
	)
	cmd.Flags().StringVar(
		&mongoConnectionURI,
		"mongo-connection-uri",
		"",
		"MongoDB's connection URI",
	)
	cmd.Flags().DurationVar(
		&mongoConnectionTimeout,
		"mongo-connection-timeout",
		server.DefaultMongoConnectionTimeout,
		"Mongo DB's connection timeout",
	)
	cmd.Flags().StringVar(
		&mongoDatabase,
		"mongo-database",
		server.DefaultMongoDatabase,
		"docsync's database name in MongoDB",
	)
	cmd.Flags().DurationVar(
		&mongoPingTimeout,
		"mongo-ping-timeout",
		server.DefaultMongoPingTimeout,
		"Mongo DB's ping timeout",
	)
	cmd.Flags().StringVar(
		&redisURL,
		"redis-url",
		"",
		"Redis URL such as redis://localhost:6379/0",
	)
	cmd.Flags().StringVar(
		&redisKeyPrefix,
		"redis-key-prefix",
		server.DefaultRedisKeyPrefix,
		"Prefix of the keys written to Redis",
	)
	cmd.Flags().StringVar(
		&postgresConnectionURI,
		"postgres-connection-uri",
		"",
		"PostgreSQL's connection URI",
	)
	cmd.Flags().DurationVar(
		&postgresConnectionTimeout,
		"postgres-connection-timeout",
		server.DefaultPostgresConnectionTimeout,
		"PostgreSQL's connection timeout",
	)
	cmd.Flags().StringVar(
		&postgresTable,
		"postgres-table",
		server.DefaultPostgresTable,
		"Name of the table that holds the snapshots in PostgreSQL",
	)
	cmd.Flags().StringVar(
		&sqlitePath,
		"sqlite-path",
		"",
		"Path of the SQLite database file",
	)
	cmd.Flags().DurationVar(
		&sqliteBusyTimeout,
		"sqlite-busy-timeout",
		server.DefaultSQLiteBusyTimeout,
		"SQLite's busy timeout",
	)

	rootCmd.AddCommand(cmd)
}

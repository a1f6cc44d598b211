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

// Package snapshot provides the commands that inspect the stored snapshots
// of documents.
package snapshot

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/yorkie-team/docsync/server"
	"github.com/yorkie-team/docsync/server/backend"
	"github.com/yorkie-team/docsync/server/backend/database/mongo"
	"github.com/yorkie-team/docsync/server/backend/database/postgres"
	"github.com/yorkie-team/docsync/server/backend/database/redis"
	"github.com/yorkie-team/docsync/server/backend/database/sqlite"
	"github.com/yorkie-team/docsync/server/snapshots"
)

var errNoStorage = errors.New("storage is required: give a config file or one of the storage flags")

var (
	flagConfPath          string
	output                string
	mongoConnectionURI    string
	redisURL              string
	postgresConnectionURI string
	sqlitePath            string

	// SubCmd represents the snapshot command.
	SubCmd = &cobra.Command{
		Use:     "snapshot",
		Short:   "Manage the stored snapshots of documents",
		Aliases: []string{"snapshots", "snap"},
	}
)

// openGateway opens the storage given by the flags, or by the config file if
// one is given.
func openGateway() (*snapshots.Gateway, func() error, error) {
	conf := server.NewConfig()
	if mongoConnectionURI != "" {
		conf.Mongo = &mongo.Config{ConnectionURI: mongoConnectionURI}
	}
	if redisURL != "" {
		conf.Redis = &redis.Config{URL: redisURL}
	}
	if postgresConnectionURI != "" {
		conf.Postgres = &postgres.Config{ConnectionURI: postgresConnectionURI}
	}
	if sqlitePath != "" {
		conf.SQLite = &sqlite.Config{Path: sqlitePath}
	}

	if flagConfPath != "" {
		parsed, err := server.NewConfigFromFile(flagConfPath)
		if err != nil {
			return nil, nil, err
		}
		conf = parsed
	} else {
		conf.EnsureDefaultValue()
	}

	if err := conf.Validate(); err != nil {
		return nil, nil, err
	}
	if conf.Mongo == nil && conf.Redis == nil && conf.Postgres == nil && conf.SQLite == nil {
		return nil, nil, errNoStorage
	}

	db, err := backend.OpenDatabase(conf.Mongo, conf.Redis, conf.Postgres, conf.SQLite)
	if err != nil {
		return nil, nil, err
	}

	return snapshots.New(db), db.Close, nil
}

func init() {
	SubCmd.AddCommand(newListCommand())
	SubCmd.AddCommand(newCatCommand())
	SubCmd.AddCommand(newRemoveCommand())

	SubCmd.PersistentFlags().StringVarP(&flagConfPath, "config", "c", "", "Config path of the server")
	SubCmd.PersistentFlags().StringVarP(&output, "output", "o", "", "One of 'yaml' or 'json'.")
	SubCmd.PersistentFlags().StringVar(&mongoConnectionURI, "mongo-connection-uri", "", "MongoDB's connection URI")
	SubCmd.PersistentFlags().StringVar(&redisURL, "redis-url", "", "Redis URL such as redis://localhost:6379/0")
	SubCmd.PersistentFlags().StringVar(
		&postgresConnectionURI,
		"postgres-connection-uri",
		"",
		"PostgreSQL's connection URI",
	)
	SubCmd.PersistentFlags().StringVar(&sqlitePath, "sqlite-path", "", "Path of the SQLite database file")
}

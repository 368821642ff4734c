// Copyright 2022
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package database

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// PgxIface is the subset of pgxpool.Pool used by this package; pgxmock
// connections satisfy it in tests
type PgxIface interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

var pool PgxIface

// Connect creates a connection pool to the database specified by the
// database.url configuration setting
func Connect(ctx context.Context) error {
	dbURL := viper.GetString("database.url")
	dbPool, err := pgxpool.Connect(ctx, dbURL)
	if err != nil {
		log.Error().Stack().Err(err).Msg("could not connect to database")
		return err
	}

	pool = dbPool
	log.Info().Msg("connected to database")
	return nil
}

// SetPool replaces the database connection pool; used by tests to inject
// a mock connection
func SetPool(p PgxIface) {
	pool = p
}

// Pool returns the active database connection pool
func Pool() PgxIface {
	return pool
}

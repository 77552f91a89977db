// Copyright 2025 The axfor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package store is the SQL-backed persistence layer: the HMap key index,
// the CSet changeset log, the Blob payload store, and the external
// User/Token/Repo contract tables. It holds no in-memory state; every
// operation round-trips to the database on the caller's connection or
// transaction.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// DB wraps a connection pool to the MySQL/MariaDB backing store.
type DB struct {
	*sql.DB
}

// PoolConfig bounds the underlying connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open establishes the connection pool for dsn, configured per cfg.
// Exhaustion of the pool blocks callers of Conn rather than growing it
// unboundedly.
func Open(dsn string, cfg PoolConfig) (*DB, error) {
	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return &DB{DB: sqlDB}, nil
}

// Conn acquires a connection from the pool, scoped to ctx. Callers must
// close it on every exit path, including error returns.
func (db *DB) Conn(ctx context.Context) (*sql.Conn, error) {
	conn, err := db.DB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: acquire connection: %w", err)
	}
	return conn, nil
}

// schema is the five-table relational layout from spec.md §6. CREATE TABLE
// IF NOT EXISTS keeps Migrate idempotent across restarts; there is no
// versioned migration chain, matching the original's one-shot table setup.
//
// `desc` and `blob` are both reserved words in MySQL/MariaDB (DESC and
// BLOB) and must be quoted as identifiers everywhere they are used, not
// just in this DDL — a raw string literal can't itself contain a
// backtick, so the quoted pieces are spliced in as separate string
// constants.
const backtickDesc = "`desc`"
const backtickBlob = "`blob`"

const schema = `
CREATE TABLE IF NOT EXISTS user (
	id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
	name VARCHAR(255) NOT NULL UNIQUE,
	confirmed BOOLEAN NOT NULL DEFAULT FALSE,
	email VARCHAR(255) NULL,
	avatar_url VARCHAR(255) NULL
);

CREATE TABLE IF NOT EXISTS token (
	id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
	value VARCHAR(255) NOT NULL UNIQUE,
	user_id BIGINT UNSIGNED NOT NULL,
	seen BOOLEAN NOT NULL DEFAULT FALSE,
	` + backtickDesc + ` VARCHAR(255) NOT NULL DEFAULT '',
	FOREIGN KEY (user_id) REFERENCES user(id)
);

CREATE TABLE IF NOT EXISTS repo (
	id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
	user_id BIGINT UNSIGNED NOT NULL,
	name VARCHAR(255) NOT NULL,
	` + backtickDesc + ` VARCHAR(255) NOT NULL DEFAULT '',
	UNIQUE KEY repo_user_name (user_id, name),
	FOREIGN KEY (user_id) REFERENCES user(id)
);

CREATE TABLE IF NOT EXISTS hmap (
	sha BINARY(20) NOT NULL PRIMARY KEY,
	val VARCHAR(2048) NOT NULL
);

CREATE TABLE IF NOT EXISTS cset (
	repo_id BIGINT UNSIGNED NOT NULL,
	hkey_id BINARY(20) NOT NULL,
	time TIMESTAMP(0) NOT NULL,
	type TINYINT UNSIGNED NOT NULL,
	len MEDIUMINT UNSIGNED NOT NULL,
	PRIMARY KEY (repo_id, hkey_id, time),
	FOREIGN KEY (repo_id) REFERENCES repo(id),
	FOREIGN KEY (hkey_id) REFERENCES hmap(sha)
);

CREATE TABLE IF NOT EXISTS ` + backtickBlob + ` (
	repo_id BIGINT UNSIGNED NOT NULL,
	hkey_id BINARY(20) NOT NULL,
	time TIMESTAMP(0) NOT NULL,
	data LONGBLOB NOT NULL,
	PRIMARY KEY (repo_id, hkey_id, time),
	FOREIGN KEY (repo_id) REFERENCES repo(id),
	FOREIGN KEY (hkey_id) REFERENCES hmap(sha)
);
`

// Migrate creates the five tables if they do not already exist. Each
// CREATE TABLE is sent as its own statement, so the DSN need not enable
// multi-statement queries.
func (db *DB) Migrate(ctx context.Context) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}

// querier is satisfied by both *sql.Conn and *sql.Tx, letting read helpers
// run against either a bare connection or an in-flight transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// execer is satisfied by both *sql.Conn and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

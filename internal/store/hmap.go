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

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"tailr/internal/codec"
)

// mysqlDuplicateEntry is the error number MySQL/MariaDB returns for a
// uniqueness violation (ER_DUP_ENTRY).
const mysqlDuplicateEntry = 1062

// Intern maps key to its SHA-1 digest, inserting the mapping on first
// sight. A uniqueness violation on an existing sha is resolved by reading
// back the stored value: an exact match is a benign race between two
// pushes of the same key, any mismatch is a genuine SHA-1 collision
// (spec.md §4.C) and is surfaced as ErrHashCollision.
func Intern(ctx context.Context, q interface {
	querier
	execer
}, key []byte) ([codec.ShaSize]byte, error) {
	sha := codec.Sha(key)

	_, err := q.ExecContext(ctx, `INSERT INTO hmap (sha, val) VALUES (?, ?)`, sha[:], string(key))
	if err == nil {
		return sha, nil
	}

	var mysqlErr *mysql.MySQLError
	if !errors.As(err, &mysqlErr) || mysqlErr.Number != mysqlDuplicateEntry {
		return sha, fmt.Errorf("store: intern key: %w", err)
	}

	var stored string
	row := q.QueryRowContext(ctx, `SELECT val FROM hmap WHERE sha = ?`, sha[:])
	if err := row.Scan(&stored); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sha, fmt.Errorf("store: intern key: race resolving collision: %w", err)
		}
		return sha, fmt.Errorf("store: intern key: %w", err)
	}

	if stored != string(key) {
		return sha, ErrHashCollision
	}
	return sha, nil
}

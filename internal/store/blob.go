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
	"time"
)

// PutBlob stores the compressed payload for (repoID, sha, t). Never called
// for DELETE changesets.
func PutBlob(ctx context.Context, e execer, repoID int64, sha [20]byte, t time.Time, data []byte) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO `+backtickBlob+` (repo_id, hkey_id, time, data) VALUES (?, ?, ?, ?)`,
		repoID, sha[:], t, data)
	if err != nil {
		return fmt.Errorf("store: put blob: %w", err)
	}
	return nil
}

// GetBlob fetches the compressed payload for (repoID, sha, t).
func GetBlob(ctx context.Context, q querier, repoID int64, sha [20]byte, t time.Time) ([]byte, error) {
	var data []byte
	row := q.QueryRowContext(ctx, `
		SELECT data FROM `+backtickBlob+` WHERE repo_id = ? AND hkey_id = ? AND time = ?`,
		repoID, sha[:], t)

	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get blob: %w", err)
	}
	return data, nil
}

// GetManyBlobs loads every blob for (repoID, sha) whose time is in times,
// ordered ascending by time — one round trip for a whole chain.
func GetManyBlobs(ctx context.Context, q querier, repoID int64, sha [20]byte, times []time.Time) ([][]byte, error) {
	if len(times) == 0 {
		return nil, nil
	}

	placeholders := make([]byte, 0, len(times)*2)
	args := make([]any, 0, len(times)+2)
	args = append(args, repoID, sha[:])
	for i, t := range times {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args = append(args, t)
	}

	query := `SELECT data FROM ` + backtickBlob + ` WHERE repo_id = ? AND hkey_id = ? AND time IN (` +
		string(placeholders) + `) ORDER BY time ASC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: get many blobs: %w", err)
	}
	defer rows.Close()

	var blobs [][]byte
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("store: get many blobs: scan: %w", err)
		}
		blobs = append(blobs, data)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: get many blobs: %w", err)
	}
	if len(blobs) != len(times) {
		return nil, fmt.Errorf("store: get many blobs: expected %d rows, got %d", len(times), len(blobs))
	}
	return blobs, nil
}

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

// ChangesetType tags a CSet row as a full snapshot, a forward delta, or a
// tombstone (spec.md §3).
type ChangesetType int

const (
	Snapshot ChangesetType = 0
	Delta    ChangesetType = 1
	Delete   ChangesetType = 2
)

// IndexPageSize is the fixed page size for the Index endpoint (spec.md §4.G).
const IndexPageSize = 1000

// epoch is the lower bound substituted when no qualifying chain head
// exists, standing in for "beginning of time" in the correlated subquery.
const epoch = "1970-01-01 00:00:00"

// Row is one CSet entry.
type Row struct {
	Time time.Time
	Type ChangesetType
	Len  int
}

// TailChain returns the chain for (repoID, sha): the maximal suffix of
// rows starting at the latest non-DELTA row, bounded above by atOrBefore
// when non-nil. An empty result means the resource is absent as of the
// bound.
func TailChain(ctx context.Context, q querier, repoID int64, sha [20]byte, atOrBefore *time.Time) ([]Row, error) {
	var rows *sql.Rows
	var err error

	if atOrBefore == nil {
		rows, err = q.QueryContext(ctx, `
			SELECT time, type, len FROM cset
			WHERE repo_id = ? AND hkey_id = ?
			  AND time >= COALESCE((
			      SELECT time FROM cset
			      WHERE repo_id = ? AND hkey_id = ? AND type != ?
			      ORDER BY time DESC LIMIT 1), ?)
			ORDER BY time ASC`,
			repoID, sha[:], repoID, sha[:], Delta, epoch)
	} else {
		rows, err = q.QueryContext(ctx, `
			SELECT time, type, len FROM cset
			WHERE repo_id = ? AND hkey_id = ?
			  AND time <= ?
			  AND time >= COALESCE((
			      SELECT time FROM cset
			      WHERE repo_id = ? AND hkey_id = ? AND time <= ? AND type != ?
			      ORDER BY time DESC LIMIT 1), ?)
			ORDER BY time ASC`,
			repoID, sha[:], *atOrBefore, repoID, sha[:], *atOrBefore, Delta, epoch)
	}
	if err != nil {
		return nil, fmt.Errorf("store: tail chain: %w", err)
	}
	defer rows.Close()

	var chain []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Time, &r.Type, &r.Len); err != nil {
			return nil, fmt.Errorf("store: tail chain: scan: %w", err)
		}
		chain = append(chain, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: tail chain: %w", err)
	}
	return chain, nil
}

// LastEntry returns the most recent CSet row for (repoID, sha), or
// ErrNotFound if none exists.
func LastEntry(ctx context.Context, q querier, repoID int64, sha [20]byte) (Row, error) {
	var r Row
	row := q.QueryRowContext(ctx, `
		SELECT time, type, len FROM cset
		WHERE repo_id = ? AND hkey_id = ?
		ORDER BY time DESC LIMIT 1`, repoID, sha[:])

	if err := row.Scan(&r.Time, &r.Type, &r.Len); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Row{}, ErrNotFound
		}
		return Row{}, fmt.Errorf("store: last entry: %w", err)
	}
	return r, nil
}

// AppendCSet inserts exactly one CSet row.
func AppendCSet(ctx context.Context, e execer, repoID int64, sha [20]byte, t time.Time, typ ChangesetType, length int) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO cset (repo_id, hkey_id, time, type, len) VALUES (?, ?, ?, ?, ?)`,
		repoID, sha[:], t, typ, length)
	if err != nil {
		return fmt.Errorf("store: append cset: %w", err)
	}
	return nil
}

// TimeMap returns every CSet time for (repoID, sha), newest first.
func TimeMap(ctx context.Context, q querier, repoID int64, sha [20]byte) ([]time.Time, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT time FROM cset
		WHERE repo_id = ? AND hkey_id = ?
		ORDER BY time DESC`, repoID, sha[:])
	if err != nil {
		return nil, fmt.Errorf("store: timemap: %w", err)
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("store: timemap: scan: %w", err)
		}
		times = append(times, t)
	}
	if len(times) == 0 {
		return nil, ErrNotFound
	}
	return times, rows.Err()
}

// IndexAt returns page (1-indexed) of the keys whose latest CSet at or
// before atOrBefore is not a DELETE, plus whether a further page exists.
func IndexAt(ctx context.Context, q querier, repoID int64, atOrBefore time.Time, page int) (keys []string, hasMore bool, err error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * IndexPageSize

	rows, err := q.QueryContext(ctx, `
		SELECT hmap.val
		FROM cset
		JOIN hmap ON hmap.sha = cset.hkey_id
		JOIN (
			SELECT hkey_id, MAX(time) AS maxtime
			FROM cset
			WHERE repo_id = ? AND time <= ?
			GROUP BY hkey_id
		) latest ON latest.hkey_id = cset.hkey_id AND latest.maxtime = cset.time
		WHERE cset.repo_id = ? AND cset.time <= ? AND cset.type != ?
		ORDER BY hmap.val ASC
		LIMIT ? OFFSET ?`,
		repoID, atOrBefore, repoID, atOrBefore, Delete, IndexPageSize+1, offset)
	if err != nil {
		return nil, false, fmt.Errorf("store: index: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, false, fmt.Errorf("store: index: scan: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("store: index: %w", err)
	}

	if len(keys) > IndexPageSize {
		keys = keys[:IndexPageSize]
		hasMore = true
	}
	return keys, hasMore, nil
}

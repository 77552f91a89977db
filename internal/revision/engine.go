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

// Package revision implements the push/reconstruct/delete engine: the
// snapshot-vs-delta storage policy and chain walking that sit between the
// HTTP façade and the relational store.
package revision

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"tailr/internal/codec"
	"tailr/internal/rdf"
	"tailr/internal/store"
)

// mysqlDuplicateEntry is the error number MySQL/MariaDB returns for a
// uniqueness violation (ER_DUP_ENTRY), surfaced here when two concurrent
// pushes race to append the same (repoID, sha, ts) CSet row.
const mysqlDuplicateEntry = 1062

// SNAPF bounds how large the accumulated delta chain may grow relative to
// its base snapshot before a fresh snapshot is forced.
const SNAPF = 10.0

// Outcome describes what Push actually wrote.
type Outcome string

const (
	OutcomeSnapshot Outcome = "snapshot"
	OutcomeDelta    Outcome = "delta"
	OutcomeNoop     Outcome = "noop"
)

// Engine implements the push/reconstruct/delete algorithms. It holds no
// state of its own: every method takes the *sql.Conn the façade already
// acquired for the request, and works entirely in terms of it.
type Engine struct{}

// NewEngine constructs an Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Reconstruct walks the CSet chain for key as of asOf and returns the
// resulting statement set, along with the time of the chain entry that
// produced it (the Memento's Memento-Datetime).
func (e *Engine) Reconstruct(ctx context.Context, conn *sql.Conn, repoID int64, key []byte, asOf time.Time) (rdf.StatementSet, time.Time, error) {
	sha := codec.Sha(key)

	chain, err := store.TailChain(ctx, conn, repoID, sha, &asOf)
	if err != nil {
		return nil, time.Time{}, err
	}
	if len(chain) == 0 {
		return nil, time.Time{}, ErrNotFound
	}

	head := chain[len(chain)-1].Time

	if chain[0].Type == store.Delete {
		return nil, head, ErrGone
	}

	if len(chain) == 1 {
		blob, err := store.GetBlob(ctx, conn, repoID, sha, chain[0].Time)
		if err != nil {
			return nil, head, err
		}
		data, err := codec.Decompress(blob)
		if err != nil {
			return nil, head, fmt.Errorf("revision: reconstruct: %w", err)
		}
		return rdf.SplitLines(string(data)), head, nil
	}

	stmts, err := reconstructChain(ctx, conn, repoID, sha, chain)
	if err != nil {
		return nil, head, err
	}
	return stmts, head, nil
}

// reconstructChain decompresses chain[0] as a base snapshot and folds the
// remaining rows into it as successive patches.
func reconstructChain(ctx context.Context, conn *sql.Conn, repoID int64, sha [20]byte, chain []store.Row) (rdf.StatementSet, error) {
	times := make([]time.Time, len(chain))
	for i, row := range chain {
		times[i] = row.Time
	}

	blobs, err := store.GetManyBlobs(ctx, conn, repoID, sha, times)
	if err != nil {
		return nil, err
	}

	base, err := codec.Decompress(blobs[0])
	if err != nil {
		return nil, fmt.Errorf("revision: reconstruct: base: %w", err)
	}
	stmts := rdf.SplitLines(string(base))

	for i := 1; i < len(blobs); i++ {
		patch, err := codec.Decompress(blobs[i])
		if err != nil {
			return nil, fmt.Errorf("revision: reconstruct: patch: %w", err)
		}
		rdf.ApplyPatch(stmts, strings.Split(string(patch), "\n"))
	}
	return stmts, nil
}

// Push stores a new revision of key as observed at time ts. It parses body
// under mediaType, interns the key on first sight, diffs against the
// reconstructed head, and picks a snapshot or a delta per the SNAPF policy.
func (e *Engine) Push(ctx context.Context, conn *sql.Conn, repoID int64, key []byte, ts time.Time, body []byte, mediaType string) (Outcome, error) {
	sha := codec.Sha(key)

	last, err := store.LastEntry(ctx, conn, repoID, sha)
	noPrior := errors.Is(err, store.ErrNotFound)
	if err != nil && !noPrior {
		return "", err
	}
	if !noPrior && !ts.After(last.Time) {
		return "", ErrBadRequest
	}

	if noPrior {
		if _, err := store.Intern(ctx, conn, key); err != nil {
			if errors.Is(err, store.ErrHashCollision) {
				return "", ErrHashCollision
			}
			return "", err
		}
	}

	stmts, err := rdf.Parse(body, mediaType)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrParse, err)
	}

	snapshotBytes, err := codec.Compress([]byte(stmts.Join()))
	if err != nil {
		return "", fmt.Errorf("revision: push: %w", err)
	}

	chain, err := store.TailChain(ctx, conn, repoID, sha, nil)
	if err != nil {
		return "", err
	}

	var payload []byte
	var typ store.ChangesetType

	switch {
	case len(chain) == 0 || chain[0].Type == store.Delete:
		payload, typ = snapshotBytes, store.Snapshot

	default:
		prev, err := reconstructChain(ctx, conn, repoID, sha, chain)
		if err != nil {
			return "", err
		}
		if stmts.Equal(prev) {
			return OutcomeNoop, nil
		}

		diffLines := rdf.Diff(prev, stmts)
		deltaBytes, err := codec.Compress([]byte(strings.Join(diffLines, "\n")))
		if err != nil {
			return "", fmt.Errorf("revision: push: %w", err)
		}

		baseLen := chain[0].Len
		accLen := len(deltaBytes)
		for _, row := range chain[1:] {
			accLen += row.Len
		}

		if len(snapshotBytes) <= len(deltaBytes) || SNAPF*float64(baseLen) <= float64(accLen) {
			payload, typ = snapshotBytes, store.Snapshot
		} else {
			payload, typ = deltaBytes, store.Delta
		}
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("revision: push: begin tx: %w", err)
	}

	if err := store.PutBlob(ctx, tx, repoID, sha, ts, payload); err != nil {
		tx.Rollback()
		return "", err
	}
	if err := store.AppendCSet(ctx, tx, repoID, sha, ts, typ, len(payload)); err != nil {
		tx.Rollback()
		if isDuplicateEntry(err) {
			return "", ErrBadRequest
		}
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("revision: push: commit: %w", err)
	}

	if typ == store.Snapshot {
		return OutcomeSnapshot, nil
	}
	return OutcomeDelta, nil
}

// Delete appends a tombstone CSet row for key as of ts. Deleting a key with
// no CSet history, or with ts not after its latest entry, is ErrBadRequest;
// deleting an already-deleted key is a no-op.
func (e *Engine) Delete(ctx context.Context, conn *sql.Conn, repoID int64, key []byte, ts time.Time) error {
	sha := codec.Sha(key)

	last, err := store.LastEntry(ctx, conn, repoID, sha)
	if errors.Is(err, store.ErrNotFound) {
		return ErrBadRequest
	}
	if err != nil {
		return err
	}
	if !ts.After(last.Time) {
		return ErrBadRequest
	}
	if last.Type == store.Delete {
		return nil
	}
	return store.AppendCSet(ctx, conn, repoID, sha, ts, store.Delete, 0)
}

func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

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

package revision

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tailr/internal/codec"
	"tailr/internal/store"
)

func newMockConn(t *testing.T) (sqlmock.Sqlmock, *sql.Conn) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	conn, err := db.Conn(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return mock, conn
}

func compress(t *testing.T, s string) []byte {
	t.Helper()
	b, err := codec.Compress([]byte(s))
	require.NoError(t, err)
	return b
}

func TestPushFirstSnapshot(t *testing.T) {
	mock, conn := newMockConn(t)
	key := []byte("http://example.org/berlin")
	sha := codec.Sha(key)
	ts := time.Date(2015, 5, 11, 16, 56, 21, 0, time.UTC)

	mock.ExpectQuery("SELECT time, type, len FROM cset").
		WithArgs(int64(1), sha[:]).
		WillReturnError(sql.ErrNoRows)

	mock.ExpectExec("INSERT INTO hmap").
		WithArgs(sha[:], string(key)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	mock.ExpectQuery("SELECT time, type, len FROM cset").
		WithArgs(int64(1), sha[:], int64(1), sha[:], store.Delta, epochArg()).
		WillReturnRows(sqlmock.NewRows([]string{"time", "type", "len"}))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `blob`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO cset").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	e := NewEngine()
	outcome, err := e.Push(context.Background(), conn, 1, key, ts, []byte("<http://example.org/berlin> <http://example.org/name> \"Berlin\" ."), "application/n-triples")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSnapshot, outcome)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPushNoopWhenIdentical(t *testing.T) {
	mock, conn := newMockConn(t)
	key := []byte("http://example.org/berlin")
	sha := codec.Sha(key)
	t0 := time.Date(2015, 5, 11, 16, 56, 21, 0, time.UTC)
	ts := t0.Add(time.Hour)

	line := "<http://example.org/berlin> <http://example.org/name> \"Berlin\" ."
	baseBytes := compress(t, line)

	mock.ExpectQuery("SELECT time, type, len FROM cset").
		WithArgs(int64(1), sha[:]).
		WillReturnRows(sqlmock.NewRows([]string{"time", "type", "len"}).AddRow(t0, store.Snapshot, len(baseBytes)))

	mock.ExpectQuery("SELECT time, type, len FROM cset").
		WillReturnRows(sqlmock.NewRows([]string{"time", "type", "len"}).AddRow(t0, store.Snapshot, len(baseBytes)))

	mock.ExpectQuery("SELECT data FROM `blob`").
		WithArgs(int64(1), sha[:], t0).
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow(baseBytes))

	e := NewEngine()
	outcome, err := e.Push(context.Background(), conn, 1, key, ts, []byte(line), "application/n-triples")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoop, outcome)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPushDeltaWhenSmallChange(t *testing.T) {
	mock, conn := newMockConn(t)
	key := []byte("http://example.org/berlin")
	sha := codec.Sha(key)
	t0 := time.Date(2015, 5, 11, 16, 56, 21, 0, time.UTC)
	ts := t0.Add(time.Hour)

	var lines string
	for i := 0; i < 50; i++ {
		lines += fmt.Sprintf("<http://example.org/berlin> <http://example.org/fact%d> \"v%d\" .\n", i, i)
	}
	lines = lines[:len(lines)-1]
	baseBytes := compress(t, lines)

	newLines := lines + "\n<http://example.org/berlin> <http://example.org/fact50> \"v50\" ."

	mock.ExpectQuery("SELECT time, type, len FROM cset").
		WithArgs(int64(1), sha[:]).
		WillReturnRows(sqlmock.NewRows([]string{"time", "type", "len"}).AddRow(t0, store.Snapshot, 100000))

	mock.ExpectQuery("SELECT time, type, len FROM cset").
		WillReturnRows(sqlmock.NewRows([]string{"time", "type", "len"}).AddRow(t0, store.Snapshot, 100000))

	mock.ExpectQuery("SELECT data FROM `blob`").
		WithArgs(int64(1), sha[:], t0).
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow(baseBytes))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `blob`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO cset").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	e := NewEngine()
	outcome, err := e.Push(context.Background(), conn, 1, key, ts, []byte(newLines), "application/n-triples")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDelta, outcome)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPushForcesSnapshotBySNAPF(t *testing.T) {
	mock, conn := newMockConn(t)
	key := []byte("http://example.org/berlin")
	sha := codec.Sha(key)
	t0 := time.Date(2015, 5, 11, 16, 56, 21, 0, time.UTC)
	ts := t0.Add(time.Hour)

	line := "<http://example.org/berlin> <http://example.org/name> \"Berlin\" ."
	baseBytes := compress(t, line)
	newLine := line + "\n<http://example.org/berlin> <http://example.org/name2> \"Berlin2\" ."

	mock.ExpectQuery("SELECT time, type, len FROM cset").
		WithArgs(int64(1), sha[:]).
		WillReturnRows(sqlmock.NewRows([]string{"time", "type", "len"}).AddRow(t0, store.Snapshot, 1))

	mock.ExpectQuery("SELECT time, type, len FROM cset").
		WillReturnRows(sqlmock.NewRows([]string{"time", "type", "len"}).AddRow(t0, store.Snapshot, 1))

	mock.ExpectQuery("SELECT data FROM `blob`").
		WithArgs(int64(1), sha[:], t0).
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow(baseBytes))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `blob`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO cset").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	e := NewEngine()
	outcome, err := e.Push(context.Background(), conn, 1, key, ts, []byte(newLine), "application/n-triples")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSnapshot, outcome)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPushBadRequestNonMonotonic(t *testing.T) {
	mock, conn := newMockConn(t)
	key := []byte("http://example.org/berlin")
	sha := codec.Sha(key)
	t0 := time.Date(2015, 5, 11, 16, 56, 21, 0, time.UTC)

	mock.ExpectQuery("SELECT time, type, len FROM cset").
		WithArgs(int64(1), sha[:]).
		WillReturnRows(sqlmock.NewRows([]string{"time", "type", "len"}).AddRow(t0, store.Snapshot, 10))

	e := NewEngine()
	_, err := e.Push(context.Background(), conn, 1, key, t0.Add(-time.Hour), []byte("<a> <b> <c> ."), "application/n-triples")
	assert.ErrorIs(t, err, ErrBadRequest)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPushHashCollision(t *testing.T) {
	mock, conn := newMockConn(t)
	key := []byte("http://example.org/berlin")
	sha := codec.Sha(key)
	ts := time.Date(2015, 5, 11, 16, 56, 21, 0, time.UTC)

	mock.ExpectQuery("SELECT time, type, len FROM cset").
		WithArgs(int64(1), sha[:]).
		WillReturnError(sql.ErrNoRows)

	mock.ExpectExec("INSERT INTO hmap").
		WithArgs(sha[:], string(key)).
		WillReturnError(&mysql.MySQLError{Number: 1062})

	mock.ExpectQuery("SELECT val FROM hmap").
		WithArgs(sha[:]).
		WillReturnRows(sqlmock.NewRows([]string{"val"}).AddRow("a different key"))

	e := NewEngine()
	_, err := e.Push(context.Background(), conn, 1, key, ts, []byte("<a> <b> <c> ."), "application/n-triples")
	assert.ErrorIs(t, err, ErrHashCollision)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteSuccess(t *testing.T) {
	mock, conn := newMockConn(t)
	key := []byte("http://example.org/berlin")
	sha := codec.Sha(key)
	t0 := time.Date(2015, 5, 11, 16, 56, 21, 0, time.UTC)

	mock.ExpectQuery("SELECT time, type, len FROM cset").
		WithArgs(int64(1), sha[:]).
		WillReturnRows(sqlmock.NewRows([]string{"time", "type", "len"}).AddRow(t0, store.Snapshot, 10))

	mock.ExpectExec("INSERT INTO cset").
		WithArgs(int64(1), sha[:], t0.Add(time.Hour), store.Delete, 0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	e := NewEngine()
	err := e.Delete(context.Background(), conn, 1, key, t0.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteNotFoundIsBadRequest(t *testing.T) {
	mock, conn := newMockConn(t)
	key := []byte("http://example.org/berlin")
	sha := codec.Sha(key)

	mock.ExpectQuery("SELECT time, type, len FROM cset").
		WithArgs(int64(1), sha[:]).
		WillReturnError(sql.ErrNoRows)

	e := NewEngine()
	err := e.Delete(context.Background(), conn, 1, key, time.Now())
	assert.ErrorIs(t, err, ErrBadRequest)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAlreadyDeletedNoop(t *testing.T) {
	mock, conn := newMockConn(t)
	key := []byte("http://example.org/berlin")
	sha := codec.Sha(key)
	t0 := time.Date(2015, 5, 11, 16, 56, 21, 0, time.UTC)

	mock.ExpectQuery("SELECT time, type, len FROM cset").
		WithArgs(int64(1), sha[:]).
		WillReturnRows(sqlmock.NewRows([]string{"time", "type", "len"}).AddRow(t0, store.Delete, 0))

	e := NewEngine()
	err := e.Delete(context.Background(), conn, 1, key, t0.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReconstructSingleSnapshot(t *testing.T) {
	mock, conn := newMockConn(t)
	key := []byte("http://example.org/berlin")
	sha := codec.Sha(key)
	t0 := time.Date(2015, 5, 11, 16, 56, 21, 0, time.UTC)
	line := "<http://example.org/berlin> <http://example.org/name> \"Berlin\" ."
	baseBytes := compress(t, line)

	mock.ExpectQuery("SELECT time, type, len FROM cset").
		WillReturnRows(sqlmock.NewRows([]string{"time", "type", "len"}).AddRow(t0, store.Snapshot, len(baseBytes)))

	mock.ExpectQuery("SELECT data FROM `blob`").
		WithArgs(int64(1), sha[:], t0).
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow(baseBytes))

	e := NewEngine()
	stmts, head, err := e.Reconstruct(context.Background(), conn, 1, key, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, t0, head)
	assert.True(t, stmts.Contains(line))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReconstructGone(t *testing.T) {
	mock, conn := newMockConn(t)
	key := []byte("http://example.org/berlin")
	t0 := time.Date(2015, 5, 11, 16, 56, 21, 0, time.UTC)

	mock.ExpectQuery("SELECT time, type, len FROM cset").
		WillReturnRows(sqlmock.NewRows([]string{"time", "type", "len"}).AddRow(t0, store.Delete, 0))

	e := NewEngine()
	_, _, err := e.Reconstruct(context.Background(), conn, 1, key, t0.Add(time.Minute))
	assert.ErrorIs(t, err, ErrGone)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReconstructNotFound(t *testing.T) {
	mock, conn := newMockConn(t)
	key := []byte("http://example.org/berlin")

	mock.ExpectQuery("SELECT time, type, len FROM cset").
		WillReturnRows(sqlmock.NewRows([]string{"time", "type", "len"}))

	e := NewEngine()
	_, _, err := e.Reconstruct(context.Background(), conn, 1, key, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReconstructChainWithDelta(t *testing.T) {
	mock, conn := newMockConn(t)
	key := []byte("http://example.org/berlin")
	sha := codec.Sha(key)
	t0 := time.Date(2015, 5, 11, 16, 56, 21, 0, time.UTC)
	t1 := t0.Add(time.Hour)

	baseLine := "<http://example.org/berlin> <http://example.org/name> \"Berlin\" ."
	addedLine := "<http://example.org/berlin> <http://example.org/pop> \"3.6M\" ."
	baseBytes := compress(t, baseLine)
	patchBytes := compress(t, "A "+addedLine)

	mock.ExpectQuery("SELECT time, type, len FROM cset").
		WillReturnRows(sqlmock.NewRows([]string{"time", "type", "len"}).
			AddRow(t0, store.Snapshot, len(baseBytes)).
			AddRow(t1, store.Delta, len(patchBytes)))

	mock.ExpectQuery("SELECT data FROM `blob`").
		WithArgs(int64(1), sha[:], t0, t1).
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow(baseBytes).AddRow(patchBytes))

	e := NewEngine()
	stmts, head, err := e.Reconstruct(context.Background(), conn, 1, key, t1.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, t1, head)
	assert.True(t, stmts.Contains(baseLine))
	assert.True(t, stmts.Contains(addedLine))
	require.NoError(t, mock.ExpectationsWereMet())
}

func epochArg() any {
	return "1970-01-01 00:00:00"
}

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

package http

import (
	"database/sql"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tailr/internal/codec"
	"tailr/internal/revision"
	"tailr/internal/store"
)

// epochArg is the literal TailChain substitutes as the lower bound when no
// prior non-delta chain head exists.
func epochArg() any { return "1970-01-01 00:00:00" }

func sqlmockNoRows() error { return sql.ErrNoRows }

func newTestServer(t *testing.T) (*Server, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewServer(Config{
		ListenAddress: ":0",
		DB:            &store.DB{DB: db},
		Engine:        revision.NewEngine(),
	})
	return s, mock
}

func expectRepoLookup(mock sqlmock.Sqlmock, id int64) {
	mock.ExpectQuery("SELECT repo.id, repo.user_id, repo.name, repo.`desc`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "desc"}).
			AddRow(id, int64(1), "repo", ""))
}

func TestGetArgumentCombinationValidity(t *testing.T) {
	cases := []struct {
		name  string
		query string
	}{
		{"index and timemap", "index=true&timemap=true"},
		{"index and key", "index=true&key=http://example.org/x"},
		{"timemap without key", "timemap=true"},
		{"neither key nor index", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, mock := newTestServer(t)
			expectRepoLookup(mock, 1)

			req := httptest.NewRequest("GET", "/alice/repo?"+tc.query, nil)
			rec := httptest.NewRecorder()
			s.buildHandler().ServeHTTP(rec, req)

			assert.Equal(t, 400, rec.Code)
		})
	}
}

func TestMementoHeadersOnSuccess(t *testing.T) {
	s, mock := newTestServer(t)
	expectRepoLookup(mock, 1)

	key := "http://example.org/berlin"
	sha := codec.Sha([]byte(key))
	ts := time.Date(2015, 5, 11, 16, 56, 21, 0, time.UTC)
	blob, err := codec.Compress([]byte(`<http://example.org/berlin> <http://example.org/name> "Berlin" .`))
	require.NoError(t, err)

	mock.ExpectQuery("SELECT time, type, len FROM cset").
		WithArgs(int64(1), sha[:], sqlmock.AnyArg(), int64(1), sha[:], sqlmock.AnyArg(), store.Delta, epochArg()).
		WillReturnRows(sqlmock.NewRows([]string{"time", "type", "len"}).
			AddRow(ts, store.Snapshot, len(blob)))

	mock.ExpectQuery("SELECT data FROM `blob`").
		WithArgs(int64(1), sha[:], ts).
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow(blob))

	req := httptest.NewRequest("GET", "/alice/repo?key="+key, nil)
	rec := httptest.NewRecorder()
	s.buildHandler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "application/n-quads", rec.Header().Get("Content-Type"))
	assert.Equal(t, "accept-datetime", rec.Header().Get("Vary"))
	assert.NotEmpty(t, rec.Header().Get("Memento-Datetime"))
	assert.Contains(t, rec.Header().Get("Link"), `rel="original"`)
	assert.Contains(t, rec.Header().Get("Link"), `rel="timegate"`)
	assert.Contains(t, rec.Header().Get("Link"), `rel="timemap"`)
}

func TestPutWithoutAuthIsUnauthorized(t *testing.T) {
	s, mock := newTestServer(t)
	expectRepoLookup(mock, 1)

	req := httptest.NewRequest("PUT", "/alice/repo?key=http://example.org/berlin", nil)
	rec := httptest.NewRecorder()
	s.buildHandler().ServeHTTP(rec, req)

	assert.Equal(t, 401, rec.Code)
}

func TestPutWithWrongUserIsForbidden(t *testing.T) {
	s, mock := newTestServer(t)
	expectRepoLookup(mock, 1)

	mock.ExpectQuery("SELECT user.id, user.name").
		WithArgs("sometoken").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(2), "bob"))

	req := httptest.NewRequest("PUT", "/alice/repo?key=http://example.org/berlin", nil)
	req.Header.Set("Authorization", "token sometoken")
	rec := httptest.NewRecorder()
	s.buildHandler().ServeHTTP(rec, req)

	assert.Equal(t, 403, rec.Code)
}

func TestTimeMapUnknownKeyIsNotFound(t *testing.T) {
	s, mock := newTestServer(t)
	expectRepoLookup(mock, 1)

	key := "http://example.org/berlin"
	sha := codec.Sha([]byte(key))
	mock.ExpectQuery("SELECT time FROM cset").
		WithArgs(int64(1), sha[:]).
		WillReturnRows(sqlmock.NewRows([]string{"time"}))

	req := httptest.NewRequest("GET", "/alice/repo?key="+key+"&timemap=true", nil)
	rec := httptest.NewRecorder()
	s.buildHandler().ServeHTTP(rec, req)

	assert.Equal(t, 404, rec.Code)
}

func TestUnknownRepoIsNotFound(t *testing.T) {
	s, mock := newTestServer(t)
	mock.ExpectQuery("SELECT repo.id, repo.user_id, repo.name, repo.`desc`").
		WillReturnError(sqlmockNoRows())

	req := httptest.NewRequest("GET", "/alice/missing?key=http://example.org/x", nil)
	rec := httptest.NewRecorder()
	s.buildHandler().ServeHTTP(rec, req)

	assert.Equal(t, 404, rec.Code)
}

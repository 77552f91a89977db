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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tailr/internal/codec"
	"tailr/internal/revision"
	"tailr/internal/store"
)

// qsLayout is the "%Y-%m-%d-%H:%M:%S" query-string datetime format
// spec.md §4.A defines for ?datetime= parameters, always in UTC.
const qsLayout = "2006-01-02-15:04:05"

// rfc1123GMT is the fixed HTTP-date format ("%a, %d %b %Y %H:%M:%S GMT")
// used for Accept-Datetime, Memento-Datetime, and TimeMap link-format
// entries. "GMT" is a literal here, not a zone reference, since every
// time this package formats or parses is already normalized to UTC.
const rfc1123GMT = "Mon, 02 Jan 2006 15:04:05 GMT"

// parseAsOf resolves the as-of instant for a Memento/TimeGate or Index
// request: the ?datetime= query parameter, then Accept-Datetime, then now.
func parseAsOf(r *http.Request) (time.Time, error) {
	if qs := r.URL.Query().Get("datetime"); qs != "" {
		t, err := time.ParseInLocation(qsLayout, qs, time.UTC)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: invalid datetime %q", revision.ErrBadRequest, qs)
		}
		return t, nil
	}
	if hdr := r.Header.Get("Accept-Datetime"); hdr != "" {
		t, err := time.Parse(rfc1123GMT, hdr)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: invalid Accept-Datetime %q", revision.ErrBadRequest, hdr)
		}
		return t, nil
	}
	return time.Now().UTC(), nil
}

// handleMemento serves the combined Memento/TimeGate response: the
// reconstructed statement set as of asOf, or 404/410-as-404 per spec.md
// §4.F.1 when the key is absent or tombstoned as of that instant.
func (s *Server) handleMemento(w http.ResponseWriter, r *http.Request, conn *sql.Conn, repo store.Repo, key string) {
	asOf, err := parseAsOf(r)
	if err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	stmts, head, err := s.Engine.Reconstruct(r.Context(), conn, repo.ID, []byte(key), asOf)

	if s.Metrics != nil {
		result := "ok"
		if err != nil {
			result = "error"
		}
		s.Metrics.RecordReconstruct(result, time.Since(start))
	}

	w.Header().Set("Vary", "accept-datetime")
	w.Header().Set("Link", mementoLinkHeader(r, key))
	w.Header().Set("Content-Type", "application/n-quads")

	switch {
	case errors.Is(err, revision.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, "not found")
		return
	case errors.Is(err, revision.ErrGone):
		w.Header().Set("Memento-Datetime", head.Format(rfc1123GMT))
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, "gone")
		return
	case err != nil:
		writeError(w, err)
		return
	}

	w.Header().Set("Memento-Datetime", head.Format(rfc1123GMT))
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, stmts.Join())
}

func mementoLinkHeader(r *http.Request, key string) string {
	return fmt.Sprintf(`<%s>; rel="original", <%s>; rel="timegate", <%s>; rel="timemap"`,
		key, timegateURI(r, key), timemapURI(r, key))
}

func scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

func timegateURI(r *http.Request, key string) string {
	return fmt.Sprintf("%s://%s%s?key=%s", scheme(r), r.Host, r.URL.Path, url.QueryEscape(key))
}

func timemapURI(r *http.Request, key string) string {
	return fmt.Sprintf("%s://%s%s?key=%s&timemap=true", scheme(r), r.Host, r.URL.Path, url.QueryEscape(key))
}

func mementoURI(r *http.Request, key string, t time.Time) string {
	return fmt.Sprintf("%s://%s%s?key=%s&datetime=%s", scheme(r), r.Host, r.URL.Path, url.QueryEscape(key), t.UTC().Format(qsLayout))
}

// handleTimeMap serves the full version history of key, newest first, as
// either application/link-format or JSON depending on Accept.
func (s *Server) handleTimeMap(w http.ResponseWriter, r *http.Request, conn *sql.Conn, repo store.Repo, key string) {
	sha := codec.Sha([]byte(key))

	times, err := store.TimeMap(r.Context(), conn, repo.ID, sha)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	accept := r.Header.Get("Accept")
	if accept == "" || strings.Contains(accept, "application/json") || strings.Contains(accept, "*/*") {
		s.writeTimeMapJSON(w, r, key, times)
		return
	}
	s.writeTimeMapLinkFormat(w, r, key, times)
}

type timeMapEntry struct {
	Datetime string `json:"datetime"`
	URI      string `json:"uri"`
}

type timeMapList struct {
	List []timeMapEntry `json:"list"`
}

type timeMapResponse struct {
	OriginalURI string      `json:"original_uri"`
	Mementos    timeMapList `json:"mementos"`
}

func (s *Server) writeTimeMapJSON(w http.ResponseWriter, r *http.Request, key string, times []time.Time) {
	entries := make([]timeMapEntry, len(times))
	for i, t := range times {
		entries[i] = timeMapEntry{
			Datetime: t.UTC().Format(time.RFC3339),
			URI:      mementoURI(r, key, t),
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(timeMapResponse{
		OriginalURI: key,
		Mementos:    timeMapList{List: entries},
	})
}

func (s *Server) writeTimeMapLinkFormat(w http.ResponseWriter, r *http.Request, key string, times []time.Time) {
	var b strings.Builder
	fmt.Fprintf(&b, `<%s>; rel="original"`, key)
	for _, t := range times {
		fmt.Fprintf(&b, ",\n<%s>; rel=\"memento\"; datetime=\"%s\"; type=\"application/n-quads\"",
			mementoURI(r, key, t), t.UTC().Format(rfc1123GMT))
	}
	w.Header().Set("Content-Type", "application/link-format")
	io.WriteString(w, b.String())
}

// handleIndex serves one page of the repository's live keys as of asOf,
// one key per line, 1000 keys per page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request, conn *sql.Conn, repo store.Repo) {
	asOf, err := parseAsOf(r)
	if err != nil {
		writeError(w, err)
		return
	}

	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		n, convErr := strconv.Atoi(p)
		if convErr != nil || n < 1 {
			http.Error(w, "bad request: invalid page", http.StatusBadRequest)
			return
		}
		page = n
	}

	keys, _, err := store.IndexAt(r.Context(), conn, repo.ID, asOf, page)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Vary", "accept-datetime")
	w.Header().Set("Content-Type", "text/plain")
	for _, k := range keys {
		io.WriteString(w, k+"\n")
	}
}

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
	"errors"
	"net/http"
	"strings"

	"tailr/internal/revision"
	"tailr/internal/store"
)

// tokenPrefix is the scheme spec.md §4.H requires on the Authorization
// header: "token <value>", not the HTTP "Bearer" convention.
const tokenPrefix = "token "

// authenticate resolves the request's bearer token to a user and requires
// that user to own the path's username. It is only called for mutating
// verbs; GET never authenticates.
func (s *Server) authenticate(r *http.Request, conn *sql.Conn, username string) error {
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		return revision.ErrUnauthorized
	}

	user, err := store.ResolveToken(r.Context(), conn, token)
	if errors.Is(err, store.ErrNotFound) {
		return revision.ErrUnauthorized
	}
	if err != nil {
		return err
	}

	if user.Name != username {
		return revision.ErrForbidden
	}
	return nil
}

func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, tokenPrefix) {
		return "", false
	}
	value := strings.TrimPrefix(header, tokenPrefix)
	if value == "" {
		return "", false
	}
	return value, true
}

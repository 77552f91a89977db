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
	"errors"
	"net/http"

	"tailr/internal/revision"
	"tailr/internal/store"
)

// writeError maps a domain error to a status code through a single
// dispatch table. Request-shape checks in the handlers (missing key,
// conflicting query arguments, bad page, unknown path) write their 400/404
// responses directly instead.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, revision.ErrParse), errors.Is(err, revision.ErrBadRequest):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, revision.ErrUnauthorized):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, revision.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, revision.ErrNotFound), errors.Is(err, store.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, revision.ErrGone):
		http.Error(w, "gone", http.StatusNotFound)
	case errors.Is(err, revision.ErrHashCollision), errors.Is(err, store.ErrHashCollision):
		http.Error(w, "internal error", http.StatusInternalServerError)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

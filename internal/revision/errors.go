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

import "errors"

// The error kinds of spec.md §4.F.4 / §7. The HTTP façade maps each to a
// single status code via errors.Is.
var (
	ErrParse         = errors.New("revision: malformed request body")
	ErrBadRequest    = errors.New("revision: bad request")
	ErrUnauthorized  = errors.New("revision: unauthorized")
	ErrForbidden     = errors.New("revision: forbidden")
	ErrNotFound      = errors.New("revision: not found")
	ErrGone          = errors.New("revision: gone")
	ErrHashCollision = errors.New("revision: SHA-1 collision")
)

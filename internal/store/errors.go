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

import "errors"

var (
	// ErrNotFound is returned when a row lookup (repo, token, or chain
	// head) finds nothing.
	ErrNotFound = errors.New("store: not found")

	// ErrHashCollision is returned by Intern when two distinct keys hash
	// to the same SHA-1 digest (see spec.md §4.C).
	ErrHashCollision = errors.New("store: SHA-1 collision on key intern")
)

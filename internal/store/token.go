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
)

// ResolveToken maps a bearer token value to its owning user, the sole
// contract the core has with account/token management (spec.md §1).
func ResolveToken(ctx context.Context, q querier, value string) (User, error) {
	var u User
	row := q.QueryRowContext(ctx, `
		SELECT user.id, user.name
		FROM token
		JOIN user ON user.id = token.user_id
		WHERE token.value = ?`, value)

	if err := row.Scan(&u.ID, &u.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("store: resolve token: %w", err)
	}
	return u, nil
}

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

// Repo is a namespace owned by a user, unique on (user, name).
type Repo struct {
	ID     int64
	UserID int64
	Name   string
	Desc   string
}

// LookupRepo resolves a repository by its owning user's name and its own
// name, the join spec.md §4.H requires on every request.
func LookupRepo(ctx context.Context, q querier, username, reponame string) (Repo, error) {
	var r Repo
	row := q.QueryRowContext(ctx, `
		SELECT repo.id, repo.user_id, repo.name, repo.`+backtickDesc+`
		FROM repo
		JOIN user ON user.id = repo.user_id
		WHERE user.name = ? AND repo.name = ?`, username, reponame)

	if err := row.Scan(&r.ID, &r.UserID, &r.Name, &r.Desc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Repo{}, ErrNotFound
		}
		return Repo{}, fmt.Errorf("store: lookup repo: %w", err)
	}
	return r, nil
}

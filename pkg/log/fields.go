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

package log

import (
	"time"

	"go.uber.org/zap"
)

// Generic fields.

func String(key, val string) zap.Field       { return zap.String(key, val) }
func Int64(key string, val int64) zap.Field  { return zap.Int64(key, val) }
func Int(key string, val int) zap.Field      { return zap.Int(key, val) }
func Uint64(key string, val uint64) zap.Field { return zap.Uint64(key, val) }
func Bool(key string, val bool) zap.Field    { return zap.Bool(key, val) }
func Duration(key string, val time.Duration) zap.Field { return zap.Duration(key, val) }
func Time(key string, val time.Time) zap.Field { return zap.Time(key, val) }
func Err(err error) zap.Field                { return zap.Error(err) }
func Any(key string, val interface{}) zap.Field { return zap.Any(key, val) }
func Namespace(key string) zap.Field         { return zap.Namespace(key) }
func Component(name string) zap.Field        { return zap.String("component", name) }
func Phase(phase string) zap.Field           { return zap.String("phase", phase) }
func Count(count int64) zap.Field            { return zap.Int64("count", count) }
func Goroutine(name string) zap.Field        { return zap.String("goroutine", name) }
func RequestID(id string) zap.Field          { return zap.String("request_id", id) }
func RemoteAddr(addr string) zap.Field       { return zap.String("remote_addr", addr) }
func Method(method string) zap.Field         { return zap.String("method", method) }
func Path(path string) zap.Field             { return zap.String("path", path) }
func StatusCode(code int) zap.Field          { return zap.Int("status", code) }

// Domain fields.

// Repo names the "user/repo" this log entry concerns.
func Repo(user, repo string) zap.Field {
	return zap.String("repo", user+"/"+repo)
}

// Key logs an interned key by its hex SHA-1 digest, matching what HMap stores.
func Key(sha string) zap.Field {
	return zap.String("key", sha)
}

// ChangesetType labels a log entry with "snapshot", "delta" or "delete".
func ChangesetType(kind string) zap.Field {
	return zap.String("changeset_type", kind)
}

// StatementCount logs the size of a parsed or reconstructed statement set.
func StatementCount(n int) zap.Field {
	return zap.Int("statement_count", n)
}

// BlobBytes logs the compressed size of a stored blob.
func BlobBytes(n int) zap.Field {
	return zap.Int("blob_bytes", n)
}

// Username redacts nothing but gives the field a stable name across entries.
func Username(name string) zap.Field {
	return zap.String("username", name)
}

// Token logs a bearer token with everything but its first 8 characters
// replaced, so tokens never reach log storage in full.
func Token(token string) zap.Field {
	if len(token) > 8 {
		return zap.String("token", token[:8]+"...")
	}
	return zap.String("token", "***")
}

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
	"fmt"
	"net/http"
	"strings"
	"time"

	"tailr/pkg/log"
	"tailr/pkg/reliability"
)

// buildHandler assembles the middleware chain in the order spec.md §4.H
// lists: panic recovery, request-scoped logging, request metrics, the
// in-flight request limiter, and finally route dispatch (which performs
// auth resolution itself, since it alone knows the path's username).
func (s *Server) buildHandler() http.Handler {
	var h http.Handler = http.HandlerFunc(s.route)

	if s.Limiter != nil {
		h = s.Limiter.Middleware(h)
	}
	h = s.metricsMiddleware(h)
	h = loggingMiddleware(h)
	h = reliability.PanicMiddleware(h)

	return h
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Info("http request",
			log.String("method", r.Method),
			log.String("path", r.URL.Path),
			log.String("key", r.URL.Query().Get("key")),
		)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	if s.Metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.Metrics.RecordHTTPRequest(r.Method, routeLabel(r.URL.Path), statusClass(rec.status), time.Since(start))
	})
}

func statusClass(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}

func routeLabel(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 2 && segments[0] != "" && segments[1] != "" {
		return "/:user/:repo"
	}
	return "other"
}

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

// Package http is the Memento/TimeGate/TimeMap/Index façade: route
// dispatch, query/header parsing, auth callout, and per-request
// connection discipline over the revision engine.
package http

import (
	"context"
	"net/http"
	"time"

	"tailr/internal/revision"
	"tailr/internal/store"
	"tailr/pkg/log"
	"tailr/pkg/metrics"
	"tailr/pkg/reliability"
)

// Server serves the repo-scoped Memento HTTP surface.
type Server struct {
	DB      *store.DB
	Engine  *revision.Engine
	Metrics *metrics.Metrics
	Limiter *reliability.RequestLimiter

	httpServer *http.Server
}

// Config wires a Server to its dependencies.
type Config struct {
	ListenAddress string
	DB            *store.DB
	Engine        *revision.Engine
	Metrics       *metrics.Metrics
	Limiter       *reliability.RequestLimiter
}

// NewServer builds a Server from cfg.
func NewServer(cfg Config) *Server {
	s := &Server{
		DB:      cfg.DB,
		Engine:  cfg.Engine,
		Metrics: cfg.Metrics,
		Limiter: cfg.Limiter,
	}

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           s.buildHandler(),
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s
}

// Start runs the HTTP server. It blocks until the server stops.
func (s *Server) Start() error {
	log.Info("starting HTTP API server",
		log.String("address", s.httpServer.Addr),
		log.Component("http"))

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	log.Info("stopping HTTP API server", log.Component("http"))
	return s.httpServer.Shutdown(ctx)
}

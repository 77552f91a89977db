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

package health

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status represents the health status of a single check or of the report
// as a whole.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// CheckResult is the outcome of a single Checker run.
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency int64  `json:"latency_ms,omitempty"`
}

// HealthReport aggregates every registered Checker's CheckResult.
type HealthReport struct {
	Status    Status                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

// Checker is anything that can report on its own health.
type Checker interface {
	Check(ctx context.Context) (Status, string, error)
	Name() string
}

// HealthServer serves the aggregate health report over HTTP, caching it
// briefly so a burst of probe traffic does not itself become load.
type HealthServer struct {
	mu       sync.RWMutex
	checkers []Checker
	logger   *zap.Logger

	cachedReport    *HealthReport
	cacheValidUntil time.Time
	cacheDuration   time.Duration
}

// NewHealthServer creates a health server with no registered checkers.
func NewHealthServer(logger *zap.Logger) *HealthServer {
	return &HealthServer{
		checkers:      make([]Checker, 0),
		logger:        logger,
		cacheDuration: 5 * time.Second,
	}
}

// RegisterChecker adds a Checker to the server's roster.
func (hs *HealthServer) RegisterChecker(checker Checker) {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	hs.checkers = append(hs.checkers, checker)
	hs.logger.Info("registered health checker", zap.String("name", checker.Name()))
}

// Check runs every registered Checker, or returns the cached report if it
// is still fresh.
func (hs *HealthServer) Check(ctx context.Context) *HealthReport {
	hs.mu.RLock()
	if hs.cachedReport != nil && time.Now().Before(hs.cacheValidUntil) {
		cached := hs.cachedReport
		hs.mu.RUnlock()
		return cached
	}
	hs.mu.RUnlock()

	hs.mu.Lock()
	defer hs.mu.Unlock()

	report := &HealthReport{
		Status:    StatusHealthy,
		Timestamp: time.Now().Format(time.RFC3339),
		Checks:    make(map[string]CheckResult),
	}

	for _, checker := range hs.checkers {
		startTime := time.Now()
		status, message, err := checker.Check(ctx)
		latency := time.Since(startTime).Milliseconds()

		if err != nil {
			status = StatusUnhealthy
			message = err.Error()
		}

		report.Checks[checker.Name()] = CheckResult{
			Status:  status,
			Message: message,
			Latency: latency,
		}

		if status == StatusUnhealthy {
			report.Status = StatusUnhealthy
		} else if status == StatusDegraded && report.Status != StatusUnhealthy {
			report.Status = StatusDegraded
		}
	}

	hs.cachedReport = report
	hs.cacheValidUntil = time.Now().Add(hs.cacheDuration)

	return report
}

// ServeHTTP serves the full JSON health report.
func (hs *HealthServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	report := hs.Check(ctx)

	w.Header().Set("Content-Type", "application/json")

	if report.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(report)
}

// ReadinessHandler answers a readiness probe: 200 if healthy or degraded,
// 503 if unhealthy.
func (hs *HealthServer) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		report := hs.Check(ctx)

		if report.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("Not Ready\n"))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Ready\n"))
	}
}

// LivenessHandler answers a liveness probe without running any checks.
func (hs *HealthServer) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Alive\n"))
	}
}

// StartHealthServer runs a dedicated HTTP server exposing /health,
// /readiness and /liveness. It blocks until the server stops.
func StartHealthServer(addr string, hs *HealthServer, logger *zap.Logger) error {
	mux := http.NewServeMux()

	mux.Handle("/health", hs)
	mux.HandleFunc("/readiness", hs.ReadinessHandler())
	mux.HandleFunc("/liveness", hs.LivenessHandler())

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html>
<head><title>tailr health</title></head>
<body>
<h1>tailr health check server</h1>
<p>Available endpoints:</p>
<ul>
<li><a href="/health">/health</a> - detailed health status (JSON)</li>
<li><a href="/readiness">/readiness</a> - readiness probe</li>
<li><a href="/liveness">/liveness</a> - liveness probe</li>
</ul>
</body>
</html>`)
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("starting health check server", zap.String("addr", addr))
	return server.ListenAndServe()
}

// StoreChecker wraps an arbitrary function as a Checker, used for checks
// that don't warrant their own type.
type StoreChecker struct {
	name      string
	checkFunc func(context.Context) error
}

// NewStoreChecker builds a Checker from a plain check function.
func NewStoreChecker(name string, checkFunc func(context.Context) error) *StoreChecker {
	return &StoreChecker{name: name, checkFunc: checkFunc}
}

func (sc *StoreChecker) Name() string { return sc.name }

func (sc *StoreChecker) Check(ctx context.Context) (Status, string, error) {
	if err := sc.checkFunc(ctx); err != nil {
		return StatusUnhealthy, fmt.Sprintf("check failed: %v", err), err
	}
	return StatusHealthy, "operational", nil
}

// DBChecker reports whether the database is reachable via a lightweight
// ping, acquiring and releasing a pooled connection exactly like a request
// handler would.
type DBChecker struct {
	name string
	db   *sql.DB
}

// NewDBChecker builds a Checker that pings db.
func NewDBChecker(name string, db *sql.DB) *DBChecker {
	return &DBChecker{name: name, db: db}
}

func (dc *DBChecker) Name() string { return dc.name }

func (dc *DBChecker) Check(ctx context.Context) (Status, string, error) {
	conn, err := dc.db.Conn(ctx)
	if err != nil {
		return StatusUnhealthy, fmt.Sprintf("acquire connection: %v", err), err
	}
	defer conn.Close()

	if err := conn.PingContext(ctx); err != nil {
		return StatusUnhealthy, fmt.Sprintf("ping failed: %v", err), err
	}

	stats := dc.db.Stats()
	if stats.OpenConnections >= stats.MaxOpenConnections && stats.MaxOpenConnections > 0 {
		return StatusDegraded, "connection pool saturated", nil
	}

	return StatusHealthy, "database reachable", nil
}

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
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockChecker struct {
	name   string
	status Status
	msg    string
	err    error
}

func (mc *mockChecker) Name() string {
	return mc.name
}

func (mc *mockChecker) Check(ctx context.Context) (Status, string, error) {
	return mc.status, mc.msg, mc.err
}

func TestHealthServer_Check(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	hs := NewHealthServer(logger)

	hs.RegisterChecker(&mockChecker{name: "database", status: StatusHealthy, msg: "reachable"})
	hs.RegisterChecker(&mockChecker{name: "self", status: StatusHealthy, msg: "ok"})

	report := hs.Check(context.Background())

	assert.Equal(t, StatusHealthy, report.Status)
	assert.Equal(t, 2, len(report.Checks))
	assert.Equal(t, StatusHealthy, report.Checks["database"].Status)
	assert.Equal(t, StatusHealthy, report.Checks["self"].Status)
}

func TestHealthServer_Check_Unhealthy(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	hs := NewHealthServer(logger)

	hs.RegisterChecker(&mockChecker{name: "self", status: StatusHealthy, msg: "ok"})
	hs.RegisterChecker(&mockChecker{
		name:   "database",
		status: StatusUnhealthy,
		msg:    "connection lost",
		err:    fmt.Errorf("connection lost"),
	})

	report := hs.Check(context.Background())

	assert.Equal(t, StatusUnhealthy, report.Status)
	assert.Equal(t, StatusHealthy, report.Checks["self"].Status)
	assert.Equal(t, StatusUnhealthy, report.Checks["database"].Status)
}

func TestHealthServer_Check_Degraded(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	hs := NewHealthServer(logger)

	hs.RegisterChecker(&mockChecker{name: "self", status: StatusHealthy, msg: "ok"})
	hs.RegisterChecker(&mockChecker{name: "database", status: StatusDegraded, msg: "pool saturated"})

	report := hs.Check(context.Background())

	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, StatusHealthy, report.Checks["self"].Status)
	assert.Equal(t, StatusDegraded, report.Checks["database"].Status)
}

func TestHealthServer_HTTPHandler(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	hs := NewHealthServer(logger)

	hs.RegisterChecker(&mockChecker{name: "self", status: StatusHealthy, msg: "ok"})

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	hs.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var report HealthReport
	err := json.NewDecoder(w.Body).Decode(&report)
	require.NoError(t, err)

	assert.Equal(t, StatusHealthy, report.Status)
	assert.Equal(t, 1, len(report.Checks))
}

func TestHealthServer_HTTPHandler_Unhealthy(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	hs := NewHealthServer(logger)

	hs.RegisterChecker(&mockChecker{name: "database", status: StatusUnhealthy, msg: "unreachable"})

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	hs.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var report HealthReport
	err := json.NewDecoder(w.Body).Decode(&report)
	require.NoError(t, err)

	assert.Equal(t, StatusUnhealthy, report.Status)
}

func TestHealthServer_ReadinessHandler(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	hs := NewHealthServer(logger)

	hs.RegisterChecker(&mockChecker{name: "database", status: StatusHealthy, msg: "reachable"})

	req := httptest.NewRequest("GET", "/readiness", nil)
	w := httptest.NewRecorder()

	hs.ReadinessHandler()(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ready\n", w.Body.String())
}

func TestHealthServer_ReadinessHandler_NotReady(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	hs := NewHealthServer(logger)

	hs.RegisterChecker(&mockChecker{name: "database", status: StatusUnhealthy, msg: "unreachable"})

	req := httptest.NewRequest("GET", "/readiness", nil)
	w := httptest.NewRecorder()

	hs.ReadinessHandler()(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "Not Ready\n", w.Body.String())
}

func TestHealthServer_LivenessHandler(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	hs := NewHealthServer(logger)

	req := httptest.NewRequest("GET", "/liveness", nil)
	w := httptest.NewRecorder()

	hs.LivenessHandler()(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Alive\n", w.Body.String())
}

func TestStoreChecker(t *testing.T) {
	checker := NewStoreChecker("database", func(ctx context.Context) error {
		return nil
	})

	status, msg, err := checker.Check(context.Background())
	assert.Equal(t, StatusHealthy, status)
	assert.Contains(t, msg, "operational")
	assert.NoError(t, err)

	checker = NewStoreChecker("database", func(ctx context.Context) error {
		return fmt.Errorf("connection refused")
	})

	status, msg, err = checker.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, status)
	assert.Contains(t, msg, "failed")
	assert.Error(t, err)
}

func TestHealthServer_Cache(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	hs := NewHealthServer(logger)

	hs.RegisterChecker(&mockChecker{name: "database", status: StatusHealthy, msg: "reachable"})

	report1 := hs.Check(context.Background())
	report2 := hs.Check(context.Background())

	assert.Equal(t, report1.Timestamp, report2.Timestamp)
}

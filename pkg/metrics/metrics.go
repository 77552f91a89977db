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

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "tailr"
)

// Metrics holds every Prometheus collector the server registers.
type Metrics struct {
	// HTTP request metrics.
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestTotal    *prometheus.CounterVec
	HTTPRequestInFlight prometheus.Gauge

	// Revision engine metrics.
	PushTotal        *prometheus.CounterVec // label: outcome (snapshot, delta, noop, error)
	PushDuration     *prometheus.HistogramVec
	DeleteTotal      *prometheus.CounterVec // label: result (ok, error)
	ReconstructTotal *prometheus.CounterVec // label: result (ok, error)
	ReconstructDuration *prometheus.HistogramVec

	// Storage metrics.
	HashCollisionsTotal prometheus.Counter
	BlobBytesWritten    prometheus.Counter

	// Reliability metrics.
	PanicsRecovered   *prometheus.CounterVec
	RequestsRejected  prometheus.Counter
}

// New builds and registers every collector against registry.
func New(registry *prometheus.Registry) *Metrics {
	return &Metrics{
		HTTPRequestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Histogram of HTTP request latencies.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status_class"},
		),

		HTTPRequestTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled.",
			},
			[]string{"method", "route", "status_class"},
		),

		HTTPRequestInFlight: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Current number of in-flight HTTP requests.",
			},
		),

		PushTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "revision",
				Name:      "push_total",
				Help:      "Total number of pushes, by storage outcome.",
			},
			[]string{"outcome"},
		),

		PushDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "revision",
				Name:      "push_duration_seconds",
				Help:      "Histogram of push latencies.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),

		DeleteTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "revision",
				Name:      "delete_total",
				Help:      "Total number of deletes, by result.",
			},
			[]string{"result"},
		),

		ReconstructTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "revision",
				Name:      "reconstruct_total",
				Help:      "Total number of revision reconstructions, by result.",
			},
			[]string{"result"},
		),

		ReconstructDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "revision",
				Name:      "reconstruct_duration_seconds",
				Help:      "Histogram of chain-walk reconstruction latencies.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"result"},
		),

		HashCollisionsTotal: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "storage",
				Name:      "hash_collisions_total",
				Help:      "Total number of SHA-1 key-interning collisions detected.",
			},
		),

		BlobBytesWritten: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "storage",
				Name:      "blob_bytes_written_total",
				Help:      "Total compressed bytes written to the blob store.",
			},
		),

		PanicsRecovered: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "server",
				Name:      "panics_recovered_total",
				Help:      "Total number of panics recovered in request handlers.",
			},
			[]string{"route"},
		),

		RequestsRejected: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "server",
				Name:      "requests_rejected_total",
				Help:      "Total number of requests rejected by the in-flight limiter.",
			},
		),
	}
}

// RecordHTTPRequest records one completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route, statusClass string, duration time.Duration) {
	m.HTTPRequestDuration.WithLabelValues(method, route, statusClass).Observe(duration.Seconds())
	m.HTTPRequestTotal.WithLabelValues(method, route, statusClass).Inc()
}

// RecordPush records one completed push, classified by storage outcome
// ("snapshot", "delta", or "noop"), or "error" for a failed push.
func (m *Metrics) RecordPush(outcome string, duration time.Duration) {
	m.PushTotal.WithLabelValues(outcome).Inc()
	m.PushDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordDelete records one completed delete.
func (m *Metrics) RecordDelete(result string) {
	m.DeleteTotal.WithLabelValues(result).Inc()
}

// RecordReconstruct records one completed reconstruction.
func (m *Metrics) RecordReconstruct(result string, duration time.Duration) {
	m.ReconstructTotal.WithLabelValues(result).Inc()
	m.ReconstructDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// RecordHashCollision increments the HMap collision counter.
func (m *Metrics) RecordHashCollision() {
	m.HashCollisionsTotal.Inc()
}

// RecordBlobWrite adds n compressed bytes to the blob-write counter.
func (m *Metrics) RecordBlobWrite(n int) {
	m.BlobBytesWritten.Add(float64(n))
}

// RecordPanicRecovered records a recovered panic for the given route.
func (m *Metrics) RecordPanicRecovered(route string) {
	m.PanicsRecovered.WithLabelValues(route).Inc()
}

// RecordRequestRejected records a request turned away by the in-flight limiter.
func (m *Metrics) RecordRequestRejected() {
	m.RequestsRejected.Inc()
}

// Copyright (C) 2025 The kbchat Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the orchestrator.
//
// Metrics cover chat request outcomes, retry pressure against Bedrock,
// and session store population. Exposed via /metrics for scraping.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "kbchat"
	chatSubsystem    = "chat"
)

// Mode labels a chat request by how it was answered.
type Mode string

const (
	// ModeBedrock means the request went to the knowledge base.
	ModeBedrock Mode = "bedrock"

	// ModeMock means the offline responder answered.
	ModeMock Mode = "mock"
)

// Metrics holds all Prometheus instruments for the chat orchestrator.
// Initialize once at startup via InitMetrics().
//
// # Fields
//
//   - RequestsTotal: Counter of chat requests by mode and status.
//   - RetryAttemptsTotal: Counter of individual Bedrock attempts.
//   - RequestDurationSeconds: Histogram of end-to-end chat latency.
//   - TrackedSessions: Gauge of sessions currently in the store.
//   - SessionsSweptTotal: Counter of sessions removed by expiry sweeps.
type Metrics struct {
	// RequestsTotal counts chat requests.
	// Labels: mode (bedrock, mock), status (success, error)
	RequestsTotal *prometheus.CounterVec

	// RetryAttemptsTotal counts Bedrock query attempts, including the
	// first one, so attempts > requests indicates retry pressure.
	RetryAttemptsTotal prometheus.Counter

	// RequestDurationSeconds measures chat handling latency.
	// Labels: mode (bedrock, mock)
	RequestDurationSeconds *prometheus.HistogramVec

	// TrackedSessions tracks the current session store population.
	TrackedSessions prometheus.Gauge

	// SessionsSweptTotal counts sessions evicted by TTL sweeps.
	SessionsSweptTotal prometheus.Counter
}

// DefaultMetrics is the singleton instance, set by InitMetrics().
var DefaultMetrics *Metrics

// InitMetrics creates and registers all instruments on the default
// registry. Call once at startup; a second call panics on duplicate
// registration.
func InitMetrics() *Metrics {
	DefaultMetrics = &Metrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "requests_total",
				Help:      "Total chat requests by mode and status",
			},
			[]string{"mode", "status"},
		),

		RetryAttemptsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "retry_attempts_total",
				Help:      "Total Bedrock query attempts including retries",
			},
		),

		RequestDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "request_duration_seconds",
				Help:      "End-to-end chat request latency in seconds",
				Buckets:   []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"mode"},
		),

		TrackedSessions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "sessions",
				Name:      "tracked",
				Help:      "Number of sessions currently tracked in the store",
			},
		),

		SessionsSweptTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "sessions",
				Name:      "swept_total",
				Help:      "Total sessions removed by expiry sweeps",
			},
		),
	}
	return DefaultMetrics
}

// RecordRequest records a completed chat request.
func (m *Metrics) RecordRequest(mode Mode, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(string(mode), status).Inc()
}

// RecordDuration records end-to-end chat latency.
func (m *Metrics) RecordDuration(mode Mode, seconds float64) {
	m.RequestDurationSeconds.WithLabelValues(string(mode)).Observe(seconds)
}

// SetTrackedSessions updates the session population gauge.
func (m *Metrics) SetTrackedSessions(n int) {
	m.TrackedSessions.Set(float64(n))
}

// RecordSwept adds to the swept-session counter.
func (m *Metrics) RecordSwept(n int) {
	if n > 0 {
		m.SessionsSweptTotal.Add(float64(n))
	}
}

// StrideSync - Strava Activity Sync Engine
// Copyright 2026 Open Pace Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openpace/stridesync

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Strava API Client Metrics
	StravaAPIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strava_api_requests_total",
			Help: "Total number of Strava API requests by endpoint and outcome",
		},
		[]string{"endpoint", "status"},
	)

	StravaRateLimitWaits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "strava_rate_limit_waits_total",
			Help: "Total number of waits caused by Strava HTTP 429 responses",
		},
	)

	StravaTokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strava_token_refreshes_total",
			Help: "Total number of OAuth token refresh attempts by result",
		},
		[]string{"result"}, // "success", "failure"
	)

	// Sync Run Metrics
	SyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Total number of sync passes by result",
		},
		[]string{"result"}, // "clean", "partial", "failed"
	)

	SyncAthletesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_athletes_processed_total",
			Help: "Total number of athletes fully processed across all sync passes",
		},
	)

	SyncActivitiesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_activities_created_total",
			Help: "Total number of new activity records created",
		},
	)

	SyncActivitiesEnriched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_activities_enriched_total",
			Help: "Total number of activities upgraded with detail payloads",
		},
	)

	SyncErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_errors_total",
			Help: "Total number of per-athlete and per-record sync errors",
		},
	)

	SyncRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_run_duration_seconds",
			Help:    "Duration of complete sync passes in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	SyncLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_last_run_timestamp_seconds",
			Help: "Unix timestamp of the last completed sync pass",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total requests through the circuit breaker by result",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// Ops API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of ops API requests",
		},
		[]string{"method", "path", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of ops API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// ObserveDBQuery records the duration of a database operation. Call with the
// operation start time, typically via defer.
func ObserveDBQuery(operation, table string, start time.Time) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}

// RecordDBError increments the error counter for a database operation.
func RecordDBError(operation, table string) {
	DBQueryErrors.WithLabelValues(operation, table).Inc()
}

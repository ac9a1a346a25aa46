// StrideSync - Strava Activity Sync Engine
// Copyright 2026 Open Pace Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openpace/stridesync

// Package metrics defines the Prometheus instrumentation for StrideSync.
//
// Metrics cover the Strava API client (request counts, rate limit waits,
// token refreshes, circuit breaker state), sync runs (records created,
// enriched, errors, durations), the DuckDB storage layer, and the ops HTTP
// API. All collectors are registered on the default registry via promauto
// and exposed at /metrics by the ops server.
package metrics

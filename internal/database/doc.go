// StrideSync - Strava Activity Sync Engine
// Copyright 2026 Open Pace Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openpace/stridesync

// Package database provides DuckDB-backed storage for athletes and
// activities.
//
// The schema is two tables keyed by Strava's external identifiers:
// athletes (credentials + sync checkpoint) and activities (metrics + raw
// payload snapshot). Writes are upserts on the external id, which is what
// makes the sync engine's overlap window safe: re-fetching a window can
// never produce duplicate rows.
//
// DB satisfies the sync engine's Store interface and the ops API's stats
// interface; both depend on the interface, not this package, so tests
// substitute in-memory fakes.
package database

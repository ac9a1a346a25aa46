// StrideSync - Strava Activity Sync Engine
// Copyright 2026 Open Pace Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openpace/stridesync

// Package sync implements the Strava synchronization engine.
//
// The engine pulls activities for every active athlete in the store and
// reconciles them into the local database. Each pass walks the athlete
// roster sequentially: refresh the OAuth token if it is near expiry, fetch
// summary activities newer than the athlete's checkpoint (with a one-hour
// overlap to absorb clock skew and late edits), enrich qualifying endurance
// activities with their detailed payloads, and upsert everything keyed by
// the Strava activity id so re-syncs are idempotent.
//
// Failures are isolated per athlete and per activity: a bad credential or a
// broken record is counted and logged, then the pass moves on. Outbound
// traffic is paced with token-bucket limiters and HTTP 429 responses are
// retried with the Retry-After delay the API asks for, up to a bounded
// number of attempts. The Strava client is wrapped in a circuit breaker so
// a dead upstream fails fast instead of burning the rate-limit budget.
package sync

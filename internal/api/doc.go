// StrideSync - Strava Activity Sync Engine
// Copyright 2026 Open Pace Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openpace/stridesync

// Package api exposes the operational HTTP surface: health, Prometheus
// metrics, store statistics, manual sync triggering, and athlete
// onboarding via the OAuth code exchange.
package api

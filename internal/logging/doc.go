// StrideSync - Strava Activity Sync Engine
// Copyright 2026 Open Pace Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openpace/stridesync

// Package logging provides centralized zerolog-based logging for StrideSync.
//
// All packages log through the global logger configured here. JSON output is
// the default; console output is available for local development. An slog
// adapter bridges zerolog to libraries that require *slog.Logger, such as
// sutureslog for supervisor event logging.
package logging

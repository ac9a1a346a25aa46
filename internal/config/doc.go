// StrideSync - Strava Activity Sync Engine
// Copyright 2026 Open Pace Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openpace/stridesync

// Package config loads and validates StrideSync configuration.
//
// Configuration is layered with Koanf v2: built-in defaults, then an
// optional YAML config file, then STRIDESYNC_* environment variables.
// Later layers override earlier ones. Validation combines struct tags
// (go-playground/validator) with explicit checks for durations and
// cross-field constraints.
package config

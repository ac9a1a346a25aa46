// StrideSync - Strava Activity Sync Engine
// Copyright 2026 Open Pace Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openpace/stridesync

// Package models defines the domain types shared across StrideSync:
// athletes, stored activities, and sync run statistics. Wire-format types
// for the Strava API live in the strava subpackage.
package models

// StrideSync - Strava Activity Sync Engine
// Copyright 2026 Open Pace Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openpace/stridesync

package sync

import (
	"strings"

	"github.com/openpace/stridesync/internal/models/strava"
)

// detailSports are the sport types worth a second API call for the full
// payload. Only endurance activities carry the splits, segment efforts, and
// stream summaries that justify spending request budget on them.
var detailSports = map[string]struct{}{
	"run":         {},
	"ride":        {},
	"virtualrun":  {},
	"virtualride": {},
}

// Detail fetch gates: short jogs and commute blips are not worth the call.
const (
	detailMinDistance = 1000.0 // meters
	detailMinElapsed  = 600    // seconds
)

// needsDetail reports whether a summary activity qualifies for detail
// enrichment: an endurance sport, longer than a kilometer, and longer than
// ten minutes. Missing metrics fail the gate rather than guess.
func needsDetail(activity *strava.SummaryActivity) bool {
	if _, ok := detailSports[strings.ToLower(activity.SportType)]; !ok {
		return false
	}
	if activity.Distance == nil || *activity.Distance <= detailMinDistance {
		return false
	}
	if activity.ElapsedTime == nil || *activity.ElapsedTime <= detailMinElapsed {
		return false
	}
	return true
}

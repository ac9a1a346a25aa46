// StrideSync - Strava Activity Sync Engine
// Copyright 2026 Open Pace Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openpace/stridesync

package sync

import (
	"time"

	"github.com/openpace/stridesync/internal/models"
)

// overlapWindow is subtracted from the checkpoint when computing the fetch
// window. The hour of overlap absorbs clock skew between us and Strava and
// re-captures activities edited shortly after the previous pass saw them.
// Re-fetching the overlap is harmless: upserts are idempotent.
const overlapWindow = time.Hour

// computeWindow returns the [after, before] fetch window for an athlete.
// A previously synced athlete resumes from their checkpoint minus the
// overlap; a never-synced athlete gets the configured lookback.
func computeWindow(athlete *models.Athlete, daysBack int, now time.Time) (after, before time.Time) {
	before = now
	if athlete.LastSync != nil {
		after = athlete.LastSync.Add(-overlapWindow)
		return after, before
	}
	after = now.AddDate(0, 0, -daysBack)
	return after, before
}

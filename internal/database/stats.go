// StrideSync - Strava Activity Sync Engine
// Copyright 2026 Open Pace Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openpace/stridesync

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/openpace/stridesync/internal/metrics"
	"github.com/openpace/stridesync/internal/models"
)

// GetStoreStats returns aggregate counts over the store: active athletes,
// total activities, activities started in the last 7 days, and activities
// carrying detailed payloads.
func (db *DB) GetStoreStats(ctx context.Context) (*models.StoreStats, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer metrics.ObserveDBQuery("stats", "activities", time.Now())

	var stats models.StoreStats

	row := db.conn.QueryRowContext(ctx,
		`SELECT count(*) FROM athletes WHERE is_active = true`)
	if err := row.Scan(&stats.ActiveAthletes); err != nil {
		metrics.RecordDBError("stats", "athletes")
		return nil, fmt.Errorf("failed to count active athletes: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -7)
	row = db.conn.QueryRowContext(ctx, `
		SELECT
			count(*),
			count(*) FILTER (WHERE start_date >= ?),
			count(*) FILTER (WHERE has_detail)
		FROM activities`, cutoff)
	if err := row.Scan(&stats.TotalActivities, &stats.RecentActivities, &stats.DetailedCount); err != nil {
		metrics.RecordDBError("stats", "activities")
		return nil, fmt.Errorf("failed to count activities: %w", err)
	}

	return &stats, nil
}

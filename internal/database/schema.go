// StrideSync - Strava Activity Sync Engine
// Copyright 2026 Open Pace Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openpace/stridesync

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core tables and indexes. All columns are defined
// in the initial CREATE TABLE statements; there is no migration layer yet.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	queries := []string{
		`CREATE TABLE IF NOT EXISTS athletes (
			id UUID PRIMARY KEY,
			strava_id BIGINT NOT NULL UNIQUE,
			firstname TEXT,
			lastname TEXT,
			email TEXT,

			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			token_expires_at BIGINT NOT NULL,

			created_at TIMESTAMP NOT NULL,
			last_sync TIMESTAMP,
			is_active BOOLEAN NOT NULL DEFAULT true
		)`,

		`CREATE TABLE IF NOT EXISTS activities (
			id UUID PRIMARY KEY,
			strava_id BIGINT NOT NULL UNIQUE,
			athlete_id BIGINT NOT NULL,

			name TEXT,
			sport_type TEXT,
			start_date TIMESTAMP,
			timezone TEXT,

			elapsed_time BIGINT,
			moving_time BIGINT,

			distance DOUBLE,
			average_speed DOUBLE,
			max_speed DOUBLE,

			total_elevation_gain DOUBLE,

			average_heartrate DOUBLE,
			max_heartrate DOUBLE,
			average_cadence DOUBLE,

			kudos_count INTEGER NOT NULL DEFAULT 0,
			comment_count INTEGER NOT NULL DEFAULT 0,

			raw_data TEXT,
			has_detail BOOLEAN NOT NULL DEFAULT false,

			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_activities_athlete ON activities(athlete_id)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_start_date ON activities(start_date)`,
		`CREATE INDEX IF NOT EXISTS idx_athletes_active ON athletes(is_active)`,
	}

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

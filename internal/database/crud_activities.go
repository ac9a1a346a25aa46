// StrideSync - Strava Activity Sync Engine
// Copyright 2026 Open Pace Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openpace/stridesync

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/openpace/stridesync/internal/metrics"
	"github.com/openpace/stridesync/internal/models"
)

const activityColumns = `id, strava_id, athlete_id, name, sport_type, start_date, timezone,
	elapsed_time, moving_time, distance, average_speed, max_speed,
	total_elevation_gain, average_heartrate, max_heartrate, average_cadence,
	kudos_count, comment_count, raw_data, has_detail, created_at, updated_at`

// GetActivityByStravaID returns the activity with the given Strava id, or
// nil if it has not been seen yet.
func (db *DB) GetActivityByStravaID(ctx context.Context, stravaID int64) (*models.Activity, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer metrics.ObserveDBQuery("lookup", "activities", time.Now())

	query := `SELECT ` + activityColumns + ` FROM activities WHERE strava_id = ?`
	row := db.conn.QueryRowContext(ctx, query, stravaID)

	a, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		metrics.RecordDBError("lookup", "activities")
		return nil, err
	}
	return a, nil
}

// SaveActivity upserts an activity keyed by strava_id. The unique
// constraint is the dedup guarantee: saving the same external id twice can
// only ever touch the one existing row. A zero ID is assigned a fresh UUID.
func (db *DB) SaveActivity(ctx context.Context, activity *models.Activity) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer metrics.ObserveDBQuery("upsert", "activities", time.Now())

	if activity.ID == uuid.Nil {
		activity.ID = uuid.New()
	}
	now := time.Now()
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = now
	}
	if activity.UpdatedAt.IsZero() {
		activity.UpdatedAt = now
	}

	query := `INSERT INTO activities (` + activityColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (strava_id) DO UPDATE SET
			name = excluded.name,
			sport_type = excluded.sport_type,
			start_date = excluded.start_date,
			timezone = excluded.timezone,
			elapsed_time = excluded.elapsed_time,
			moving_time = excluded.moving_time,
			distance = excluded.distance,
			average_speed = excluded.average_speed,
			max_speed = excluded.max_speed,
			total_elevation_gain = excluded.total_elevation_gain,
			average_heartrate = excluded.average_heartrate,
			max_heartrate = excluded.max_heartrate,
			average_cadence = excluded.average_cadence,
			kudos_count = excluded.kudos_count,
			comment_count = excluded.comment_count,
			raw_data = excluded.raw_data,
			has_detail = excluded.has_detail,
			updated_at = excluded.updated_at`

	var rawData interface{}
	if len(activity.RawData) > 0 {
		rawData = string(activity.RawData)
	}

	_, err := db.conn.ExecContext(ctx, query,
		activity.ID, activity.StravaID, activity.AthleteID,
		activity.Name, activity.SportType, activity.StartDate, activity.Timezone,
		activity.ElapsedTime, activity.MovingTime,
		activity.Distance, activity.AverageSpeed, activity.MaxSpeed,
		activity.TotalElevationGain, activity.AverageHeartrate, activity.MaxHeartrate, activity.AverageCadence,
		activity.KudosCount, activity.CommentCount,
		rawData, activity.HasDetail, activity.CreatedAt, activity.UpdatedAt,
	)
	if err != nil {
		metrics.RecordDBError("upsert", "activities")
		return fmt.Errorf("failed to save activity %d: %w", activity.StravaID, err)
	}
	return nil
}

func scanActivity(row rowScanner) (*models.Activity, error) {
	var a models.Activity
	err := row.Scan(
		&a.ID, &a.StravaID, &a.AthleteID,
		&a.Name, &a.SportType, &a.StartDate, &a.Timezone,
		&a.ElapsedTime, &a.MovingTime,
		&a.Distance, &a.AverageSpeed, &a.MaxSpeed,
		&a.TotalElevationGain, &a.AverageHeartrate, &a.MaxHeartrate, &a.AverageCadence,
		&a.KudosCount, &a.CommentCount,
		&a.RawData, &a.HasDetail, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan activity: %w", err)
	}
	return &a, nil
}

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

const athleteColumns = `id, strava_id, firstname, lastname, email,
	access_token, refresh_token, token_expires_at,
	created_at, last_sync, is_active`

// ListActiveAthletes returns all athletes with is_active=true, ordered by
// Strava id for deterministic pass ordering.
func (db *DB) ListActiveAthletes(ctx context.Context) ([]models.Athlete, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer metrics.ObserveDBQuery("list_active", "athletes", time.Now())

	query := `SELECT ` + athleteColumns + ` FROM athletes WHERE is_active = true ORDER BY strava_id`
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		metrics.RecordDBError("list_active", "athletes")
		return nil, fmt.Errorf("failed to query active athletes: %w", err)
	}
	defer closeWithLog(rows, "athlete rows")

	var athletes []models.Athlete
	for rows.Next() {
		a, err := scanAthlete(rows)
		if err != nil {
			return nil, err
		}
		athletes = append(athletes, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating athletes: %w", err)
	}

	return athletes, nil
}

// GetAthleteByStravaID returns the athlete with the given Strava id, or
// nil if no such athlete exists.
func (db *DB) GetAthleteByStravaID(ctx context.Context, stravaID int64) (*models.Athlete, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer metrics.ObserveDBQuery("lookup", "athletes", time.Now())

	query := `SELECT ` + athleteColumns + ` FROM athletes WHERE strava_id = ?`
	row := db.conn.QueryRowContext(ctx, query, stravaID)

	a, err := scanAthlete(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		metrics.RecordDBError("lookup", "athletes")
		return nil, err
	}
	return a, nil
}

// SaveAthlete upserts an athlete keyed by strava_id. The credential triple
// (access token, refresh token, expiry) is written in a single statement so
// it can never be partially updated. A zero ID is assigned a fresh UUID.
func (db *DB) SaveAthlete(ctx context.Context, athlete *models.Athlete) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer metrics.ObserveDBQuery("upsert", "athletes", time.Now())

	if athlete.ID == uuid.Nil {
		athlete.ID = uuid.New()
	}
	if athlete.CreatedAt.IsZero() {
		athlete.CreatedAt = time.Now()
	}

	query := `INSERT INTO athletes (` + athleteColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (strava_id) DO UPDATE SET
			firstname = excluded.firstname,
			lastname = excluded.lastname,
			email = excluded.email,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_expires_at = excluded.token_expires_at,
			last_sync = excluded.last_sync,
			is_active = excluded.is_active`

	_, err := db.conn.ExecContext(ctx, query,
		athlete.ID, athlete.StravaID, athlete.Firstname, athlete.Lastname, athlete.Email,
		athlete.AccessToken, athlete.RefreshToken, athlete.TokenExpiresAt,
		athlete.CreatedAt, athlete.LastSync, athlete.IsActive,
	)
	if err != nil {
		metrics.RecordDBError("upsert", "athletes")
		return fmt.Errorf("failed to save athlete %d: %w", athlete.StravaID, err)
	}
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAthlete(row rowScanner) (*models.Athlete, error) {
	var a models.Athlete
	err := row.Scan(
		&a.ID, &a.StravaID, &a.Firstname, &a.Lastname, &a.Email,
		&a.AccessToken, &a.RefreshToken, &a.TokenExpiresAt,
		&a.CreatedAt, &a.LastSync, &a.IsActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan athlete: %w", err)
	}
	return &a, nil
}

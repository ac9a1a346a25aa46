// StrideSync - Strava Activity Sync Engine
// Copyright 2026 Open Pace Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openpace/stridesync

package models

import (
	"time"

	"github.com/google/uuid"
)

// Athlete is a Strava identity that has granted StrideSync read access.
//
// The storage layer owns athletes; the sync engine holds a transient copy
// per pass and writes back mutations (refreshed credentials, advanced
// checkpoint) through the store. The access token, refresh token, and
// expiry are always written together, never partially.
type Athlete struct {
	ID        uuid.UUID
	StravaID  int64
	Firstname string
	Lastname  string
	Email     string

	AccessToken    string
	RefreshToken   string
	TokenExpiresAt int64 // epoch seconds

	CreatedAt time.Time
	// LastSync is the sync checkpoint: the start time of the last pass that
	// completed cleanly for this athlete. Nil until the first clean pass.
	LastSync *time.Time
	IsActive bool
}

// DisplayName returns a human-readable name for logging.
func (a *Athlete) DisplayName() string {
	switch {
	case a.Firstname != "" && a.Lastname != "":
		return a.Firstname + " " + a.Lastname
	case a.Firstname != "":
		return a.Firstname
	default:
		return "athlete"
	}
}

// Activity is a stored Strava activity. At most one record exists per
// StravaID. Optional metrics the API omitted are nil, not zero. RawData
// holds the verbatim API response the record was last built from: the
// summary payload at creation, or the detail payload once HasDetail is set.
// Stored payloads are immutable except for the one-time detail upgrade.
type Activity struct {
	ID        uuid.UUID
	StravaID  int64
	AthleteID int64 // owning athlete's StravaID

	Name      string
	SportType string
	StartDate *time.Time
	Timezone  string

	ElapsedTime *int64 // seconds
	MovingTime  *int64 // seconds

	Distance     *float64 // meters
	AverageSpeed *float64 // m/s
	MaxSpeed     *float64 // m/s

	TotalElevationGain *float64 // meters

	AverageHeartrate *float64
	MaxHeartrate     *float64
	AverageCadence   *float64

	KudosCount   int
	CommentCount int

	RawData   []byte
	HasDetail bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SyncStats aggregates the outcome of one sync pass. It is ephemeral:
// reported to the caller and exported as metrics, never persisted.
type SyncStats struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`

	// Athletes is the number of athletes the pass visited, including those
	// whose failures were isolated and counted under Errors.
	Athletes int `json:"athletes"`
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
}

// HasErrors reports whether any athlete or record failed during the pass.
func (s *SyncStats) HasErrors() bool {
	return s.Errors > 0
}

// StoreStats is a snapshot of storage-level aggregates, logged after each
// pass and served by the ops API.
type StoreStats struct {
	ActiveAthletes   int64 `json:"active_athletes"`
	TotalActivities  int64 `json:"total_activities"`
	RecentActivities int64 `json:"recent_activities"` // started within the last 7 days
	DetailedCount    int64 `json:"detailed_count"`
}

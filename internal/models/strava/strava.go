// StrideSync - Strava Activity Sync Engine
// Copyright 2026 Open Pace Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openpace/stridesync

// Package strava defines the wire-format types for the Strava v3 API.
//
// Numeric metrics are pointers because Strava omits any of them depending
// on activity type and recording device; absent must stay distinguishable
// from zero. Each decoded record also carries its verbatim JSON payload so
// the engine can store first-capture snapshots without re-marshaling.
package strava

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// TokenResponse is the Strava OAuth token endpoint response, returned by
// both the refresh_token and authorization_code grants.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"` // epoch seconds
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// AthleteProfile is the authenticated athlete returned by GET /athlete.
type AthleteProfile struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	City      string `json:"city"`
	Country   string `json:"country"`
}

// SummaryActivity is the lightweight activity representation returned by
// the paginated GET /athlete/activities endpoint.
type SummaryActivity struct {
	ID        int64  `json:"id"`
	Athlete   Actor  `json:"athlete"`
	Name      string `json:"name"`
	SportType string `json:"sport_type"`

	StartDateLocal string `json:"start_date_local"`
	Timezone       string `json:"timezone"`

	ElapsedTime *int64 `json:"elapsed_time"`
	MovingTime  *int64 `json:"moving_time"`

	Distance     *float64 `json:"distance"`
	AverageSpeed *float64 `json:"average_speed"`
	MaxSpeed     *float64 `json:"max_speed"`

	TotalElevationGain *float64 `json:"total_elevation_gain"`

	AverageHeartrate *float64 `json:"average_heartrate"`
	MaxHeartrate     *float64 `json:"max_heartrate"`
	AverageCadence   *float64 `json:"average_cadence"`

	KudosCount   int `json:"kudos_count"`
	CommentCount int `json:"comment_count"`

	// Raw is the verbatim API payload this record was decoded from,
	// populated by the client. Never marshaled back to Strava.
	Raw json.RawMessage `json:"-"`
}

// Actor identifies the owning athlete inside an activity payload.
type Actor struct {
	ID int64 `json:"id"`
}

// DetailActivity is the fuller representation returned by the per-activity
// GET /activities/{id} endpoint. The engine persists its raw payload and
// does not interpret the extra fields, so the decoded shape matches the
// summary.
type DetailActivity struct {
	SummaryActivity
}

// StartTime parses the activity's local start timestamp. Strava emits
// RFC3339 with a trailing Z; some historic payloads carry an explicit
// offset instead.
func (a *SummaryActivity) StartTime() (time.Time, error) {
	if a.StartDateLocal == "" {
		return time.Time{}, fmt.Errorf("activity %d: empty start date", a.ID)
	}
	raw := strings.Replace(a.StartDateLocal, "Z", "+00:00", 1)
	t, err := time.Parse("2006-01-02T15:04:05-07:00", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("activity %d: parsing start date %q: %w", a.ID, a.StartDateLocal, err)
	}
	return t, nil
}

// StrideSync - Strava Activity Sync Engine
// Copyright 2026 Open Pace Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openpace/stridesync

package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openpace/stridesync/internal/config"
	"github.com/openpace/stridesync/internal/models"
	"github.com/openpace/stridesync/internal/models/strava"
)

// fakeStore is an in-memory Store for engine tests.
type fakeStore struct {
	mu         sync.Mutex
	athletes   map[int64]*models.Athlete
	activities map[int64]*models.Activity

	saveActivityErr error // injected failure for every SaveActivity
	saveAthleteErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		athletes:   make(map[int64]*models.Athlete),
		activities: make(map[int64]*models.Activity),
	}
}

func (s *fakeStore) addAthlete(a models.Athlete) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.athletes[a.StravaID] = &a
}

func (s *fakeStore) ListActiveAthletes(_ context.Context) ([]models.Athlete, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Athlete
	for _, a := range s.athletes {
		if a.IsActive {
			out = append(out, *a)
		}
	}
	// Deterministic order by strava id.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].StravaID < out[i].StravaID {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (s *fakeStore) GetAthleteByStravaID(_ context.Context, id int64) (*models.Athlete, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.athletes[id]
	if !ok {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (s *fakeStore) SaveAthlete(_ context.Context, a *models.Athlete) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveAthleteErr != nil {
		return s.saveAthleteErr
	}
	copied := *a
	s.athletes[a.StravaID] = &copied
	return nil
}

func (s *fakeStore) GetActivityByStravaID(_ context.Context, id int64) (*models.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.activities[id]
	if !ok {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (s *fakeStore) SaveActivity(_ context.Context, a *models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveActivityErr != nil {
		return s.saveActivityErr
	}
	copied := *a
	s.activities[a.StravaID] = &copied
	return nil
}

func (s *fakeStore) GetStoreStats(_ context.Context) (*models.StoreStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &models.StoreStats{TotalActivities: int64(len(s.activities))}
	for _, a := range s.athletes {
		if a.IsActive {
			stats.ActiveAthletes++
		}
	}
	for _, act := range s.activities {
		if act.HasDetail {
			stats.DetailedCount++
		}
	}
	return stats, nil
}

func (s *fakeStore) activity(id int64) *models.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activities[id]
}

func (s *fakeStore) athlete(id int64) *models.Athlete {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.athletes[id]
}

// fakeClient is a scriptable ClientInterface.
type fakeClient struct {
	mu sync.Mutex

	activitiesFn func(accessToken string, after, before time.Time) ([]strava.SummaryActivity, error)
	detailFn     func(activityID int64) (*strava.DetailActivity, error)
	refreshFn    func(refreshToken string) (*strava.TokenResponse, error)

	detailCalls  []int64
	refreshCalls int
}

func (c *fakeClient) GetAthlete(_ context.Context, _ string) (*strava.AthleteProfile, error) {
	return &strava.AthleteProfile{ID: 1}, nil
}

func (c *fakeClient) GetActivitiesSince(_ context.Context, accessToken string, after, before time.Time) ([]strava.SummaryActivity, error) {
	if c.activitiesFn == nil {
		return nil, nil
	}
	return c.activitiesFn(accessToken, after, before)
}

func (c *fakeClient) GetActivityDetail(_ context.Context, _ string, activityID int64) (*strava.DetailActivity, error) {
	c.mu.Lock()
	c.detailCalls = append(c.detailCalls, activityID)
	c.mu.Unlock()
	if c.detailFn == nil {
		return nil, fmt.Errorf("no detail scripted for activity %d", activityID)
	}
	return c.detailFn(activityID)
}

func (c *fakeClient) RefreshToken(_ context.Context, refreshToken string) (*strava.TokenResponse, error) {
	c.mu.Lock()
	c.refreshCalls++
	c.mu.Unlock()
	if c.refreshFn == nil {
		return &strava.TokenResponse{
			AccessToken:  "fresh-access",
			RefreshToken: "fresh-refresh",
			ExpiresAt:    time.Now().Add(6 * time.Hour).Unix(),
		}, nil
	}
	return c.refreshFn(refreshToken)
}

func (c *fakeClient) ExchangeCode(_ context.Context, _ string) (*strava.TokenResponse, error) {
	return &strava.TokenResponse{AccessToken: "a", RefreshToken: "r"}, nil
}

func (c *fakeClient) detailCallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.detailCalls)
}

// testSyncConfig returns a SyncConfig with pacing short enough for tests.
func testSyncConfig() *config.SyncConfig {
	return &config.SyncConfig{
		Interval:     time.Hour,
		DaysBack:     7,
		AthletePause: time.Millisecond,
	}
}

// summary builds a qualifying run summary for tests.
func testSummary(id int64, sport string, distance float64, elapsed int64) strava.SummaryActivity {
	return strava.SummaryActivity{
		ID:             id,
		Name:           fmt.Sprintf("Activity %d", id),
		SportType:      sport,
		StartDateLocal: "2026-03-14T07:30:00Z",
		ElapsedTime:    &elapsed,
		Distance:       &distance,
		Raw:            []byte(fmt.Sprintf(`{"id":%d,"sport_type":%q}`, id, sport)),
	}
}

func validAthlete(id int64) models.Athlete {
	return models.Athlete{
		StravaID:       id,
		AccessToken:    "access",
		RefreshToken:   "refresh",
		TokenExpiresAt: time.Now().Add(6 * time.Hour).Unix(),
		IsActive:       true,
	}
}

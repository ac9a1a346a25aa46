// StrideSync - Strava Activity Sync Engine
// Copyright 2026 Open Pace Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openpace/stridesync

package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/openpace/stridesync/internal/logging"
	"github.com/openpace/stridesync/internal/models"
)

// tokenRefreshThreshold is how close to expiry a token may get before it is
// refreshed. One hour covers the longest plausible single-athlete sync so a
// token cannot expire mid-pagination.
const tokenRefreshThreshold = 3600 * time.Second

// ensureFreshToken refreshes the athlete's access token when it expires
// within tokenRefreshThreshold. The new credential triple is persisted
// BEFORE the in-memory athlete is updated: Strava rotates the refresh
// token on every exchange, and losing the new one to a crash would strand
// the athlete with two dead tokens.
func (m *Manager) ensureFreshToken(ctx context.Context, athlete *models.Athlete) error {
	expiresAt := time.Unix(athlete.TokenExpiresAt, 0)
	if m.clock().Add(tokenRefreshThreshold).Before(expiresAt) {
		return nil
	}

	logging.Debug().
		Int64("athlete", athlete.StravaID).
		Time("expires_at", expiresAt).
		Msg("Access token near expiry, refreshing")

	token, err := m.client.RefreshToken(ctx, athlete.RefreshToken)
	if err != nil {
		return fmt.Errorf("token refresh for athlete %d: %w", athlete.StravaID, err)
	}

	updated := *athlete
	updated.AccessToken = token.AccessToken
	updated.RefreshToken = token.RefreshToken
	updated.TokenExpiresAt = token.ExpiresAt

	if err := m.store.SaveAthlete(ctx, &updated); err != nil {
		return fmt.Errorf("failed to persist refreshed token for athlete %d: %w", athlete.StravaID, err)
	}

	*athlete = updated
	return nil
}

// StrideSync - Strava Activity Sync Engine
// Copyright 2026 Open Pace Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openpace/stridesync

package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/openpace/stridesync/internal/logging"
	"github.com/openpace/stridesync/internal/models"
	"github.com/openpace/stridesync/internal/sync"
)

// Store is the persistence surface the handlers need.
type Store interface {
	Ping(ctx context.Context) error
	GetStoreStats(ctx context.Context) (*models.StoreStats, error)
	GetAthleteByStravaID(ctx context.Context, stravaID int64) (*models.Athlete, error)
	SaveAthlete(ctx context.Context, athlete *models.Athlete) error
}

// Engine is the sync-control surface the handlers need.
type Engine interface {
	TriggerSync(opts sync.PassOptions) error
	LastStats() *models.SyncStats
	Running() bool
}

// Handler implements the ops API endpoints.
type Handler struct {
	store  Store
	engine Engine
	client sync.ClientInterface
}

// NewHandler creates the handler set.
func NewHandler(store Store, engine Engine, client sync.ClientInterface) *Handler {
	return &Handler{store: store, engine: engine, client: client}
}

// Health reports liveness: the database must answer a ping.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		logging.Warn().Err(err).Msg("Health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":   "unhealthy",
			"database": "unreachable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"database":     "ok",
		"sync_running": h.engine.Running(),
	})
}

// Stats returns aggregate store counts and the last pass's statistics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	storeStats, err := h.store.GetStoreStats(r.Context())
	if err != nil {
		logging.Error().Err(err).Msg("Failed to compute store stats")
		writeError(w, http.StatusInternalServerError, "failed to compute statistics")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"store":    storeStats,
		"last_run": h.engine.LastStats(),
	})
}

type triggerRequest struct {
	DaysBack  int   `json:"days_back"`
	AthleteID int64 `json:"athlete_id"`
}

// TriggerSync starts a sync pass in the background. Responds 202 when the
// pass was accepted, 409 when one is already running.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.DaysBack < 0 {
		writeError(w, http.StatusBadRequest, "days_back must not be negative")
		return
	}

	err := h.engine.TriggerSync(sync.PassOptions{DaysBack: req.DaysBack, AthleteID: req.AthleteID})
	if errors.Is(err, sync.ErrSyncInProgress) {
		writeError(w, http.StatusConflict, "a sync pass is already running")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start sync pass")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

type registerRequest struct {
	Code  string `json:"code"`
	Email string `json:"email"`
}

// RegisterAthlete onboards an athlete: exchanges the OAuth authorization
// code for a token pair, fetches the profile, and stores the credential
// triple. Re-registering an existing athlete refreshes their tokens and
// reactivates them without losing the sync checkpoint.
func (h *Handler) RegisterAthlete(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	ctx := r.Context()
	token, err := h.client.ExchangeCode(ctx, req.Code)
	if err != nil {
		logging.Warn().Err(err).Msg("OAuth code exchange failed")
		writeError(w, http.StatusBadGateway, "authorization code exchange failed")
		return
	}

	profile, err := h.client.GetAthlete(ctx, token.AccessToken)
	if err != nil {
		logging.Warn().Err(err).Msg("Profile fetch failed during onboarding")
		writeError(w, http.StatusBadGateway, "failed to fetch athlete profile")
		return
	}

	athlete := &models.Athlete{
		StravaID:       profile.ID,
		Firstname:      profile.Firstname,
		Lastname:       profile.Lastname,
		Email:          req.Email,
		AccessToken:    token.AccessToken,
		RefreshToken:   token.RefreshToken,
		TokenExpiresAt: token.ExpiresAt,
		IsActive:       true,
	}

	status := http.StatusCreated
	if existing, err := h.store.GetAthleteByStravaID(ctx, profile.ID); err == nil && existing != nil {
		athlete.ID = existing.ID
		athlete.CreatedAt = existing.CreatedAt
		athlete.LastSync = existing.LastSync
		if req.Email == "" {
			athlete.Email = existing.Email
		}
		status = http.StatusOK
	}

	if err := h.store.SaveAthlete(ctx, athlete); err != nil {
		logging.Error().Err(err).Int64("athlete", profile.ID).Msg("Failed to store athlete")
		writeError(w, http.StatusInternalServerError, "failed to store athlete")
		return
	}

	logging.Info().Int64("athlete", profile.ID).Str("name", athlete.DisplayName()).Msg("Athlete registered")
	writeJSON(w, status, map[string]interface{}{
		"strava_id": profile.ID,
		"firstname": profile.Firstname,
		"lastname":  profile.Lastname,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Debug().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// StrideSync - Strava Activity Sync Engine
// Copyright 2026 Open Pace Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openpace/stridesync

package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/openpace/stridesync/internal/config"
	"github.com/openpace/stridesync/internal/logging"
	"github.com/openpace/stridesync/internal/metrics"
	"github.com/openpace/stridesync/internal/models"
)

// Store defines the persistence operations the engine needs.
type Store interface {
	ListActiveAthletes(ctx context.Context) ([]models.Athlete, error)
	GetAthleteByStravaID(ctx context.Context, stravaID int64) (*models.Athlete, error)
	SaveAthlete(ctx context.Context, athlete *models.Athlete) error
	GetActivityByStravaID(ctx context.Context, stravaID int64) (*models.Activity, error)
	SaveActivity(ctx context.Context, activity *models.Activity) error
	GetStoreStats(ctx context.Context) (*models.StoreStats, error)
}

// PassOptions parameterizes a single sync pass.
type PassOptions struct {
	// DaysBack overrides the configured lookback for never-synced athletes.
	// Zero means use the configured default.
	DaysBack int
	// AthleteID restricts the pass to a single athlete by Strava id.
	// Zero means every active athlete.
	AthleteID int64
}

// Manager orchestrates sync passes over the athlete roster. At most one
// pass runs at a time; the periodic loop and manual triggers share the
// same mutex.
type Manager struct {
	store      Store
	client     ClientInterface
	reconciler *Reconciler
	cfg        *config.SyncConfig
	clock      func() time.Time

	athleteLimiter *rate.Limiter

	syncMu sync.Mutex // held for the duration of a pass

	mu        sync.RWMutex // protects running and lastStats
	running   bool
	lastStats *models.SyncStats
}

// NewManager creates a sync manager.
func NewManager(store Store, client ClientInterface, cfg *config.SyncConfig) *Manager {
	return &Manager{
		store:          store,
		client:         client,
		reconciler:     NewReconciler(store, client),
		cfg:            cfg,
		clock:          time.Now,
		athleteLimiter: rate.NewLimiter(rate.Every(cfg.AthletePause), 1),
	}
}

// RunPass executes one full sync pass and returns its statistics. Returns
// ErrSyncInProgress if a pass is already running.
func (m *Manager) RunPass(ctx context.Context, opts PassOptions) (*models.SyncStats, error) {
	if !m.syncMu.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer m.syncMu.Unlock()

	m.setRunning(true)
	defer m.setRunning(false)

	daysBack := opts.DaysBack
	if daysBack <= 0 {
		daysBack = m.cfg.DaysBack
	}

	stats := &models.SyncStats{
		RunID:     uuid.New().String(),
		StartedAt: m.clock(),
	}

	logging.Info().
		Str("run_id", stats.RunID).
		Int("days_back", daysBack).
		Int64("athlete", opts.AthleteID).
		Msg("Sync pass started")

	athletes, err := m.selectAthletes(ctx, opts)
	if err != nil {
		metrics.SyncRuns.WithLabelValues("failed").Inc()
		return nil, err
	}

	for i := range athletes {
		if ctx.Err() != nil {
			stats.Duration = m.clock().Sub(stats.StartedAt)
			m.finishPass(stats)
			return stats, ctx.Err()
		}
		if err := m.athleteLimiter.Wait(ctx); err != nil {
			stats.Duration = m.clock().Sub(stats.StartedAt)
			m.finishPass(stats)
			return stats, err
		}

		athlete := &athletes[i]
		created, updated, skipped, errs := m.syncAthlete(ctx, athlete, daysBack)
		stats.Athletes++
		stats.Created += created
		stats.Updated += updated
		stats.Skipped += skipped
		stats.Errors += errs
		metrics.SyncAthletesProcessed.Inc()
	}

	stats.Duration = m.clock().Sub(stats.StartedAt)
	m.finishPass(stats)

	logging.Info().
		Str("run_id", stats.RunID).
		Int("athletes", stats.Athletes).
		Int("created", stats.Created).
		Int("updated", stats.Updated).
		Int("skipped", stats.Skipped).
		Int("errors", stats.Errors).
		Dur("duration", stats.Duration).
		Msg("Sync pass finished")

	m.logStoreStats(ctx)

	return stats, nil
}

// logStoreStats logs storage-level aggregates after a pass so every run's
// output carries the full picture of the store.
func (m *Manager) logStoreStats(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	stats, err := m.store.GetStoreStats(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to compute store stats")
		return
	}
	logging.Info().
		Int64("active_athletes", stats.ActiveAthletes).
		Int64("total_activities", stats.TotalActivities).
		Int64("recent_activities", stats.RecentActivities).
		Int64("detailed_activities", stats.DetailedCount).
		Msg("Store statistics")
}

// selectAthletes resolves the pass roster. A single-athlete pass targeting
// an unknown id yields an empty roster rather than an error: the engine
// should not crash-loop because an operator mistyped an id.
func (m *Manager) selectAthletes(ctx context.Context, opts PassOptions) ([]models.Athlete, error) {
	if opts.AthleteID != 0 {
		athlete, err := m.store.GetAthleteByStravaID(ctx, opts.AthleteID)
		if err != nil {
			return nil, fmt.Errorf("failed to load athlete %d: %w", opts.AthleteID, err)
		}
		if athlete == nil {
			logging.Warn().Int64("athlete", opts.AthleteID).Msg("Athlete not found, nothing to sync")
			return nil, nil
		}
		return []models.Athlete{*athlete}, nil
	}

	athletes, err := m.store.ListActiveAthletes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active athletes: %w", err)
	}
	return athletes, nil
}

// syncAthlete processes one athlete: refresh the token, fetch the window,
// reconcile every summary, and advance the checkpoint if the fetch was
// complete and every record landed. Failures never escape: they are
// logged and counted so the pass can continue with the next athlete.
func (m *Manager) syncAthlete(ctx context.Context, athlete *models.Athlete, daysBack int) (created, updated, skipped, errs int) {
	alog := logging.With().Int64("athlete", athlete.StravaID).Logger()

	if err := m.ensureFreshToken(ctx, athlete); err != nil {
		if errors.Is(err, ErrCredentialInvalid) {
			alog.Warn().Msg("Credentials revoked, athlete needs re-authorization")
		} else {
			alog.Error().Err(err).Msg("Token refresh failed, skipping athlete")
		}
		metrics.SyncErrors.Inc()
		return 0, 0, 0, 1
	}

	after, before := computeWindow(athlete, daysBack, m.clock())
	alog.Debug().Time("after", after).Time("before", before).Msg("Fetching activity window")

	summaries, fetchErr := m.client.GetActivitiesSince(ctx, athlete.AccessToken, after, before)
	if fetchErr != nil {
		// Partial pages are still reconciled below; the checkpoint stays
		// put so the next pass re-covers the window.
		alog.Warn().Err(fetchErr).Int("fetched", len(summaries)).Msg("Activity fetch incomplete")
		metrics.SyncErrors.Inc()
		errs++
	}

	recordErrs := 0
	for i := range summaries {
		if ctx.Err() != nil {
			return created, updated, skipped, errs + recordErrs
		}
		outcome, err := m.reconciler.ReconcileActivity(ctx, athlete.AccessToken, athlete.StravaID, &summaries[i])
		if err != nil {
			alog.Error().Int64("activity", summaries[i].ID).Err(err).Msg("Failed to reconcile activity")
			metrics.SyncErrors.Inc()
			recordErrs++
			continue
		}
		switch outcome {
		case OutcomeCreated:
			created++
		case OutcomeUpdated:
			updated++
		case OutcomeSkipped:
			skipped++
		}
	}
	errs += recordErrs

	// The checkpoint only advances after a complete fetch with every
	// record saved. Anything less re-covers the window next pass; the
	// overlap and idempotent upserts make the re-read free of harm.
	if fetchErr == nil && recordErrs == 0 && ctx.Err() == nil {
		checkpoint := before
		athlete.LastSync = &checkpoint
		if err := m.store.SaveAthlete(ctx, athlete); err != nil {
			alog.Error().Err(err).Msg("Failed to persist sync checkpoint")
			metrics.SyncErrors.Inc()
			errs++
		}
	}

	alog.Info().
		Int("created", created).
		Int("updated", updated).
		Int("skipped", skipped).
		Int("errors", errs).
		Msg("Athlete synced")

	return created, updated, skipped, errs
}

func (m *Manager) finishPass(stats *models.SyncStats) {
	m.mu.Lock()
	m.lastStats = stats
	m.mu.Unlock()

	switch {
	case stats.Errors == 0:
		metrics.SyncRuns.WithLabelValues("clean").Inc()
	case stats.Created+stats.Updated+stats.Skipped > 0:
		metrics.SyncRuns.WithLabelValues("partial").Inc()
	default:
		metrics.SyncRuns.WithLabelValues("failed").Inc()
	}
	metrics.SyncRunDuration.Observe(stats.Duration.Seconds())
	metrics.SyncLastRunTimestamp.SetToCurrentTime()
}

func (m *Manager) setRunning(v bool) {
	m.mu.Lock()
	m.running = v
	m.mu.Unlock()
}

// Running reports whether a pass is currently executing.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// LastStats returns the statistics of the most recently completed pass,
// or nil if none has run yet.
func (m *Manager) LastStats() *models.SyncStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastStats
}

// TriggerSync starts a pass in the background. Returns ErrSyncInProgress
// when one is already running.
func (m *Manager) TriggerSync(opts PassOptions) error {
	if m.Running() {
		return ErrSyncInProgress
	}
	go func() {
		if _, err := m.RunPass(context.Background(), opts); err != nil && !errors.Is(err, ErrSyncInProgress) {
			logging.Error().Err(err).Msg("Triggered sync pass failed")
		}
	}()
	return nil
}

// Serve runs the periodic sync loop. It implements suture.Service and
// returns when the supervision context is canceled.
func (m *Manager) Serve(ctx context.Context) error {
	logging.Info().Dur("interval", m.cfg.Interval).Bool("run_on_start", m.cfg.RunOnStart).Msg("Sync service started")

	if m.cfg.RunOnStart {
		m.runScheduled(ctx)
	}

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Sync service stopping")
			return ctx.Err()
		case <-ticker.C:
			m.runScheduled(ctx)
		}
	}
}

func (m *Manager) runScheduled(ctx context.Context) {
	_, err := m.RunPass(ctx, PassOptions{})
	switch {
	case err == nil:
	case errors.Is(err, ErrSyncInProgress):
		logging.Debug().Msg("Skipping scheduled pass, one already running")
	case errors.Is(err, context.Canceled):
	default:
		logging.Error().Err(err).Msg("Scheduled sync pass failed")
	}
}

// String names the service in supervisor logs.
func (m *Manager) String() string {
	return "sync-manager"
}

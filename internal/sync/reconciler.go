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
	"github.com/openpace/stridesync/internal/metrics"
	"github.com/openpace/stridesync/internal/models"
	"github.com/openpace/stridesync/internal/models/strava"
)

// Outcome classifies what reconciling a single activity did to the store.
type Outcome int

const (
	// OutcomeCreated means the activity was inserted for the first time.
	OutcomeCreated Outcome = iota
	// OutcomeUpdated means an existing row was refreshed or enriched.
	OutcomeUpdated
	// OutcomeSkipped means the stored row already supersedes the fetched
	// summary and was left untouched.
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Reconciler folds fetched summary activities into the store, deciding per
// record whether to insert, update, enrich, or leave alone.
type Reconciler struct {
	store  Store
	client ClientInterface
	clock  func() time.Time
}

// NewReconciler creates a reconciler over the given store and API client.
func NewReconciler(store Store, client ClientInterface) *Reconciler {
	return &Reconciler{
		store:  store,
		client: client,
		clock:  time.Now,
	}
}

// ReconcileActivity merges one fetched summary into the store.
//
// Stored payloads are immutable first-capture snapshots: a re-seen summary
// never overwrites an existing row. The single permitted mutation is the
// one-time detail upgrade of a row stored without detail. Enrichment is
// therefore monotone, and re-syncing the overlap window cannot lose data.
func (r *Reconciler) ReconcileActivity(ctx context.Context, accessToken string, athleteID int64, summary *strava.SummaryActivity) (Outcome, error) {
	existing, err := r.store.GetActivityByStravaID(ctx, summary.ID)
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("lookup of activity %d: %w", summary.ID, err)
	}

	if existing == nil {
		return r.createActivity(ctx, accessToken, athleteID, summary)
	}
	if existing.HasDetail || !needsDetail(summary) {
		return OutcomeSkipped, nil
	}
	return r.enrichActivity(ctx, accessToken, athleteID, summary, existing)
}

// createActivity stores a first-seen activity. A qualifying activity whose
// detail fetch fails is stored with its summary payload; the next pass
// gets another chance at the upgrade.
func (r *Reconciler) createActivity(ctx context.Context, accessToken string, athleteID int64, summary *strava.SummaryActivity) (Outcome, error) {
	raw := []byte(summary.Raw)
	hasDetail := false

	if needsDetail(summary) {
		detail, err := r.client.GetActivityDetail(ctx, accessToken, summary.ID)
		if err != nil {
			if ctx.Err() != nil {
				return OutcomeSkipped, ctx.Err()
			}
			logging.Warn().
				Int64("activity", summary.ID).
				Err(err).
				Msg("Detail fetch failed, storing summary payload")
		} else {
			summary = &detail.SummaryActivity
			raw = []byte(detail.Raw)
			hasDetail = true
		}
	}

	activity := r.buildActivity(athleteID, summary, raw, hasDetail)
	if err := r.store.SaveActivity(ctx, activity); err != nil {
		return OutcomeSkipped, fmt.Errorf("save of activity %d: %w", summary.ID, err)
	}

	metrics.SyncActivitiesCreated.Inc()
	if hasDetail {
		metrics.SyncActivitiesEnriched.Inc()
	}
	return OutcomeCreated, nil
}

// enrichActivity performs the one-time detail upgrade of an existing
// undetailed row. A failed fetch leaves the row untouched.
func (r *Reconciler) enrichActivity(ctx context.Context, accessToken string, athleteID int64, summary *strava.SummaryActivity, existing *models.Activity) (Outcome, error) {
	detail, err := r.client.GetActivityDetail(ctx, accessToken, summary.ID)
	if err != nil {
		if ctx.Err() != nil {
			return OutcomeSkipped, ctx.Err()
		}
		logging.Warn().
			Int64("activity", summary.ID).
			Err(err).
			Msg("Detail fetch failed, keeping stored summary")
		return OutcomeSkipped, nil
	}

	activity := r.buildActivity(athleteID, &detail.SummaryActivity, []byte(detail.Raw), true)
	activity.ID = existing.ID
	activity.CreatedAt = existing.CreatedAt

	if err := r.store.SaveActivity(ctx, activity); err != nil {
		return OutcomeSkipped, fmt.Errorf("save of activity %d: %w", summary.ID, err)
	}

	metrics.SyncActivitiesEnriched.Inc()
	return OutcomeUpdated, nil
}

// buildActivity maps a wire-format activity onto the storage model. An
// unparsable start date degrades to a NULL column instead of failing the
// record; the raw payload still carries the original string.
func (r *Reconciler) buildActivity(athleteID int64, src *strava.SummaryActivity, raw []byte, hasDetail bool) *models.Activity {
	activity := &models.Activity{
		StravaID:           src.ID,
		AthleteID:          athleteID,
		Name:               src.Name,
		SportType:          src.SportType,
		Timezone:           src.Timezone,
		ElapsedTime:        src.ElapsedTime,
		MovingTime:         src.MovingTime,
		Distance:           src.Distance,
		AverageSpeed:       src.AverageSpeed,
		MaxSpeed:           src.MaxSpeed,
		TotalElevationGain: src.TotalElevationGain,
		AverageHeartrate:   src.AverageHeartrate,
		MaxHeartrate:       src.MaxHeartrate,
		AverageCadence:     src.AverageCadence,
		KudosCount:         src.KudosCount,
		CommentCount:       src.CommentCount,
		RawData:            raw,
		HasDetail:          hasDetail,
		UpdatedAt:          r.clock(),
	}

	if start, err := src.StartTime(); err != nil {
		logging.Warn().Int64("activity", src.ID).Err(err).Msg("Malformed start date, storing without")
	} else {
		activity.StartDate = &start
	}

	return activity
}

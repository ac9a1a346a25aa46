// StrideSync - Strava Activity Sync Engine
// Copyright 2026 Open Pace Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openpace/stridesync

package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/openpace/stridesync/internal/models/strava"
)

func TestReconcileActivityCreatesNewRecord(t *testing.T) {
	store := newFakeStore()
	client := &fakeClient{}
	r := NewReconciler(store, client)

	summary := testSummary(100, "Swim", 2000, 3600) // no detail fetch
	outcome, err := r.ReconcileActivity(context.Background(), "token", 1, &summary)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeCreated {
		t.Errorf("outcome = %v, want created", outcome)
	}

	stored := store.activity(100)
	if stored == nil {
		t.Fatal("activity not stored")
	}
	if stored.HasDetail {
		t.Error("swim should not be enriched")
	}
	if stored.AthleteID != 1 {
		t.Errorf("AthleteID = %d, want 1", stored.AthleteID)
	}
	if stored.StartDate == nil {
		t.Error("expected parsed start date")
	}
	if string(stored.RawData) != string(summary.Raw) {
		t.Errorf("raw payload mismatch: %s", stored.RawData)
	}
	if client.detailCallCount() != 0 {
		t.Errorf("unexpected detail calls: %d", client.detailCallCount())
	}
}

func TestReconcileActivityEnrichesQualifyingRun(t *testing.T) {
	store := newFakeStore()
	client := &fakeClient{
		detailFn: func(id int64) (*strava.DetailActivity, error) {
			d := &strava.DetailActivity{SummaryActivity: testSummary(id, "Run", 10000, 3600)}
			d.Raw = []byte(`{"id":100,"detailed":true}`)
			return d, nil
		},
	}
	r := NewReconciler(store, client)

	summary := testSummary(100, "Run", 10000, 3600)
	outcome, err := r.ReconcileActivity(context.Background(), "token", 1, &summary)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeCreated {
		t.Errorf("outcome = %v, want created", outcome)
	}

	stored := store.activity(100)
	if !stored.HasDetail {
		t.Error("expected HasDetail=true")
	}
	if string(stored.RawData) != `{"id":100,"detailed":true}` {
		t.Errorf("expected detailed payload, got %s", stored.RawData)
	}
	if client.detailCallCount() != 1 {
		t.Errorf("detail calls = %d, want 1", client.detailCallCount())
	}
}

func TestReconcileActivityDetailFailureStoresSummary(t *testing.T) {
	store := newFakeStore()
	client := &fakeClient{
		detailFn: func(int64) (*strava.DetailActivity, error) {
			return nil, &TransientError{Op: "activity_detail", StatusCode: 503, Err: errors.New("unavailable")}
		},
	}
	r := NewReconciler(store, client)

	summary := testSummary(100, "Run", 10000, 3600)
	outcome, err := r.ReconcileActivity(context.Background(), "token", 1, &summary)
	if err != nil {
		t.Fatalf("detail failure must not fail the record: %v", err)
	}
	if outcome != OutcomeCreated {
		t.Errorf("outcome = %v, want created", outcome)
	}

	stored := store.activity(100)
	if stored == nil {
		t.Fatal("summary should still be stored")
	}
	if stored.HasDetail {
		t.Error("HasDetail must stay false when the detail fetch failed")
	}
}

func TestReconcileActivityDetailedRowIsNeverDowngraded(t *testing.T) {
	store := newFakeStore()
	client := &fakeClient{}
	r := NewReconciler(store, client)

	// Seed a detailed row, then re-sync its summary from the overlap window.
	detailed := r.buildActivity(1, func() *strava.SummaryActivity {
		s := testSummary(100, "Run", 10000, 3600)
		return &s
	}(), []byte(`{"detailed":true}`), true)
	if err := store.SaveActivity(context.Background(), detailed); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	summary := testSummary(100, "Run", 10000, 3600)
	outcome, err := r.ReconcileActivity(context.Background(), "token", 1, &summary)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeSkipped {
		t.Errorf("outcome = %v, want skipped", outcome)
	}

	stored := store.activity(100)
	if !stored.HasDetail {
		t.Error("detailed row was downgraded")
	}
	if string(stored.RawData) != `{"detailed":true}` {
		t.Errorf("detailed payload overwritten: %s", stored.RawData)
	}
	if client.detailCallCount() != 0 {
		t.Errorf("skip path should not spend a detail call, got %d", client.detailCallCount())
	}
}

func TestReconcileActivityUpdatesExistingSummaryRow(t *testing.T) {
	store := newFakeStore()
	detailErr := errors.New("still down")
	client := &fakeClient{
		detailFn: func(int64) (*strava.DetailActivity, error) { return nil, detailErr },
	}
	r := NewReconciler(store, client)

	// First pass: detail fetch fails, summary stored.
	first := testSummary(100, "Run", 10000, 3600)
	if _, err := r.ReconcileActivity(context.Background(), "token", 1, &first); err != nil {
		t.Fatalf("first pass failed: %v", err)
	}
	seeded := store.activity(100)

	// Second pass: detail now succeeds; the row is enriched in place.
	client.detailFn = func(id int64) (*strava.DetailActivity, error) {
		d := &strava.DetailActivity{SummaryActivity: testSummary(id, "Run", 10000, 3600)}
		d.Raw = []byte(`{"id":100,"detailed":true}`)
		return d, nil
	}
	second := testSummary(100, "Run", 10000, 3600)
	outcome, err := r.ReconcileActivity(context.Background(), "token", 1, &second)
	if err != nil {
		t.Fatalf("second pass failed: %v", err)
	}
	if outcome != OutcomeUpdated {
		t.Errorf("outcome = %v, want updated", outcome)
	}

	stored := store.activity(100)
	if !stored.HasDetail {
		t.Error("row was not enriched on re-sync")
	}
	if stored.ID != seeded.ID {
		t.Errorf("row identity changed: %s vs %s", stored.ID, seeded.ID)
	}
	if !stored.CreatedAt.Equal(seeded.CreatedAt) {
		t.Errorf("CreatedAt changed on update: %v vs %v", stored.CreatedAt, seeded.CreatedAt)
	}
}

func TestReconcileActivityExistingRowKeptWhenDetailFails(t *testing.T) {
	store := newFakeStore()
	client := &fakeClient{
		detailFn: func(int64) (*strava.DetailActivity, error) {
			return nil, &TransientError{Op: "activity_detail", StatusCode: 503, Err: errors.New("unavailable")}
		},
	}
	r := NewReconciler(store, client)

	// First pass stores the summary; the second pass sees the row again
	// and the detail fetch fails again. The stored payload must not move.
	first := testSummary(100, "Run", 10000, 3600)
	if _, err := r.ReconcileActivity(context.Background(), "token", 1, &first); err != nil {
		t.Fatalf("first pass failed: %v", err)
	}
	seeded := store.activity(100)

	second := testSummary(100, "Run", 10000, 3600)
	second.Name = "Renamed after upload"
	outcome, err := r.ReconcileActivity(context.Background(), "token", 1, &second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeSkipped {
		t.Errorf("outcome = %v, want skipped", outcome)
	}

	stored := store.activity(100)
	if stored.Name != seeded.Name {
		t.Errorf("stored row mutated without detail: %q", stored.Name)
	}
	if !stored.UpdatedAt.Equal(seeded.UpdatedAt) {
		t.Error("stored row re-saved without detail")
	}
}

func TestReconcileActivityExistingNonQualifyingRowIsSkipped(t *testing.T) {
	store := newFakeStore()
	client := &fakeClient{}
	r := NewReconciler(store, client)

	summary := testSummary(100, "Swim", 2000, 3600)
	if _, err := r.ReconcileActivity(context.Background(), "token", 1, &summary); err != nil {
		t.Fatalf("first pass failed: %v", err)
	}

	again := testSummary(100, "Swim", 2000, 3600)
	outcome, err := r.ReconcileActivity(context.Background(), "token", 1, &again)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeSkipped {
		t.Errorf("outcome = %v, want skipped", outcome)
	}
	if client.detailCallCount() != 0 {
		t.Errorf("non-qualifying re-sync should not fetch detail, got %d calls", client.detailCallCount())
	}
}

func TestReconcileActivityMalformedStartDate(t *testing.T) {
	store := newFakeStore()
	client := &fakeClient{}
	r := NewReconciler(store, client)

	summary := testSummary(100, "Swim", 2000, 3600)
	summary.StartDateLocal = "not-a-timestamp"

	outcome, err := r.ReconcileActivity(context.Background(), "token", 1, &summary)
	if err != nil {
		t.Fatalf("malformed date must not fail the record: %v", err)
	}
	if outcome != OutcomeCreated {
		t.Errorf("outcome = %v, want created", outcome)
	}

	stored := store.activity(100)
	if stored.StartDate != nil {
		t.Errorf("expected nil StartDate, got %v", stored.StartDate)
	}
	if string(stored.RawData) != string(summary.Raw) {
		t.Error("raw payload should survive a malformed date")
	}
}

func TestReconcileActivitySaveFailurePropagates(t *testing.T) {
	store := newFakeStore()
	store.saveActivityErr = errors.New("disk full")
	r := NewReconciler(store, &fakeClient{})

	summary := testSummary(100, "Swim", 2000, 3600)
	if _, err := r.ReconcileActivity(context.Background(), "token", 1, &summary); err == nil {
		t.Fatal("expected save error to propagate")
	}
}

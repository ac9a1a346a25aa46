// StrideSync - Strava Activity Sync Engine
// Copyright 2026 Open Pace Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openpace/stridesync

package sync

import (
	"testing"

	"github.com/openpace/stridesync/internal/models/strava"
)

func TestNeedsDetail(t *testing.T) {
	t.Parallel()

	i64 := func(v int64) *int64 { return &v }
	f64 := func(v float64) *float64 { return &v }

	tests := []struct {
		name     string
		sport    string
		distance *float64
		elapsed  *int64
		want     bool
	}{
		{"long run qualifies", "Run", f64(5000), i64(1800), true},
		{"long ride qualifies", "Ride", f64(30000), i64(3600), true},
		{"virtual run qualifies", "VirtualRun", f64(8000), i64(2400), true},
		{"virtual ride qualifies", "VirtualRide", f64(20000), i64(2700), true},
		{"short run rejected", "Run", f64(500), i64(1800), false},
		{"distance at threshold rejected", "Run", f64(1000), i64(1800), false},
		{"brief run rejected", "Run", f64(5000), i64(300), false},
		{"elapsed at threshold rejected", "Run", f64(5000), i64(600), false},
		{"swim rejected regardless of size", "Swim", f64(3000), i64(3600), false},
		{"walk rejected", "Walk", f64(6000), i64(4000), false},
		{"missing distance rejected", "Run", nil, i64(1800), false},
		{"missing elapsed rejected", "Run", f64(5000), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			activity := &strava.SummaryActivity{
				SportType:   tt.sport,
				Distance:    tt.distance,
				ElapsedTime: tt.elapsed,
			}
			if got := needsDetail(activity); got != tt.want {
				t.Errorf("needsDetail(%s, %v, %v) = %v, want %v",
					tt.sport, tt.distance, tt.elapsed, got, tt.want)
			}
		})
	}
}

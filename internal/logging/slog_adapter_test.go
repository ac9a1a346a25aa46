// StrideSync - Strava Activity Sync Engine
// Copyright 2026 Open Pace Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openpace/stridesync

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSlogHandlerWritesToZerolog(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf)
	logger := slog.New(NewSlogHandlerWithLogger(zl))

	logger.Info("service started", "service", "sync-manager", "attempt", int64(1))

	out := buf.String()
	if !strings.Contains(out, `"message":"service started"`) {
		t.Errorf("expected message in output, got: %s", out)
	}
	if !strings.Contains(out, `"service":"sync-manager"`) {
		t.Errorf("expected service attribute in output, got: %s", out)
	}
	if !strings.Contains(out, `"attempt":1`) {
		t.Errorf("expected attempt attribute in output, got: %s", out)
	}
}

func TestSlogHandlerLevels(t *testing.T) {
	tests := []struct {
		name  string
		level slog.Level
		want  string
	}{
		{"debug", slog.LevelDebug, `"level":"debug"`},
		{"info", slog.LevelInfo, `"level":"info"`},
		{"warn", slog.LevelWarn, `"level":"warn"`},
		{"error", slog.LevelError, `"level":"error"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			zl := zerolog.New(&buf).Level(zerolog.TraceLevel)
			handler := NewSlogHandlerWithLogger(zl)

			record := slog.NewRecord(time.Now(), tt.level, "msg", 0)
			if err := handler.Handle(context.Background(), record); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("expected %s in output, got: %s", tt.want, buf.String())
			}
		})
	}
}

func TestSlogHandlerWithAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf)
	base := NewSlogHandlerWithLogger(zl)

	handler := base.WithAttrs([]slog.Attr{slog.String("run_id", "abc")}).WithGroup("strava")
	logger := slog.New(handler)
	logger.Info("fetched", "page", int64(3))

	out := buf.String()
	if !strings.Contains(out, `"strava.run_id":"abc"`) {
		t.Errorf("expected grouped pre-set attr, got: %s", out)
	}
	if !strings.Contains(out, `"strava.page":3`) {
		t.Errorf("expected grouped record attr, got: %s", out)
	}
}

func TestSlogHandlerEnabled(t *testing.T) {
	zl := zerolog.New(nil).Level(zerolog.WarnLevel)
	handler := NewSlogHandlerWithLogger(zl)

	if handler.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled when zerolog level is warn")
	}
	if !handler.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled when zerolog level is warn")
	}
}

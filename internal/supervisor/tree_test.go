// StrideSync - Strava Activity Sync Engine
// Copyright 2026 Open Pace Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openpace/stridesync

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// blockingService runs until its context is canceled.
type blockingService struct {
	name   string
	serves atomic.Int32
}

func (s *blockingService) Serve(ctx context.Context) error {
	s.serves.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func (s *blockingService) String() string { return s.name }

func TestTreeDefaults(t *testing.T) {
	tree := NewTree(testLogger(), TreeConfig{})

	if tree.config.FailureThreshold != 5.0 {
		t.Errorf("FailureThreshold = %f, want 5.0", tree.config.FailureThreshold)
	}
	if tree.config.FailureDecay != 30.0 {
		t.Errorf("FailureDecay = %f, want 30.0", tree.config.FailureDecay)
	}
	if tree.config.FailureBackoff != 15*time.Second {
		t.Errorf("FailureBackoff = %v, want 15s", tree.config.FailureBackoff)
	}
	if tree.config.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", tree.config.ShutdownTimeout)
	}
}

func TestTreeLifecycle(t *testing.T) {
	tree := NewTree(testLogger(), TreeConfig{
		FailureBackoff:  100 * time.Millisecond,
		ShutdownTimeout: time.Second,
	})

	engineSvc := &blockingService{name: "fake-engine"}
	apiSvc := &blockingService{name: "fake-api"}
	tree.AddEngineService(engineSvc)
	tree.AddAPIService(apiSvc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	// Both layers start their services.
	deadline := time.After(2 * time.Second)
	for engineSvc.serves.Load() == 0 || apiSvc.serves.Load() == 0 {
		select {
		case <-deadline:
			t.Fatalf("services did not start: engine=%d api=%d",
				engineSvc.serves.Load(), apiSvc.serves.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected terminal error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Error("tree did not shut down in time")
	}
}

func TestTreeRestartsCrashedService(t *testing.T) {
	tree := NewTree(testLogger(), TreeConfig{
		FailureBackoff:  50 * time.Millisecond,
		ShutdownTimeout: time.Second,
	})

	var starts atomic.Int32
	crashOnce := &crashingService{starts: &starts}
	tree.AddEngineService(crashOnce)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	deadline := time.After(3 * time.Second)
	for starts.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("service not restarted after crash: %d starts", starts.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-errCh
}

// crashingService fails its first run and blocks afterwards.
type crashingService struct {
	starts *atomic.Int32
}

func (s *crashingService) Serve(ctx context.Context) error {
	if s.starts.Add(1) == 1 {
		return errors.New("induced crash")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *crashingService) String() string { return "crash-once" }

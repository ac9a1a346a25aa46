// StrideSync - Strava Activity Sync Engine
// Copyright 2026 Open Pace Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openpace/stridesync

// StrideSync pulls activities from the Strava API into a local DuckDB
// store for every registered athlete.
//
// Two modes:
//
//	stridesync                 # long-running service: periodic sync + ops API
//	stridesync -sync-once      # single pass, then exit (cron-friendly)
//
// One-shot flags:
//
//	-days N        override the lookback window for never-synced athletes
//	-athlete ID    sync a single athlete by Strava id
//	-historical    use the configured historical lookback (deep backfill)
//
// Configuration comes from config.yaml (or $STRIDESYNC_CONFIG) with
// STRIDESYNC_* environment variable overrides.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/openpace/stridesync/internal/api"
	"github.com/openpace/stridesync/internal/config"
	"github.com/openpace/stridesync/internal/database"
	"github.com/openpace/stridesync/internal/logging"
	"github.com/openpace/stridesync/internal/supervisor"
	"github.com/openpace/stridesync/internal/sync"
)

func main() {
	var (
		syncOnce   = flag.Bool("sync-once", false, "run a single sync pass and exit")
		days       = flag.Int("days", 0, "lookback window in days for never-synced athletes (one-shot mode)")
		athleteID  = flag.Int64("athlete", 0, "sync only this athlete by Strava id (one-shot mode)")
		historical = flag.Bool("historical", false, "use the configured historical lookback (one-shot mode)")
		configPath = flag.String("config", "", "path to config file (overrides "+config.ConfigPathEnvVar+")")
	)
	flag.Parse()

	if *configPath != "" {
		os.Setenv(config.ConfigPathEnvVar, *configPath)
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Dur("sync_interval", cfg.Sync.Interval).
		Msg("Starting StrideSync")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	client := sync.NewCircuitBreakerClient(sync.NewClient(&cfg.Strava))
	manager := sync.NewManager(db, client, &cfg.Sync)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *syncOnce {
		runOnce(ctx, manager, cfg, *days, *athleteID, *historical)
		return
	}

	runService(ctx, db, manager, client, cfg)
}

// runOnce executes a single pass and exits nonzero if anything failed.
func runOnce(ctx context.Context, manager *sync.Manager, cfg *config.Config, days int, athleteID int64, historical bool) {
	opts := sync.PassOptions{DaysBack: days, AthleteID: athleteID}
	if historical {
		opts.DaysBack = cfg.Sync.HistoricalDays
	}

	stats, err := manager.RunPass(ctx, opts)
	if err != nil {
		logging.Error().Err(err).Msg("Sync pass failed")
		os.Exit(1)
	}

	if stats.HasErrors() {
		logging.Warn().Int("errors", stats.Errors).Msg("Sync pass finished with errors")
		os.Exit(1)
	}
}

// runService runs the supervised long-running mode: the periodic sync
// loop and the ops HTTP server under one supervision tree.
func runService(ctx context.Context, db *database.DB, manager *sync.Manager, client sync.ClientInterface, cfg *config.Config) {
	handler := api.NewHandler(db, manager, client)
	server := api.NewServer(&cfg.Server, handler)

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddEngineService(manager)
	tree.AddAPIService(server)

	err := tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree terminated abnormally")
		os.Exit(1)
	}

	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop cleanly")
		}
	}

	logging.Info().Msg("StrideSync stopped")
}

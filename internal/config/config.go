// StrideSync - Strava Activity Sync Engine
// Copyright 2026 Open Pace Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openpace/stridesync

package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for StrideSync.
//
// Load() applies defaults, an optional YAML file, and environment variable
// overrides, then validates the result. Strava client credentials are the
// only fields with no usable default; everything else can run as shipped.
type Config struct {
	Strava   StravaConfig   `koanf:"strava"`
	Sync     SyncConfig     `koanf:"sync"`
	Database DatabaseConfig `koanf:"database"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// StravaConfig configures the Strava API client.
type StravaConfig struct {
	ClientID     string `koanf:"client_id" validate:"required"`
	ClientSecret string `koanf:"client_secret" validate:"required"`

	// BaseURL is the Strava REST API root, OAuthURL the token endpoint.
	// Overridable for tests against fake servers.
	BaseURL  string `koanf:"base_url" validate:"required,url"`
	OAuthURL string `koanf:"oauth_url" validate:"required,url"`

	// PerPage is the page size for activity list requests (Strava max: 200).
	PerPage int `koanf:"per_page" validate:"min=1,max=200"`

	// MaxRetries bounds the retry loop for HTTP 429 responses. After
	// exhaustion the request fails with a transient error.
	MaxRetries int `koanf:"max_retries" validate:"min=0,max=10"`

	// DefaultRetryAfter is used when a 429 response carries no Retry-After
	// header.
	DefaultRetryAfter time.Duration `koanf:"default_retry_after"`

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `koanf:"timeout"`

	// PagePause is the minimum spacing between consecutive activity page
	// requests. DetailPause is the minimum spacing between detail fetches.
	// Both respect informal rate limits even when no 429 is returned.
	PagePause   time.Duration `koanf:"page_pause"`
	DetailPause time.Duration `koanf:"detail_pause"`
}

// SyncConfig configures the sync orchestrator.
type SyncConfig struct {
	// Interval between scheduled sync passes in service mode.
	Interval time.Duration `koanf:"interval"`

	// RunOnStart triggers a sync pass immediately when the service starts.
	RunOnStart bool `koanf:"run_on_start"`

	// DaysBack is the default lookback window for athletes with no prior
	// sync. HistoricalDays is used instead for full backfills.
	DaysBack       int `koanf:"days_back" validate:"min=1"`
	HistoricalDays int `koanf:"historical_days" validate:"min=1"`

	// AthletePause is the minimum spacing between athletes within a pass,
	// smoothing aggregate request rate across the account population.
	AthletePause time.Duration `koanf:"athlete_pause"`
}

// DatabaseConfig configures the DuckDB storage layer.
type DatabaseConfig struct {
	Path                   string `koanf:"path" validate:"required"`
	MaxMemory              string `koanf:"max_memory"`
	Threads                int    `koanf:"threads"` // 0 = runtime.NumCPU()
	PreserveInsertionOrder bool   `koanf:"preserve_insertion_order"`
}

// ServerConfig configures the ops HTTP server.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout time.Duration `koanf:"timeout"`

	// Rate limiting for the ops API (go-chi/httprate, keyed by client IP).
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"min=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all default values applied. Defaults
// are loaded first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Strava: StravaConfig{
			ClientID:          "",
			ClientSecret:      "",
			BaseURL:           "https://www.strava.com/api/v3",
			OAuthURL:          "https://www.strava.com/oauth/token",
			PerPage:           200,
			MaxRetries:        5,
			DefaultRetryAfter: 60 * time.Second,
			Timeout:           30 * time.Second,
			PagePause:         500 * time.Millisecond,
			DetailPause:       500 * time.Millisecond,
		},
		Sync: SyncConfig{
			Interval:       6 * time.Hour,
			RunOnStart:     false,
			DaysBack:       7,
			HistoricalDays: 180,
			AthletePause:   2 * time.Second,
		},
		Database: DatabaseConfig{
			Path:                   "/data/stridesync.duckdb",
			MaxMemory:              "1GB",
			Threads:                0,
			PreserveInsertionOrder: true,
		},
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8787,
			Timeout:           30 * time.Second,
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate checks the configuration for consistency. Struct tags cover
// required fields and ranges; durations get explicit checks because
// validator treats them as raw int64 nanoseconds.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Sync.Interval < time.Minute {
		return fmt.Errorf("sync.interval must be at least 1m, got %s", c.Sync.Interval)
	}
	if c.Strava.Timeout <= 0 {
		return fmt.Errorf("strava.timeout must be positive, got %s", c.Strava.Timeout)
	}
	if c.Strava.PagePause < 0 || c.Strava.DetailPause < 0 {
		return fmt.Errorf("strava pacing delays must not be negative")
	}
	if c.Sync.AthletePause < 0 {
		return fmt.Errorf("sync.athlete_pause must not be negative, got %s", c.Sync.AthletePause)
	}
	if c.Strava.DefaultRetryAfter <= 0 {
		return fmt.Errorf("strava.default_retry_after must be positive, got %s", c.Strava.DefaultRetryAfter)
	}

	return nil
}

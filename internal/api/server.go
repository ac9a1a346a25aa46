// StrideSync - Strava Activity Sync Engine
// Copyright 2026 Open Pace Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openpace/stridesync

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openpace/stridesync/internal/config"
	"github.com/openpace/stridesync/internal/logging"
	"github.com/openpace/stridesync/internal/metrics"
)

// Server is the operational HTTP server. It implements suture.Service.
type Server struct {
	cfg     *config.ServerConfig
	handler *Handler
}

// NewServer creates the ops server around the given handler set.
func NewServer(cfg *config.ServerConfig, handler *Handler) *Server {
	return &Server{cfg: cfg, handler: handler}
}

// routes assembles the router: global recovery and real-IP handling,
// IP-keyed rate limiting on the API surface, and unthrottled health and
// metrics endpoints for scrapers.
func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", s.handler.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.Limit(
			s.cfg.RateLimitRequests,
			s.cfg.RateLimitWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
		))

		r.Get("/stats", s.handler.Stats)
		r.Post("/sync", s.handler.TriggerSync)
		r.Post("/athletes", s.handler.RegisterAthlete)
	})

	return r
}

// Serve runs the HTTP server until the supervision context is canceled,
// then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.Timeout,
		WriteTimeout:      s.cfg.Timeout,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("HTTP server shutdown was not clean")
		}
		logging.Info().Msg("HTTP server stopped")
		return ctx.Err()
	}
}

// String names the service in supervisor logs.
func (s *Server) String() string {
	return "http-server"
}

// requestLogger logs each request with method, path, status, and latency.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		metrics.APIRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(ww.Status())).Inc()
		metrics.APIRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())

		logging.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

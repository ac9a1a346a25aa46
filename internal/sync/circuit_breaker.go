// StrideSync - Strava Activity Sync Engine
// Copyright 2026 Open Pace Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openpace/stridesync

package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/openpace/stridesync/internal/logging"
	"github.com/openpace/stridesync/internal/metrics"
	"github.com/openpace/stridesync/internal/models/strava"
)

// CircuitBreakerClient wraps a ClientInterface with a circuit breaker so a
// dead or misbehaving upstream fails fast instead of burning the rate-limit
// budget on requests that cannot succeed.
//
// Credential failures (ErrCredentialInvalid) are NOT counted against the
// breaker: one athlete's revoked grant says nothing about API health, and
// tripping on it would block every other athlete in the pass.
type CircuitBreakerClient struct {
	client ClientInterface
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// NewCircuitBreakerClient wraps client with circuit breaker protection.
// The breaker opens after a 60% failure rate over at least 10 requests,
// waits 2 minutes before probing, and allows 3 probes in half-open state.
func NewCircuitBreakerClient(client ClientInterface) *CircuitBreakerClient {
	cbName := "strava-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			return errors.Is(err, ErrCredentialInvalid)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &CircuitBreakerClient{
		client: client,
		cb:     cb,
		name:   cbName,
	}
}

// execute runs an API call through the breaker and records request metrics.
func (cbc *CircuitBreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := cbc.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "failure").Inc()
		}
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
	return result, nil
}

// State returns the current breaker state for health reporting.
func (cbc *CircuitBreakerClient) State() gobreaker.State {
	return cbc.cb.State()
}

func (cbc *CircuitBreakerClient) GetAthlete(ctx context.Context, accessToken string) (*strava.AthleteProfile, error) {
	return castResult[strava.AthleteProfile](cbc.execute(func() (interface{}, error) {
		return cbc.client.GetAthlete(ctx, accessToken)
	}))
}

func (cbc *CircuitBreakerClient) GetActivitiesSince(ctx context.Context, accessToken string, after, before time.Time) ([]strava.SummaryActivity, error) {
	result, err := cbc.execute(func() (interface{}, error) {
		return cbc.client.GetActivitiesSince(ctx, accessToken, after, before)
	})
	if err != nil {
		return nil, err
	}
	activities, ok := result.([]strava.SummaryActivity)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return activities, nil
}

func (cbc *CircuitBreakerClient) GetActivityDetail(ctx context.Context, accessToken string, activityID int64) (*strava.DetailActivity, error) {
	return castResult[strava.DetailActivity](cbc.execute(func() (interface{}, error) {
		return cbc.client.GetActivityDetail(ctx, accessToken, activityID)
	}))
}

func (cbc *CircuitBreakerClient) RefreshToken(ctx context.Context, refreshToken string) (*strava.TokenResponse, error) {
	return castResult[strava.TokenResponse](cbc.execute(func() (interface{}, error) {
		return cbc.client.RefreshToken(ctx, refreshToken)
	}))
}

func (cbc *CircuitBreakerClient) ExchangeCode(ctx context.Context, code string) (*strava.TokenResponse, error) {
	return castResult[strava.TokenResponse](cbc.execute(func() (interface{}, error) {
		return cbc.client.ExchangeCode(ctx, code)
	}))
}

// castResult type-casts a breaker result, preserving the original error.
func castResult[T any](result interface{}, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	typed, ok := result.(*T)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

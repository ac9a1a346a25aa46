// StrideSync - Strava Activity Sync Engine
// Copyright 2026 Open Pace Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openpace/stridesync

package sync

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/openpace/stridesync/internal/config"
	"github.com/openpace/stridesync/internal/logging"
	"github.com/openpace/stridesync/internal/metrics"
	"github.com/openpace/stridesync/internal/models/strava"
)

// ClientInterface abstracts the Strava API for the engine and tests.
type ClientInterface interface {
	GetAthlete(ctx context.Context, accessToken string) (*strava.AthleteProfile, error)
	GetActivitiesSince(ctx context.Context, accessToken string, after, before time.Time) ([]strava.SummaryActivity, error)
	GetActivityDetail(ctx context.Context, accessToken string, activityID int64) (*strava.DetailActivity, error)
	RefreshToken(ctx context.Context, refreshToken string) (*strava.TokenResponse, error)
	ExchangeCode(ctx context.Context, code string) (*strava.TokenResponse, error)
}

// Client talks to the Strava v3 API. Outbound requests are paced with
// token-bucket limiters (one for list pages, one for detail fetches) so a
// large backfill stays inside the 15-minute request quota.
type Client struct {
	cfg           *config.StravaConfig
	httpClient    *http.Client
	pageLimiter   *rate.Limiter
	detailLimiter *rate.Limiter
}

// NewClient creates a Strava API client from configuration.
func NewClient(cfg *config.StravaConfig) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		pageLimiter:   rate.NewLimiter(rate.Every(cfg.PagePause), 1),
		detailLimiter: rate.NewLimiter(rate.Every(cfg.DetailPause), 1),
	}
}

// GetAthlete fetches the authenticated athlete's profile.
func (c *Client) GetAthlete(ctx context.Context, accessToken string) (*strava.AthleteProfile, error) {
	var profile strava.AthleteProfile
	if err := c.doJSONRequest(ctx, "athlete", c.cfg.BaseURL+"/athlete", nil, accessToken, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetActivitiesSince pages through the athlete's summary activities in the
// [after, before] window, oldest-first as returned by the API. Pagination
// stops at the first short page. Each summary keeps its raw JSON payload.
func (c *Client) GetActivitiesSince(ctx context.Context, accessToken string, after, before time.Time) ([]strava.SummaryActivity, error) {
	var all []strava.SummaryActivity

	for page := 1; ; page++ {
		if err := c.pageLimiter.Wait(ctx); err != nil {
			return all, err
		}

		batch, err := c.getActivitiesPage(ctx, accessToken, after, before, page)
		if err != nil {
			// Earlier pages already fetched stay usable; the caller decides
			// whether the partial result is worth reconciling.
			return all, err
		}
		all = append(all, batch...)

		if len(batch) < c.cfg.PerPage {
			return all, nil
		}
	}
}

func (c *Client) getActivitiesPage(ctx context.Context, accessToken string, after, before time.Time, page int) ([]strava.SummaryActivity, error) {
	query := url.Values{}
	query.Set("after", strconv.FormatInt(after.Unix(), 10))
	query.Set("before", strconv.FormatInt(before.Unix(), 10))
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(c.cfg.PerPage))

	// Decode through RawMessage so every summary keeps its verbatim payload.
	var rawBatch []json.RawMessage
	endpoint := c.cfg.BaseURL + "/athlete/activities?" + query.Encode()
	if err := c.doJSONRequest(ctx, "activities", endpoint, nil, accessToken, &rawBatch); err != nil {
		return nil, err
	}

	batch := make([]strava.SummaryActivity, 0, len(rawBatch))
	for _, raw := range rawBatch {
		var activity strava.SummaryActivity
		if err := json.Unmarshal(raw, &activity); err != nil {
			logging.Warn().Err(err).Int("page", page).Msg("Skipping undecodable activity summary")
			continue
		}
		activity.Raw = raw
		batch = append(batch, activity)
	}
	return batch, nil
}

// GetActivityDetail fetches the full representation of a single activity.
func (c *Client) GetActivityDetail(ctx context.Context, accessToken string, activityID int64) (*strava.DetailActivity, error) {
	if err := c.detailLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/activities/%d", c.cfg.BaseURL, activityID)
	var raw json.RawMessage
	if err := c.doJSONRequest(ctx, "activity_detail", endpoint, nil, accessToken, &raw); err != nil {
		return nil, err
	}

	var detail strava.DetailActivity
	if err := json.Unmarshal(raw, &detail); err != nil {
		return nil, fmt.Errorf("failed to decode activity %d detail: %w", activityID, err)
	}
	detail.Raw = raw
	return &detail, nil
}

// RefreshToken exchanges a refresh token for a fresh access token. A 400 or
// 401 response means the grant was revoked and maps to ErrCredentialInvalid.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*strava.TokenResponse, error) {
	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	token, err := c.doTokenRequest(ctx, "token_refresh", form)
	if err != nil {
		metrics.StravaTokenRefreshes.WithLabelValues("failure").Inc()
		return nil, err
	}
	metrics.StravaTokenRefreshes.WithLabelValues("success").Inc()
	return token, nil
}

// ExchangeCode exchanges an OAuth authorization code for the initial token
// pair during athlete onboarding.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*strava.TokenResponse, error) {
	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)

	return c.doTokenRequest(ctx, "token_exchange", form)
}

func (c *Client) doTokenRequest(ctx context.Context, op string, form url.Values) (*strava.TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OAuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.doWithRetry(req, op)
	if err != nil {
		return nil, err
	}
	defer closeBody(resp, op)

	metrics.StravaAPIRequests.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest:
		// Strava answers 400 to refresh attempts with a revoked grant.
		return nil, fmt.Errorf("%s: %w", op, ErrCredentialInvalid)
	case resp.StatusCode >= 500:
		return nil, &TransientError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("server error")}
	default:
		return nil, fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	}

	var token strava.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	if token.AccessToken == "" || token.RefreshToken == "" {
		return nil, fmt.Errorf("%s: incomplete token response", op)
	}
	return &token, nil
}

// doJSONRequest executes an authenticated GET-style API call and decodes
// the response body into target.
func (c *Client) doJSONRequest(ctx context.Context, op, endpoint string, body io.Reader, accessToken string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, body)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.doWithRetry(req, op)
	if err != nil {
		return err
	}
	defer closeBody(resp, op)

	metrics.StravaAPIRequests.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", op, ErrCredentialInvalid)
	case resp.StatusCode >= 500:
		return &TransientError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("server error")}
	default:
		return fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return nil
}

// doWithRetry executes the request, retrying HTTP 429 responses up to
// MaxRetries times. The wait honors the Retry-After header (RFC 6585) and
// falls back to DefaultRetryAfter when the header is absent or unparsable.
// Exhausting the retry budget surfaces as a TransientError so the caller
// treats it like any other recoverable upstream failure.
func (c *Client) doWithRetry(req *http.Request, op string) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			metrics.StravaAPIRequests.WithLabelValues(op, "error").Inc()
			return nil, &TransientError{Op: op, Err: err}
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"), c.cfg.DefaultRetryAfter)
		closeBody(resp, op)

		if attempt >= c.cfg.MaxRetries {
			metrics.StravaAPIRequests.WithLabelValues(op, "429").Inc()
			return nil, &TransientError{
				Op:         op,
				StatusCode: http.StatusTooManyRequests,
				Err:        fmt.Errorf("rate limit exceeded after %d retries", c.cfg.MaxRetries),
			}
		}

		metrics.StravaRateLimitWaits.Inc()
		logging.Warn().
			Str("op", op).
			Dur("retry_after", retryAfter).
			Int("attempt", attempt+1).
			Int("max_retries", c.cfg.MaxRetries).
			Msg("Strava API rate limited (HTTP 429), waiting")

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(retryAfter):
		}

		// Rewind the body for requests that carry one (token POSTs).
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("%s: failed to rewind request body: %w", op, err)
			}
			req.Body = body
		}
	}
}

// parseRetryAfter interprets a Retry-After header value in seconds.
func parseRetryAfter(header string, fallback time.Duration) time.Duration {
	if header == "" {
		return fallback
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || seconds < 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

func closeBody(resp *http.Response, op string) {
	if resp == nil || resp.Body == nil {
		return
	}
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	if err := resp.Body.Close(); err != nil {
		logging.Debug().Str("op", op).Err(err).Msg("Failed to close response body")
	}
}

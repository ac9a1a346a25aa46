// StrideSync - Strava Activity Sync Engine
// Copyright 2026 Open Pace Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openpace/stridesync

package sync

import (
	"errors"
	"fmt"
)

// ErrCredentialInvalid indicates the athlete's OAuth grant has been revoked
// or is otherwise unusable (HTTP 401). It is permanent for the affected
// athlete: retrying cannot help until the athlete re-authorizes, so the
// engine skips the athlete and does not count the failure against the
// circuit breaker.
var ErrCredentialInvalid = errors.New("strava credentials invalid or revoked")

// ErrSyncInProgress is returned by TriggerSync when a pass is already
// running. Passes never overlap.
var ErrSyncInProgress = errors.New("sync pass already in progress")

// TransientError wraps a failure that is expected to resolve on a later
// attempt: network errors, 5xx responses, and rate limits that survived
// the bounded retry loop.
type TransientError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: transient failure (HTTP %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: transient failure: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

package flow

import (
	"errors"
	"math/rand"
	"time"
)

// ErrInvalidRetryPolicy indicates a RetryPolicy with out-of-range fields,
// such as MaxAttempts < 1 or MaxDelay < BaseDelay.
var ErrInvalidRetryPolicy = errors.New("invalid retry policy")

// RetryPolicy defines automatic retry configuration for transient node failures.
//
// When a node execution fails, the retry policy determines whether the failure
// is retryable and how long to wait before the next attempt. Exponential
// backoff with jitter is used to avoid thundering herd problems.
type RetryPolicy struct {
	// MaxAttempts is the maximum number of execution attempts (including the
	// initial attempt). Must be >= 1. A value of 1 means no retries.
	MaxAttempts int

	// BaseDelay is the base delay for exponential backoff between retries.
	// The actual delay is computed as: min(BaseDelay * 2^attempt, MaxDelay) + jitter.
	BaseDelay time.Duration

	// MaxDelay is the maximum delay cap for exponential backoff.
	// Zero means no cap.
	MaxDelay time.Duration

	// Retryable is a predicate that determines if an error is retryable.
	// If nil, no errors are retried.
	// Common patterns: rate limits, timeouts, 5xx responses, network errors.
	Retryable func(error) bool
}

// Validate checks if the RetryPolicy configuration is valid.
// Returns ErrInvalidRetryPolicy if:
//   - MaxAttempts < 1 (1 means no retries, just the initial attempt)
//   - MaxDelay and BaseDelay are both > 0 and MaxDelay < BaseDelay
func (p *RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return ErrInvalidRetryPolicy
	}
	if p.MaxDelay > 0 && p.BaseDelay > 0 && p.MaxDelay < p.BaseDelay {
		return ErrInvalidRetryPolicy
	}
	return nil
}

// backoffDelay calculates the delay before retrying a failed node execution
// using exponential backoff with jitter.
//
//	delay = min(base * 2^attempt, maxDelay) + jitter(0, base)
//
// The exponential component doubles the delay with each retry, reducing load
// on failing services. Jitter randomizes retry timing across concurrent nodes
// to avoid synchronized retry storms.
//
// Example delays with base=1s, maxDelay=30s:
// - attempt 0: 1s + jitter(0, 1s)
// - attempt 1: 2s + jitter(0, 1s)
// - attempt 2: 4s + jitter(0, 1s)
// - attempt 10: 30s + jitter(0, 1s) (capped)
func backoffDelay(attempt int, base, maxDelay time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}

	delay := base * (1 << attempt)
	if maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}

	// Jitter for retry timing, not security.
	jitter := time.Duration(rand.Int63n(int64(base))) // #nosec G404

	return delay + jitter
}

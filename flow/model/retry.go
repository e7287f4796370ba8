package model

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Retrying wraps a ChatModel with retry logic for transient failures.
//
// Retryable provider errors (rate limits, timeouts, server and network
// errors) are retried with exponential backoff plus jitter. Permanent
// errors (auth, bad request) and context cancellation return immediately.
//
// Example:
//
//	m := model.NewRetrying(openai.New(apiKey, "gpt-4o-mini"), 3, time.Second)
//	out, err := m.Chat(ctx, messages, nil)
type Retrying struct {
	inner       ChatModel
	maxAttempts int
	baseDelay   time.Duration
}

// NewRetrying wraps inner with up to maxAttempts attempts and the given base
// backoff delay. maxAttempts below 1 is treated as 1 (no retries);
// a non-positive baseDelay defaults to one second.
func NewRetrying(inner ChatModel, maxAttempts int, baseDelay time.Duration) *Retrying {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &Retrying{
		inner:       inner,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
	}
}

// Name returns the wrapped model's identifier.
func (r *Retrying) Name() string {
	return r.inner.Name()
}

// Chat implements ChatModel, retrying retryable errors.
func (r *Retrying) Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error) {
	var lastErr error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := r.baseDelay * (1 << (attempt - 1))
			delay += time.Duration(rand.Int63n(int64(r.baseDelay))) // #nosec G404 -- jitter, not crypto
			select {
			case <-ctx.Done():
				return ChatOut{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		out, err := r.inner.Chat(ctx, messages, tools)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return ChatOut{}, err
		}
	}
	return ChatOut{}, fmt.Errorf("chat failed after %d attempts: %w", r.maxAttempts, lastErr)
}

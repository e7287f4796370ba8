package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ProviderError represents a failure reported by an LLM provider, normalized
// to a common shape so callers can react uniformly.
//
// Codes:
//
//	auth          invalid or expired API key (permanent)
//	rate_limited  rate limit or quota hit (retryable)
//	timeout       request deadline exceeded (retryable)
//	server        provider-side 5xx failure (retryable)
//	bad_request   malformed request (permanent)
//	network       connection-level failure (retryable)
type ProviderError struct {
	// Provider identifies the source ("openai", "anthropic", "google").
	Provider string

	// Code is the normalized error category.
	Code string

	// Message is a human-readable description.
	Message string

	// Retryable reports whether retrying the request may succeed.
	Retryable bool
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Code, e.Message)
}

// IsRetryable reports whether err is a retryable provider error.
// Non-ProviderError values are not retryable.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// Classify maps an SDK error onto a ProviderError by inspecting status
// codes and message substrings. The major SDKs don't share error types, but
// their messages carry the HTTP status and a recognizable phrase.
// Context cancellation passes through unwrapped.
func Classify(provider string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{
			Provider:  provider,
			Code:      "timeout",
			Message:   "request timed out",
			Retryable: true,
		}
	}

	lowerErr := strings.ToLower(err.Error())

	if strings.Contains(lowerErr, "401") ||
		strings.Contains(lowerErr, "403") ||
		strings.Contains(lowerErr, "unauthorized") ||
		strings.Contains(lowerErr, "authentication") ||
		strings.Contains(lowerErr, "invalid api key") ||
		strings.Contains(lowerErr, "api_key") {
		return &ProviderError{
			Provider:  provider,
			Code:      "auth",
			Message:   "API key is invalid or expired",
			Retryable: false,
		}
	}

	if strings.Contains(lowerErr, "429") ||
		strings.Contains(lowerErr, "rate limit") ||
		strings.Contains(lowerErr, "rate_limit") ||
		strings.Contains(lowerErr, "too many requests") ||
		strings.Contains(lowerErr, "quota") ||
		strings.Contains(lowerErr, "resource exhausted") ||
		strings.Contains(lowerErr, "resourceexhausted") {
		return &ProviderError{
			Provider:  provider,
			Code:      "rate_limited",
			Message:   "rate limit exceeded",
			Retryable: true,
		}
	}

	if strings.Contains(lowerErr, "500") ||
		strings.Contains(lowerErr, "502") ||
		strings.Contains(lowerErr, "503") ||
		strings.Contains(lowerErr, "504") ||
		strings.Contains(lowerErr, "internal server error") ||
		strings.Contains(lowerErr, "bad gateway") ||
		strings.Contains(lowerErr, "service unavailable") ||
		strings.Contains(lowerErr, "overloaded") {
		return &ProviderError{
			Provider:  provider,
			Code:      "server",
			Message:   fmt.Sprintf("server error: %v", err),
			Retryable: true,
		}
	}

	if strings.Contains(lowerErr, "400") ||
		strings.Contains(lowerErr, "invalid request") ||
		strings.Contains(lowerErr, "invalid_request") ||
		strings.Contains(lowerErr, "bad request") {
		return &ProviderError{
			Provider:  provider,
			Code:      "bad_request",
			Message:   fmt.Sprintf("bad request: %v", err),
			Retryable: false,
		}
	}

	if strings.Contains(lowerErr, "timeout") ||
		strings.Contains(lowerErr, "deadline") {
		return &ProviderError{
			Provider:  provider,
			Code:      "timeout",
			Message:   "request timed out",
			Retryable: true,
		}
	}

	if strings.Contains(lowerErr, "connection") ||
		strings.Contains(lowerErr, "network") ||
		strings.Contains(lowerErr, "no such host") ||
		strings.Contains(lowerErr, "eof") {
		return &ProviderError{
			Provider:  provider,
			Code:      "network",
			Message:   fmt.Sprintf("network error: %v", err),
			Retryable: true,
		}
	}

	return &ProviderError{
		Provider:  provider,
		Code:      "server",
		Message:   err.Error(),
		Retryable: false,
	}
}

package fetcher

import (
	"errors"
	"fmt"
)

// Common errors returned by the fetcher.
var (
	// ErrTimeout is returned when a fetch exceeds its deadline. It is kept
	// distinct from ErrNetwork so callers can produce a timeout-specific
	// message.
	ErrTimeout = errors.New("network timeout")

	// ErrNetwork is returned for connection, DNS, and transport failures.
	ErrNetwork = errors.New("network failure")

	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry backoff.
	ErrContextCancelled = errors.New("context cancelled")
)

// UpstreamError represents a non-2xx response from an upstream service.
type UpstreamError struct {
	URL        string
	StatusCode int
	Status     string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error (status %d) fetching %s: %s", e.StatusCode, e.URL, e.Status)
}

// IsTimeout reports whether the error is (or wraps) a fetch timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

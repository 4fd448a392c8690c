// Package fetcher performs single outbound HTTP requests with a hard deadline
// and an explicit, opt-in retry entry point with linear backoff.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/and3rn3t/weather-sub008/pkg/logging"
)

// DefaultTimeout is the hard deadline applied when a policy carries none.
const DefaultTimeout = 8 * time.Second

// Policy bounds a single fetch call site. It is immutable per call site and
// never persisted.
type Policy struct {
	// Timeout is the hard deadline for the whole request.
	Timeout time.Duration

	// MaxAttempts is the number of attempts for the retrying entry point
	// (including the initial request).
	MaxAttempts int

	// BaseDelay is the backoff unit; attempt n waits BaseDelay * n.
	BaseDelay time.Duration
}

// DefaultPolicy returns the default fetch policy.
func DefaultPolicy() Policy {
	return Policy{
		Timeout:     DefaultTimeout,
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
	}
}

// Fetcher performs outbound requests.
type Fetcher struct {
	httpClient *http.Client
	logger     zerolog.Logger
}

// New creates a fetcher using a default HTTP client. The per-request deadline
// is enforced via context, not the client timeout.
func New() *Fetcher {
	return NewWithClient(&http.Client{})
}

// NewWithClient creates a fetcher with a custom HTTP client (for testing).
func NewWithClient(httpClient *http.Client) *Fetcher {
	if httpClient == nil {
		panic("http client cannot be nil")
	}
	return &Fetcher{
		httpClient: httpClient,
		logger:     logging.NewLogger("fetcher"),
	}
}

// Do performs a single request bound by the policy timeout. It never retries;
// static-asset and image fetches use this path so slow-origin problems are not
// masked behind repeated identical failures.
//
// The deadline covers the body too: it stays armed until the caller closes
// resp.Body, so a slow body read is cut off the same way a slow connect is.
//
// Timeout errors wrap ErrTimeout; other transport failures wrap ErrNetwork.
// Non-2xx responses are returned as-is for the caller to judge.
func (f *Fetcher) Do(ctx context.Context, req *http.Request, policy Policy) (*http.Response, error) {
	timeout := policy.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)

	start := time.Now()
	resp, err := f.httpClient.Do(req.Clone(ctx))
	fetchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		cancel()
		classified := classifyTransportError(err)
		if errors.Is(classified, ErrTimeout) {
			fetchTimeouts.Inc()
			fetchRequests.WithLabelValues("timeout").Inc()
		} else {
			fetchRequests.WithLabelValues("network_error").Inc()
		}
		f.logger.Warn().
			Err(err).
			Str("url", req.URL.String()).
			Dur("duration", time.Since(start)).
			Msg("Fetch failed")
		return nil, classified
	}

	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	fetchRequests.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Inc()
	return resp, nil
}

// cancelOnClose releases the request's deadline context once the caller is
// done with the body.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// DoWithRetry performs a request with bounded retries and linear backoff
// (BaseDelay * attemptNumber). It retries on transport errors and on non-2xx
// responses, and re-raises the last error when all attempts fail. Only the
// API request class uses this path.
func (f *Fetcher) DoWithRetry(ctx context.Context, req *http.Request, policy Policy) (*http.Response, error) {
	maxAttempts := policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	baseDelay := policy.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 1 * time.Second
	}

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := f.Do(ctx, req, policy)
		if err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if attempt > 1 {
				f.logger.Info().
					Str("url", req.URL.String()).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = &UpstreamError{
				URL:        req.URL.String(),
				StatusCode: resp.StatusCode,
				Status:     resp.Status,
			}
			resp.Body.Close()
		}

		if attempt >= maxAttempts {
			break
		}

		fetchRetries.Inc()
		backoff := baseDelay * time.Duration(attempt)
		f.logger.Warn().
			Err(lastErr).
			Str("url", req.URL.String()).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("Retrying request after backoff")

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(backoff):
		}
	}

	fetchRetryExhausted.Inc()
	f.logger.Warn().
		Str("url", req.URL.String()).
		Int("max_attempts", maxAttempts).
		Msg("Retry attempts exhausted")

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, maxAttempts, lastErr)
}

// classifyTransportError maps a transport error onto the fetcher taxonomy.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

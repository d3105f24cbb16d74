package feed

import (
	"errors"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"
)

const (
	maxRetries       = 2
	initialRetryWait = 200 * time.Millisecond
	maxRetryWait     = 800 * time.Millisecond
)

// retryTransport retries GETs that fail with transient network errors.
// Retries stay below the Fetch boundary: callers only observe the final
// outcome.
type retryTransport struct {
	base http.RoundTripper
}

func newRetryTransport(base http.RoundTripper) *retryTransport {
	return &retryTransport{base: base}
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		resp, err := t.base.RoundTrip(req.Clone(req.Context()))
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if req.Method != http.MethodGet || !isRetryable(err) || attempt == maxRetries {
			return nil, err
		}

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(backoff(attempt)):
		}
	}

	return nil, lastErr
}

func backoff(attempt int) time.Duration {
	wait := initialRetryWait
	for range attempt {
		wait *= 2
		if wait > maxRetryWait {
			return maxRetryWait
		}
	}
	return wait
}

// isRetryable reports whether err is a transient network failure. Read
// timeouts are excluded: a slow server is not helped by hammering it.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return false
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && (opErr.Op == "dial" || opErr.Op == "read") {
		return true
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.EOF)
}

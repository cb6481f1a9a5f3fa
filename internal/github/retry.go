package github

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

const (
	// MaxAttempts is the fixed per-request retry budget.
	MaxAttempts = 6

	headerRateRemaining = "X-RateLimit-Remaining"
	headerRateReset     = "X-RateLimit-Reset"
	headerRetryAfter    = "Retry-After"
)

// retryTransport retries rate-limited and server-error responses before the
// rest of the client ever sees them. Anything it returns is terminal: either a
// non-retryable response or a RetriesExhaustedError.
type retryTransport struct {
	base http.RoundTripper

	backoffBase     time.Duration
	secondaryBase   time.Duration
	rateLimitMargin time.Duration
}

func newRetryTransport(base http.RoundTripper, backoffBase, secondaryBase, margin time.Duration) *retryTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &retryTransport{
		base:            base,
		backoffBase:     backoffBase,
		secondaryBase:   secondaryBase,
		rateLimitMargin: margin,
	}
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		resp, err := t.base.RoundTrip(req)
		if err != nil {
			return nil, err
		}

		wait, retryable := t.classify(resp, attempt)
		if !retryable {
			return resp, nil // caller owns closing
		}

		// Release the connection before sleeping; the response is not
		// surfaced to the caller.
		drainAndClose(resp)

		slog.Warn("retrying request",
			"url", req.URL.String(), "status", resp.StatusCode,
			"attempt", attempt, "wait", wait)

		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	return nil, &RetriesExhaustedError{URL: req.URL.String(), Attempts: MaxAttempts}
}

// classify decides whether the response may be retried and how long to wait
// beforehand.
func (t *retryTransport) classify(resp *http.Response, attempt int) (time.Duration, bool) {
	switch {
	case resp.StatusCode == http.StatusForbidden && resp.Header.Get(headerRateRemaining) == "0":
		// Primary quota exhausted: sleep until the advertised reset.
		reset := parseUnixHeader(resp.Header.Get(headerRateReset))
		wait := time.Until(reset) + t.rateLimitMargin
		if wait < t.rateLimitMargin {
			wait = t.rateLimitMargin
		}
		return wait, true

	case resp.StatusCode == http.StatusForbidden && resp.Header.Get(headerRetryAfter) != "":
		// Secondary rate limit; the signal is vague so back off linearly.
		return t.secondaryBase * time.Duration(attempt), true

	case resp.StatusCode >= 500:
		return t.backoffBase * time.Duration(attempt), true

	default:
		return 0, false
	}
}

func parseUnixHeader(v string) time.Time {
	secs, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(secs, 0)
}

func drainAndClose(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

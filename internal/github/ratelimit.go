package github

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// githubRateLimit is the authenticated hourly quota.
	githubRateLimit = 5000

	// proactiveRate throttles to ~1.2 req/sec (4320/hr), leaving headroom
	// below the hourly quota.
	proactiveRate = 1.2

	// minBuffer is the remaining-request floor below which we wait for the
	// quota reset instead of spending the reserve.
	minBuffer = 100
)

// RateLimiter combines a proactive token bucket with reactive tracking of the
// API's rate-limit headers.
type RateLimiter struct {
	mu        sync.Mutex
	remaining int
	limit     int
	resetTime time.Time
	bucket    *rate.Limiter
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		remaining: githubRateLimit,
		limit:     githubRateLimit,
		bucket:    rate.NewLimiter(rate.Limit(proactiveRate), 1),
	}
}

// Wait blocks until a request may be made.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.bucket.Wait(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	remaining := r.remaining
	resetTime := r.resetTime
	r.mu.Unlock()

	if remaining < minBuffer && time.Now().Before(resetTime) {
		return sleep(ctx, time.Until(resetTime))
	}
	return nil
}

// UpdateFromResponse refreshes quota state from response headers.
func (r *RateLimiter) UpdateFromResponse(resp *http.Response) {
	if resp == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if v := resp.Header.Get(headerRateRemaining); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			r.remaining = n
		}
	}
	if v := resp.Header.Get("X-RateLimit-Limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			r.limit = n
		}
	}
	if v := resp.Header.Get(headerRateReset); v != "" {
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
			r.resetTime = time.Unix(secs, 0)
		}
	}
}

func (r *RateLimiter) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining
}

func (r *RateLimiter) ResetTime() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resetTime
}

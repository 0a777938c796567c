package remote

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimiter spaces out requests to a telemetry host and caps them per minute.
// A limit of zero or less disables limiting.
type RateLimiter struct {
	mu sync.Mutex

	limit    int
	usage    int
	resetsAt time.Time

	// Minimum interval between requests
	minInterval time.Duration
	lastRequest time.Time
}

// NewRateLimiter creates a limiter allowing perMinute requests per minute
func NewRateLimiter(perMinute int) *RateLimiter {
	r := &RateLimiter{
		limit:    perMinute,
		resetsAt: time.Now().Add(time.Minute),
	}
	if perMinute > 0 {
		r.minInterval = time.Minute / time.Duration(perMinute)
	}
	return r
}

// Wait blocks until a request can be made without exceeding the limit
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.limit <= 0 {
		return ctx.Err()
	}

	now := time.Now()
	if now.After(r.resetsAt) {
		r.usage = 0
		r.resetsAt = now.Add(time.Minute)
	}

	if r.usage >= r.limit {
		if err := r.sleep(ctx, time.Until(r.resetsAt)); err != nil {
			return err
		}
		r.usage = 0
		r.resetsAt = time.Now().Add(time.Minute)
	}

	if elapsed := time.Since(r.lastRequest); elapsed < r.minInterval {
		if err := r.sleep(ctx, r.minInterval-elapsed); err != nil {
			return err
		}
	}

	r.usage++
	r.lastRequest = time.Now()
	return nil
}

// sleep releases the lock while waiting. Called with r.mu held.
func (r *RateLimiter) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Unlock()
	defer r.mu.Lock()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpdateFromHeaders adopts the server's view of the budget when it
// reports X-RateLimit-Limit and X-RateLimit-Remaining
func (r *RateLimiter) UpdateFromHeaders(h http.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.limit <= 0 {
		return
	}
	if limit, err := strconv.Atoi(h.Get("X-RateLimit-Limit")); err == nil && limit > 0 {
		r.limit = limit
	}
	if remaining, err := strconv.Atoi(h.Get("X-RateLimit-Remaining")); err == nil && remaining >= 0 {
		r.usage = max(r.limit-remaining, 0)
	}
}

// Status returns the requests remaining in the current window, or -1
// when limiting is disabled
func (r *RateLimiter) Status() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.limit <= 0 {
		return -1
	}
	return r.limit - r.usage
}

package strava

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Strava rate limits:
// - 100 requests per 15 minutes
// - 1000 requests per day
const (
	shortWindow = 15 * time.Minute
	shortLimit  = 100
	dailyLimit  = 1000
	minInterval = 150 * time.Millisecond
)

type window struct {
	limit    int
	usage    int
	resetsAt time.Time
}

func (w *window) full() bool { return w.usage >= w.limit }

// RateLimiter manages Strava API rate limits
type RateLimiter struct {
	mu  sync.Mutex
	now func() time.Time

	short window
	daily window

	lastRequest time.Time
}

// NewRateLimiter creates a rate limiter with Strava's default limits.
// A nil clock uses time.Now.
func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	t := now()
	return &RateLimiter{
		now:   now,
		short: window{limit: shortLimit, resetsAt: t.Add(shortWindow)},
		daily: window{limit: dailyLimit, resetsAt: nextMidnight(t)},
	}
}

// Wait blocks until a request can be made without exceeding rate limits
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		now := r.now()
		r.roll(now)

		var wait time.Duration
		switch {
		case r.short.full():
			wait = r.short.resetsAt.Sub(now)
		case r.daily.full():
			wait = r.daily.resetsAt.Sub(now)
		case now.Sub(r.lastRequest) < minInterval:
			wait = minInterval - now.Sub(r.lastRequest)
		default:
			r.short.usage++
			r.daily.usage++
			r.lastRequest = now
			r.mu.Unlock()
			return nil
		}
		r.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

func (r *RateLimiter) roll(now time.Time) {
	if !now.Before(r.short.resetsAt) {
		r.short.usage = 0
		r.short.resetsAt = now.Add(shortWindow)
	}
	if !now.Before(r.daily.resetsAt) {
		r.daily.usage = 0
		r.daily.resetsAt = nextMidnight(now)
	}
}

// UpdateFromHeaders updates rate limit state from Strava response headers.
// Strava returns X-RateLimit-Limit: "100,1000" and X-RateLimit-Usage: "34,512".
func (r *RateLimiter) UpdateFromHeaders(h http.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if short, daily, ok := parsePair(h.Get("X-RateLimit-Usage")); ok {
		r.short.usage = short
		r.daily.usage = daily
	}
	if short, daily, ok := parsePair(h.Get("X-RateLimit-Limit")); ok {
		r.short.limit = short
		r.daily.limit = daily
	}
}

// Status returns how many requests remain in each window
func (r *RateLimiter) Status() (shortRemaining, dailyRemaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.short.limit - r.short.usage, r.daily.limit - r.daily.usage
}

func parsePair(v string) (int, int, bool) {
	parts := strings.Split(v, ",")
	if len(parts) < 2 {
		return 0, 0, false
	}
	a, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	b, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	return a, b, true
}

func nextMidnight(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
}

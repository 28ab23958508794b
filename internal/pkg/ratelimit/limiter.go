package ratelimit

import (
	"context"
	"time"
)

// Result describes the outcome of one check-and-record call.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter is a keyed sliding-window counter.
// Allow prunes hits at or before now-window; when max hits remain the call is
// rejected without being recorded, otherwise now is recorded and the call allowed.
type Limiter interface {
	Allow(ctx context.Context, key string, max int, window time.Duration) (Result, error)
}

// retryAfter is the time until the oldest hit leaves the window.
func retryAfter(oldest, now time.Time, window time.Duration) time.Duration {
	d := oldest.Add(window).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

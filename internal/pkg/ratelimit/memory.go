package ratelimit

import (
	"context"
	"sync"
	"time"
)

const defaultSweepEvery = 1024

type memoryEntry struct {
	hits   []time.Time
	window time.Duration
}

// MemoryLimiter keeps per-key hit logs in process memory.
// Counters are not shared between instances and are lost on restart.
type MemoryLimiter struct {
	mu         sync.Mutex
	entries    map[string]*memoryEntry
	now        func() time.Time
	calls      int
	sweepEvery int
}

// NewMemoryLimiter returns a limiter that reads time from now; nil means time.Now.
func NewMemoryLimiter(now func() time.Time) *MemoryLimiter {
	if now == nil {
		now = time.Now
	}
	return &MemoryLimiter{
		entries:    make(map[string]*memoryEntry),
		now:        now,
		sweepEvery: defaultSweepEvery,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, max int, window time.Duration) (Result, error) {
	if key == "" {
		return Result{Allowed: false}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.calls++
	if l.calls%l.sweepEvery == 0 {
		l.sweepLocked(now)
	}

	e, ok := l.entries[key]
	if !ok {
		e = &memoryEntry{}
		l.entries[key] = e
	}
	e.window = window
	e.hits = prune(e.hits, now.Add(-window))

	if len(e.hits) >= max {
		var wait time.Duration
		if len(e.hits) > 0 {
			wait = retryAfter(e.hits[0], now, window)
		}
		return Result{Allowed: false, RetryAfter: wait}, nil
	}

	e.hits = append(e.hits, now)
	return Result{Allowed: true, Remaining: max - len(e.hits)}, nil
}

// Sweep drops keys whose hits have all left their window.
func (l *MemoryLimiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweepLocked(l.now())
}

// Len returns the number of tracked keys.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *MemoryLimiter) sweepLocked(now time.Time) {
	for key, e := range l.entries {
		e.hits = prune(e.hits, now.Add(-e.window))
		if len(e.hits) == 0 {
			delete(l.entries, key)
		}
	}
}

// prune removes hits at or before cutoff. hits is sorted ascending.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return hits
	}
	return append(hits[:0], hits[i:]...)
}

package broadcast

import (
	"context"
	"sync"
	"time"
)

// RateLimiter bounds how many signals may be broadcast inside a trailing window.
// Allow reserves a slot on success; it is called once per signal, never per
// subscriber.
type RateLimiter interface {
	Allow(ctx context.Context, now time.Time, limit int) (bool, error)
}

// WindowLimiter is the in-process sliding-window implementation.
type WindowLimiter struct {
	mu     sync.Mutex
	window time.Duration
	stamps []time.Time
}

// NewWindowLimiter creates a limiter over the trailing window (an hour for the
// max-per-hour policy).
func NewWindowLimiter(window time.Duration) *WindowLimiter {
	if window <= 0 {
		window = time.Hour
	}
	return &WindowLimiter{window: window}
}

// Allow prunes expired stamps and reserves a slot when under the limit. A
// non-positive limit means unlimited.
func (w *WindowLimiter) Allow(ctx context.Context, now time.Time, limit int) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := now.Add(-w.window)
	kept := w.stamps[:0]
	for _, ts := range w.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.stamps = kept

	if limit > 0 && len(w.stamps) >= limit {
		return false, nil
	}
	w.stamps = append(w.stamps, now)
	return true, nil
}

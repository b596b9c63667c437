/*
limiter.go - Per-user sliding-window rate limiter

PURPOSE:
  Bounds how often a user can hit the LLM gateway. The limiter is an
  explicitly constructed, injected dependency owned by the composition
  root; window and threshold come from configuration, not constants.

SEMANTICS:
  Allow(key) records a hit and returns true while fewer than Limit hits
  fall inside the trailing Window. Keys are caller-defined, typically
  "userID:service".
*/
package tutor

import (
	"sync"
	"time"
)

// =============================================================================
// RATE LIMITER
// =============================================================================

type RateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	limit  int
	hits   map[string][]time.Time

	now func() time.Time // injectable for tests
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		window: window,
		limit:  limit,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// SetNow overrides the limiter's clock. Test hook.
func (rl *RateLimiter) SetNow(now func() time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.now = now
}

// Allow reports whether the caller may proceed, counting this call as a
// hit when it does. Denied calls are not counted.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)

	kept := rl.hits[key][:0]
	for _, t := range rl.hits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= rl.limit {
		rl.hits[key] = kept
		return false
	}
	rl.hits[key] = append(kept, now)
	return true
}

// Remaining returns how many hits are left in the current window.
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.window)
	n := 0
	for _, t := range rl.hits[key] {
		if t.After(cutoff) {
			n++
		}
	}
	if n >= rl.limit {
		return 0
	}
	return rl.limit - n
}

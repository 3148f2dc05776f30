// Package secsim provides the simulated security collaborators the editing
// core consumes: an authorization gate with attempt lockout, a sliding-window
// rate limiter, and CSRF tokens.
//
// These are in-process simulations with no cryptographic or server-side
// enforcement; the core only ever sees them through narrow capability
// interfaces. Expiry is wall-clock-compared lazily on each check, never on a
// background timer.
package secsim

import (
	"sync"
	"time"
)

// Decision is the result of a rate-limit check.
type Decision struct {
	Allowed   bool
	ResetAt   time.Time
	Remaining int
}

// RateLimiter is a sliding-window counter per action key: timestamps older
// than the window are pruned on each check, and an allowed check records the
// current time against the key.
//
// Concurrency:
//   - Safe for concurrent use.
type RateLimiter struct {
	mu     sync.Mutex
	events map[string][]time.Time

	// now is injected for deterministic tests. Production uses time.Now.
	now func() time.Time
}

// NewRateLimiter returns an empty limiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{events: make(map[string][]time.Time), now: time.Now}
}

// Check reports whether another occurrence of action is permitted given at
// most max occurrences per window.
//
// Edge cases:
//   - max <= 0 always denies.
//   - A denied check does not consume quota.
//   - ResetAt is when the oldest in-window occurrence ages out (denied) or
//     when the occurrence recorded now ages out (allowed).
func (r *RateLimiter) Check(action string, max int, window time.Duration) Decision {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	kept := r.events[action][:0]
	for _, ts := range r.events[action] {
		if now.Sub(ts) < window {
			kept = append(kept, ts)
		}
	}
	r.events[action] = kept

	if len(kept) >= max {
		resetAt := now
		if len(kept) > 0 {
			resetAt = kept[0].Add(window)
		}
		return Decision{Allowed: false, ResetAt: resetAt, Remaining: 0}
	}

	r.events[action] = append(kept, now)
	return Decision{
		Allowed:   true,
		ResetAt:   now.Add(window),
		Remaining: max - len(r.events[action]),
	}
}

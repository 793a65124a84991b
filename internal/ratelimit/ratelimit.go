// Package ratelimit implements an in-process sliding-window rate limiter
// keyed by arbitrary strings (account ids, endpoint names). A sliding
// window avoids the burst-at-boundary admission of fixed windows, which
// matters because the remote service enforces informal per-account
// limits that must not be exceeded.
package ratelimit

import (
	"sync"
	"time"
)

// Result describes one admission decision.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter admits at most limit events per key within a trailing window.
// Check-then-record is atomic per key: Attempt holds the lock across
// both steps, so concurrent callers cannot interleave.
type Limiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	keys   map[string][]time.Time
	now    func() time.Time
}

func New(limit int, window time.Duration) *Limiter {
	return &Limiter{
		limit:  limit,
		window: window,
		keys:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Check computes admissibility for key without recording an attempt.
func (l *Limiter) Check(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.decide(key, l.now())
}

// Attempt records a timestamp for the current instant if and only if the
// action is allowed, and returns the decision.
func (l *Limiter) Attempt(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	res := l.decide(key, now)
	if res.Allowed {
		l.keys[key] = append(l.keys[key], now)
		res.Remaining--
	}
	return res
}

// decide prunes expired timestamps for key and computes the decision.
// Caller must hold the lock.
func (l *Limiter) decide(key string, now time.Time) Result {
	windowStart := now.Add(-l.window)

	timestamps := l.keys[key]
	filtered := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(windowStart) {
			filtered = append(filtered, ts)
		}
	}
	if len(filtered) == 0 && timestamps != nil {
		delete(l.keys, key)
	} else if timestamps != nil {
		l.keys[key] = filtered
	}

	res := Result{
		Allowed:   len(filtered) < l.limit,
		Remaining: l.limit - len(filtered),
		ResetAt:   now,
	}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if len(filtered) > 0 {
		res.ResetAt = filtered[0].Add(l.window)
	}
	return res
}

// Cleanup purges keys with no timestamps left inside the window, bounding
// memory across long-lived processes with one key per account. Returns
// the number of keys removed.
func (l *Limiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	windowStart := l.now().Add(-l.window)
	removed := 0
	for key, timestamps := range l.keys {
		live := false
		for _, ts := range timestamps {
			if ts.After(windowStart) {
				live = true
				break
			}
		}
		if !live {
			delete(l.keys, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}

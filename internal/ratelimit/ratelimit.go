// Package ratelimit implements a fixed-window counter per operation name.
// The window resets at discrete boundaries rather than sliding, so bursts
// straddling a boundary are not smoothed; that granularity trade-off is
// accepted for the call volumes involved here (scraping, email).
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrLimitExceeded is returned when an operation's window budget is spent.
// Callers must back off or skip; it never escalates to crash a run.
var ErrLimitExceeded = errors.New("rate limit exceeded")

type window struct {
	count int
	start time.Time
}

// Limiter tracks one fixed window per operation name. State survives across
// scheduled runs in a long-lived process and is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// New returns an empty limiter using the wall clock.
func New() *Limiter {
	return &Limiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// NewWithClock returns a limiter with an injected clock for tests.
func NewWithClock(now func() time.Time) *Limiter {
	l := New()
	l.now = now
	return l
}

// Acquire consumes one unit of op's budget for the current window. It
// returns an error wrapping ErrLimitExceeded when the budget is spent.
func (l *Limiter) Acquire(op string, limit int, windowSize time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[op]
	if !ok || now.Sub(w.start) >= windowSize {
		w = &window{start: now}
		l.windows[op] = w
	}

	if w.count >= limit {
		return fmt.Errorf("operation %s: %w", op, ErrLimitExceeded)
	}

	w.count++
	return nil
}

// Remaining reports the unused budget for op in its current window.
func (l *Limiter) Remaining(op string, limit int, windowSize time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[op]
	if !ok || l.now().Sub(w.start) >= windowSize {
		return limit
	}
	if w.count >= limit {
		return 0
	}
	return limit - w.count
}

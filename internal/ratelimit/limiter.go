// Package ratelimit is the process-wide send throughput gate: a fixed
// one-minute window plus exponential backoff after provider errors.
//
// The limiter is advisory. Callers check before every send and honor the
// returned wait; two callers racing between Check and the send itself are
// not serialized.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultMaxPerMinute is the send budget per window.
	DefaultMaxPerMinute = 60

	window      = time.Minute
	minWait     = time.Second
	baseBackoff = 5 * time.Second
	maxBackoff  = 120 * time.Second
)

// Decision is the outcome of a Check.
type Decision struct {
	Allowed bool          `json:"allowed"`
	Wait    time.Duration `json:"wait"`
	Reason  string        `json:"reason,omitempty"`
}

// State is a point-in-time copy of the limiter's counters.
type State struct {
	WindowStart       time.Time `json:"window_start"`
	Count             int       `json:"count"`
	MaxPerMinute      int       `json:"max_per_minute"`
	BackoffUntil      time.Time `json:"backoff_until"`
	ConsecutiveErrors int       `json:"consecutive_errors"`
}

// Limiter holds the shared window and backoff state. All methods are safe
// for concurrent use.
type Limiter struct {
	mu                sync.Mutex
	now               func() time.Time
	maxPerMinute      int
	windowStart       time.Time
	count             int
	backoffUntil      time.Time
	consecutiveErrors int
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a limiter allowing maxPerMinute sends per window. Values
// below one fall back to DefaultMaxPerMinute.
func New(maxPerMinute int, opts ...Option) *Limiter {
	if maxPerMinute < 1 {
		maxPerMinute = DefaultMaxPerMinute
	}
	l := &Limiter{now: time.Now, maxPerMinute: maxPerMinute}
	for _, opt := range opts {
		opt(l)
	}
	l.windowStart = l.now()
	return l
}

// Check consumes one send slot if one is available.
func (l *Limiter) Check() Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Before(l.backoffUntil) {
		wait := l.backoffUntil.Sub(now)
		return Decision{
			Wait:   wait,
			Reason: fmt.Sprintf("backing off after %d consecutive errors", l.consecutiveErrors),
		}
	}

	if now.Sub(l.windowStart) >= window {
		l.count = 0
		l.windowStart = now
	}

	if l.count >= l.maxPerMinute {
		wait := window - now.Sub(l.windowStart)
		if wait < minWait {
			wait = minWait
		}
		return Decision{
			Wait:   wait,
			Reason: fmt.Sprintf("rate limit of %d per minute reached", l.maxPerMinute),
		}
	}

	l.count++
	return Decision{Allowed: true}
}

// ReportError records a provider failure and extends the backoff. It
// returns the backoff length applied.
func (l *Limiter) ReportError() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.consecutiveErrors++
	backoff := BackoffFor(l.consecutiveErrors)
	l.backoffUntil = l.now().Add(backoff)
	return backoff
}

// ReportSuccess clears the error streak. An active backoff still runs out
// on its own.
func (l *Limiter) ReportSuccess() {
	l.mu.Lock()
	l.consecutiveErrors = 0
	l.mu.Unlock()
}

// State returns a snapshot of the counters.
func (l *Limiter) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return State{
		WindowStart:       l.windowStart,
		Count:             l.count,
		MaxPerMinute:      l.maxPerMinute,
		BackoffUntil:      l.backoffUntil,
		ConsecutiveErrors: l.consecutiveErrors,
	}
}

// Wait blocks until Check allows a send or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		d := l.Check()
		if d.Allowed {
			return nil
		}
		timer := time.NewTimer(d.Wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// BackoffFor returns the backoff after n consecutive errors:
// 5s doubling per error, capped at 120s.
func BackoffFor(n int) time.Duration {
	if n < 1 {
		return 0
	}
	d := baseBackoff
	for i := 1; i < n; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

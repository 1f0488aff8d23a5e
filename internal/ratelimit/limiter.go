// Package ratelimit bounds how often a keyed action may succeed using fixed
// windows that reset once expired.
//
// The store is process local. Several server instances do not share counters,
// so the limits only hold for a single-instance deployment.
package ratelimit

import (
	"math"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultCleanupInterval is the minimum gap between two sweeps of expired entries.
const DefaultCleanupInterval = 5 * time.Minute

// Result reports the outcome of a single Check.
type Result struct {
	Allowed           bool
	Remaining         int
	RetryAfterSeconds int
}

type entry struct {
	count   int
	resetAt time.Time
}

// Limiter keeps one fixed-window counter per key.
type Limiter struct {
	mu              sync.Mutex
	entries         map[string]*entry
	lastCleanup     time.Time
	cleanupInterval time.Duration
	now             func() time.Time
	decisions       *prometheus.CounterVec
}

// Option customises a Limiter.
type Option func(*Limiter)

// WithClock overrides the wall clock, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithCleanupInterval changes how often expired entries are swept.
func WithCleanupInterval(d time.Duration) Option {
	return func(l *Limiter) {
		if d > 0 {
			l.cleanupInterval = d
		}
	}
}

// WithRegisterer exposes allow/deny counters on the given registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(l *Limiter) {
		if reg == nil {
			return
		}
		decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "akademi_ratelimit_decisions_total",
			Help: "Rate limit decisions by policy and outcome.",
		}, []string{"policy", "outcome"})
		if err := reg.Register(decisions); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
					l.decisions = existing
				}
			}
			return
		}
		l.decisions = decisions
	}
}

// New constructs an empty Limiter.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		entries:         make(map[string]*entry),
		cleanupInterval: DefaultCleanupInterval,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.lastCleanup = l.now()
	return l
}

// Check records an attempt for key under policy p and reports whether it may
// proceed. A denied attempt does not count against the window.
func (l *Limiter) Check(key string, p Policy) Result {
	if !p.valid() {
		return Result{Allowed: true, Remaining: 0}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.cleanupLocked(now)

	e, ok := l.entries[key]
	if !ok || !now.Before(e.resetAt) {
		l.entries[key] = &entry{count: 1, resetAt: now.Add(p.Window)}
		l.observe(p, true)
		return Result{Allowed: true, Remaining: p.MaxAttempts - 1}
	}

	if e.count >= p.MaxAttempts {
		l.observe(p, false)
		return Result{
			Allowed:           false,
			Remaining:         0,
			RetryAfterSeconds: int(math.Ceil(e.resetAt.Sub(now).Seconds())),
		}
	}

	e.count++
	l.observe(p, true)
	return Result{Allowed: true, Remaining: p.MaxAttempts - e.count}
}

// Reset forgets the counter for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	delete(l.entries, key)
	l.mu.Unlock()
}

// Len returns the number of tracked keys, expired or not.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Limiter) cleanupLocked(now time.Time) {
	if now.Sub(l.lastCleanup) <= l.cleanupInterval {
		return
	}
	for key, e := range l.entries {
		if !now.Before(e.resetAt) {
			delete(l.entries, key)
		}
	}
	l.lastCleanup = now
}

func (l *Limiter) observe(p Policy, allowed bool) {
	if l.decisions == nil {
		return
	}
	outcome := "allowed"
	if !allowed {
		outcome = "denied"
	}
	l.decisions.WithLabelValues(p.Name, outcome).Inc()
}

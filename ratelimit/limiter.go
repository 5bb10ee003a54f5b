package ratelimit

import (
	"context"
	"time"
)

// Rule bounds one endpoint: at most Max recorded attempts per Window.
type Rule struct {
	Max    int
	Window time.Duration
}

// Result is the outcome of a Check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Store holds fixed-window counters. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get returns the current count for key, or 0 if the key is absent
	// or its window has elapsed. resetAt is the end of the active
	// window and is meaningful only when count > 0.
	Get(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)

	// Incr increments the counter for key, starting a fresh window when
	// the key is absent or its previous window has elapsed.
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}

// Limiter enforces per-key rules against an injected Store.
type Limiter struct {
	store Store
}

// New returns a Limiter backed by store.
func New(store Store) *Limiter {
	return &Limiter{store: store}
}

// Check reports whether another attempt under key is within rule. It does
// not record the attempt; callers that proceed must call Record.
func (l *Limiter) Check(ctx context.Context, key string, rule Rule) (Result, error) {
	count, resetAt, err := l.store.Get(ctx, key, rule.Window)
	if err != nil {
		return Result{}, err
	}

	if count >= int64(rule.Max) {
		return Result{Allowed: false, Remaining: 0, ResetAt: resetAt}, nil
	}

	remaining := rule.Max - int(count)
	return Result{Allowed: true, Remaining: remaining, ResetAt: resetAt}, nil
}

// Record counts one attempt under key.
func (l *Limiter) Record(ctx context.Context, key string, rule Rule) error {
	_, _, err := l.store.Incr(ctx, key, rule.Window)
	return err
}

// Key composes the canonical counter key for an endpoint and caller
// identifier (client IP unless the deployment keys on something else).
func Key(endpoint, identifier string) string {
	return endpoint + ":" + identifier
}

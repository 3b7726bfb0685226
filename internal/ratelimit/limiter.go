package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Counter records hits in a sliding window.
type Counter interface {
	// Hit records one request for key and returns the hits inside the trailing window,
	// including this one.
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Decision is the outcome of a rate limit check. Scope, Limit and Count describe the
// exceeded limit when the request is rejected, otherwise the limit closest to exhaustion.
type Decision struct {
	Allowed bool
	Scope   Scope
	Limit   LimitConfig
	Count   int64
}

// Limited reports whether any limit was evaluated.
func (d Decision) Limited() bool {
	return d.Limit.Max > 0
}

// Remaining is the number of requests left in the current window.
func (d Decision) Remaining() int64 {
	return max(d.Limit.Max-d.Count, 0)
}

// RetryAfter is how long a rejected client should wait. The sliding window frees
// capacity at the latest one full window after the rejection.
func (d Decision) RetryAfter() time.Duration {
	if d.Allowed {
		return 0
	}

	return d.Limit.Window
}

// Limiter enforces a Policy with counters kept in a Counter.
type Limiter struct {
	counter Counter
	policy  *Policy
}

// NewLimiter creates a limiter for policy.
func NewLimiter(counter Counter, policy *Policy) *Limiter {
	return &Limiter{counter: counter, policy: policy}
}

// Check counts the request against every limit of every scope and stops at the first
// exceeded one. Scopes without limits are skipped.
func (l *Limiter) Check(ctx context.Context, client string, scopes []Scope) (Decision, error) {
	best := Decision{Allowed: true}

	for _, scope := range scopes {
		for _, limit := range l.policy.Limits[scope] {
			key := fmt.Sprintf("%s:%s:%d", client, scope, limit.Window.Milliseconds())

			d, err := l.hit(ctx, key, scope, limit)
			if err != nil || !d.Allowed {
				return d, err
			}

			best = tighter(best, d)
		}
	}

	return best, nil
}

// CheckLimits counts the request against explicit limits for one route.
func (l *Limiter) CheckLimits(ctx context.Context, client, route string, limits []LimitConfig) (Decision, error) {
	best := Decision{Allowed: true}

	for _, limit := range limits {
		key := fmt.Sprintf("%s:route:%s:%d", client, route, limit.Window.Milliseconds())

		d, err := l.hit(ctx, key, "", limit)
		if err != nil || !d.Allowed {
			return d, err
		}

		best = tighter(best, d)
	}

	return best, nil
}

func (l *Limiter) hit(ctx context.Context, key string, scope Scope, limit LimitConfig) (Decision, error) {
	count, err := l.counter.Hit(ctx, key, limit.Window)
	if err != nil {
		return Decision{}, fmt.Errorf("count %s: %w", key, err)
	}

	return Decision{
		Allowed: count <= limit.Max,
		Scope:   scope,
		Limit:   limit,
		Count:   count,
	}, nil
}

func tighter(a, b Decision) Decision {
	if !a.Limited() || b.Remaining() < a.Remaining() {
		return b
	}

	return a
}

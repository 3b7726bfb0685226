package ratelimit

import "time"

// LimitConfig allows at most Max requests per Window.
type LimitConfig struct {
	Max    int64
	Window time.Duration
}

// Policy maps scopes to the limits enforced for them.
type Policy struct {
	Limits map[Scope][]LimitConfig
}

// PolicyBuilder assembles a Policy.
type PolicyBuilder struct {
	policy *Policy
}

// NewPolicyBuilder creates an empty policy builder.
func NewPolicyBuilder() *PolicyBuilder {
	return &PolicyBuilder{policy: &Policy{Limits: make(map[Scope][]LimitConfig)}}
}

// AddLimit adds a limit to scope. Non-positive max values are ignored so that
// a zero in configuration disables that limit.
func (b *PolicyBuilder) AddLimit(scope Scope, maxRequests int64, window time.Duration) *PolicyBuilder {
	if maxRequests <= 0 || window <= 0 {
		return b
	}

	b.policy.Limits[scope] = append(b.policy.Limits[scope], LimitConfig{Max: maxRequests, Window: window})

	return b
}

// Build returns the assembled policy.
func (b *PolicyBuilder) Build() *Policy {
	return b.policy
}

package ratelimit

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// Scope groups requests that share a rate limit budget.
type Scope string

const (
	ScopeGlobal   Scope = "global"
	ScopeRead     Scope = "read"
	ScopeWrite    Scope = "write"
	ScopeRedirect Scope = "redirect"
)

// MetadataKey is the huma operation metadata key holding an EndpointConfig.
const MetadataKey = "rateLimit"

// EndpointConfig overrides rate limiting for one operation.
//
// Scope replaces the method-derived scope. Limits, when set, are enforced instead of
// any policy scope and are counted per route. Disabled skips rate limiting.
type EndpointConfig struct {
	Scope    Scope
	Limits   []LimitConfig
	Disabled bool
}

// EndpointConfigOf returns the EndpointConfig attached to op, or nil.
func EndpointConfigOf(op *huma.Operation) *EndpointConfig {
	if op == nil || op.Metadata == nil {
		return nil
	}

	cfg, ok := op.Metadata[MetadataKey].(EndpointConfig)
	if !ok {
		return nil
	}

	return &cfg
}

// MethodScope classifies safe methods as reads and everything else as writes.
func MethodScope(method string) Scope {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return ScopeRead
	default:
		return ScopeWrite
	}
}

// ResolveScopes returns the scopes a request counts against. ScopeGlobal always
// applies; the second scope comes from the operation metadata or the method.
func ResolveScopes(ctx huma.Context) []Scope {
	if cfg := EndpointConfigOf(ctx.Operation()); cfg != nil && cfg.Scope != "" {
		return []Scope{ScopeGlobal, cfg.Scope}
	}

	return []Scope{ScopeGlobal, MethodScope(ctx.Method())}
}

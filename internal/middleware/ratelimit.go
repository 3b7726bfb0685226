package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortener-ws/internal/ratelimit"
	"go.uber.org/zap"
)

// Rate limit response headers.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRetryAfter         = "Retry-After"
)

// clientKey identifies a client by IP and User-Agent without storing either.
func clientKey(ctx huma.Context) string {
	sum := sha256.Sum256([]byte(clientIP(ctx) + "|" + ctx.Header("User-Agent")))

	return hex.EncodeToString(sum[:])
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the peer address.
func clientIP(ctx huma.Context) string {
	if xff := ctx.Header("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")

		return strings.TrimSpace(first)
	}

	if xri := ctx.Header("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	addr := ctx.RemoteAddr()

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}

	return host
}

// RateLimit returns a huma middleware enforcing limiter for every operation.
//
// Operations can attach a ratelimit.EndpointConfig under ratelimit.MetadataKey to
// disable limiting, pick a scope, or enforce their own limits.
func RateLimit(
	api huma.API,
	limiter *ratelimit.Limiter,
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		cfg := ratelimit.EndpointConfigOf(ctx.Operation())
		if cfg != nil && cfg.Disabled {
			next(ctx)

			return
		}

		var (
			decision ratelimit.Decision
			err      error
		)

		route := operationPath(ctx)

		if cfg != nil && len(cfg.Limits) > 0 {
			decision, err = limiter.CheckLimits(ctx.Context(), clientKey(ctx), route, cfg.Limits)
		} else {
			decision, err = limiter.Check(ctx.Context(), clientKey(ctx), ratelimit.ResolveScopes(ctx))
		}

		if err != nil {
			logger.Error("rate limit check failed", zap.String("route", route), zap.Error(err))
			_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error", err)

			return
		}

		if decision.Limited() {
			ctx.SetHeader(HeaderRateLimitLimit, strconv.FormatInt(decision.Limit.Max, 10))
			ctx.SetHeader(HeaderRateLimitRemaining, strconv.FormatInt(decision.Remaining(), 10))
		}

		if !decision.Allowed {
			rejected(api, ctx, decision, route, logger)

			return
		}

		next(ctx)
	}
}

func rejected(api huma.API, ctx huma.Context, d ratelimit.Decision, route string, logger *zap.Logger) {
	logger.Warn("rate limit exceeded",
		zap.String("route", route),
		zap.String("method", ctx.Method()),
		zap.String("scope", string(d.Scope)),
		zap.Int64("count", d.Count),
		zap.Int64("max", d.Limit.Max),
		zap.Duration("window", d.Limit.Window),
		zap.String("request_id", RequestIDFromContext(ctx.Context())),
	)

	ctx.SetHeader(HeaderRetryAfter, strconv.Itoa(max(int(d.RetryAfter().Seconds()), 1)))

	_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests,
		fmt.Sprintf("rate limit exceeded: %d requests per %s", d.Limit.Max, d.Limit.Window))
}

func operationPath(ctx huma.Context) string {
	if op := ctx.Operation(); op != nil {
		return op.Path
	}

	return ctx.URL().Path
}

package middleware

import (
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortener-ws/internal/metrics"
	"go.uber.org/zap"
)

// RequestLogger logs every request and records it in the HTTP metrics.
func RequestLogger(logger *zap.Logger, m *metrics.Metrics) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		start := time.Now()

		m.RequestsInFlight.Inc()
		defer m.RequestsInFlight.Dec()

		next(ctx)

		duration := time.Since(start)
		route := operationPath(ctx)
		status := ctx.Status()

		m.RequestDuration.
			WithLabelValues(ctx.Method(), route, strconv.Itoa(status)).
			Observe(duration.Seconds())

		fields := []zap.Field{
			zap.String("method", ctx.Method()),
			zap.String("route", route),
			zap.String("path", ctx.URL().Path),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("request_id", RequestIDFromContext(ctx.Context())),
		}

		if status >= 500 {
			logger.Error("request completed", fields...)

			return
		}

		logger.Info("request completed", fields...)
	}
}

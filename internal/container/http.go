package container

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/do"
	"github.com/serroba/shortener-ws/internal/handlers"
	"github.com/serroba/shortener-ws/internal/health"
	"github.com/serroba/shortener-ws/internal/metrics"
	"github.com/serroba/shortener-ws/internal/middleware"
	"github.com/serroba/shortener-ws/internal/ratelimit"
	"github.com/serroba/shortener-ws/internal/shortener"
	"github.com/serroba/shortener-ws/internal/store"
	"go.uber.org/zap"
)

// MetricsPackage provides the prometheus registry and the service collectors.
func MetricsPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*prometheus.Registry, error) {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		return reg, nil
	})

	do.Provide(injector, func(i *do.Injector) (*metrics.Metrics, error) {
		return metrics.New(do.MustInvoke[*prometheus.Registry](i)), nil
	})
}

// RateLimitPackage provides the rate limiter, backed by Redis when configured.
func RateLimitPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*ratelimit.Limiter, error) {
		opts := do.MustInvoke[*Options](i)

		policy := ratelimit.NewPolicyBuilder().
			AddLimit(ratelimit.ScopeGlobal, int64(opts.RateLimitGlobal), time.Minute).
			AddLimit(ratelimit.ScopeRead, int64(opts.RateLimitRead), time.Minute).
			AddLimit(ratelimit.ScopeWrite, int64(opts.RateLimitWrite), time.Minute).
			AddLimit(ratelimit.ScopeRedirect, int64(opts.RateLimitRedirect), time.Minute).
			Build()

		if opts.RedisAddr == "" {
			return ratelimit.NewLimiter(store.NewRateLimitMemoryStore(), policy), nil
		}

		client, err := do.Invoke[*RedisClient](i)
		if err != nil {
			return nil, err
		}

		return ratelimit.NewLimiter(store.NewRateLimitRedisStore(client), policy), nil
	})
}

// HealthPackage provides the health handler with a checker per configured dependency.
func HealthPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*health.Handler, error) {
		opts := do.MustInvoke[*Options](i)
		h := health.NewHandler()

		switch opts.Store {
		case StorePostgres:
			pool, err := do.Invoke[*PostgresPool](i)
			if err != nil {
				return nil, err
			}

			h.With("postgres", health.NewPostgresChecker(pool.Pool))
		case StoreSQLite:
			s, err := do.Invoke[*store.SQLiteStore](i)
			if err != nil {
				return nil, err
			}

			h.With("sqlite", health.NewSQLChecker(s.DB()))
		}

		if opts.RedisAddr != "" {
			client, err := do.Invoke[*RedisClient](i)
			if err != nil {
				return nil, err
			}

			h.With("redis", health.NewRedisChecker(client))
		}

		return h, nil
	})
}

// HTTPPackage provides the router and the huma API with every route registered.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*chi.Mux, error) {
		opts := do.MustInvoke[*Options](i)

		router := chi.NewMux()
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins(),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders: []string{
				"Location",
				middleware.RequestIDHeader,
				middleware.HeaderRateLimitLimit,
				middleware.HeaderRateLimitRemaining,
				middleware.HeaderRetryAfter,
			},
			MaxAge: 300,
		}))

		return router, nil
	})

	do.Provide(injector, func(i *do.Injector) (shortener.Linker, error) {
		opts := do.MustInvoke[*Options](i)

		return handlers.NewLinker(opts.PublicBaseURL(), opts.BasePath), nil
	})

	do.Provide(injector, func(i *do.Injector) (*handlers.URLHandler, error) {
		return handlers.NewURLHandler(
			do.MustInvoke[*shortener.Service](i),
			do.MustInvoke[*shortener.Rewriter](i),
			do.MustInvoke[shortener.Linker](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		router := do.MustInvoke[*chi.Mux](i)
		logger := do.MustInvoke[*zap.Logger](i)
		reg := do.MustInvoke[*prometheus.Registry](i)

		api := humachi.New(router, huma.DefaultConfig("URL Shortener", "1.0.0"))
		api.UseMiddleware(
			middleware.RequestID(api),
			middleware.RequestLogger(logger, do.MustInvoke[*metrics.Metrics](i)),
			middleware.RateLimit(api, do.MustInvoke[*ratelimit.Limiter](i), logger),
		)

		router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		health.RegisterRoutes(api, do.MustInvoke[*health.Handler](i))
		handlers.RegisterRoutes(api, opts.BasePath, do.MustInvoke[*handlers.URLHandler](i))

		return api, nil
	})
}

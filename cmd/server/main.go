package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/samber/do"
	"github.com/serroba/shortener-ws/internal/container"
	"github.com/serroba/shortener-ws/internal/messaging"
	"github.com/serroba/shortener-ws/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func registerPackages(injector *do.Injector, options *container.Options) {
	do.ProvideValue(injector, options)
	container.LoggerPackage(injector)
	container.RedisPackage(injector)
	container.PostgresPackage(injector)
	container.SQLitePackage(injector)
	container.RepositoryPackage(injector)
	container.GeneratorPackage(injector)
	container.ServicePackage(injector)
	container.MetricsPackage(injector)
	container.RateLimitPackage(injector)
	container.PublisherGroupPackage(injector)
	container.ConsumerGroupPackage(injector)
	container.HealthPackage(injector)
	container.HTTPPackage(injector)
}

func main() {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	cli := humacli.New(func(hooks humacli.Hooks, options *container.Options) {
		injector := do.New()
		registerPackages(injector, options)

		var server *http.Server

		hooks.OnStart(func() {
			logger := do.MustInvoke[*zap.Logger](injector)
			router := do.MustInvoke[*chi.Mux](injector)

			// Invoke API to trigger route registration
			_ = do.MustInvoke[huma.API](injector)

			// Without Redis the audit consumer runs in-process on the shared channel.
			if options.Events && options.RedisAddr == "" {
				group := do.MustInvoke[*messaging.ConsumerGroup](injector)
				if err := group.Start(context.Background()); err != nil {
					logger.Fatal("failed to start consumer group", zap.Error(err))
				}
			}

			server = &http.Server{
				Addr:              fmt.Sprintf(":%d", options.Port),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			logger.Info("server starting",
				zap.Int("port", options.Port),
				zap.String("base_url", options.PublicBaseURL()),
				zap.String("store", options.Store),
			)

			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal("server failed", zap.Error(err))
			}
		})

		hooks.OnStop(func() {
			logger := do.MustInvoke[*zap.Logger](injector)
			logger.Info("shutting down")

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if server != nil {
				if err := server.Shutdown(ctx); err != nil {
					logger.Error("server shutdown error", zap.Error(err))
				}
			}

			if err := injector.Shutdown(); err != nil {
				logger.Error("service shutdown error", zap.Error(err))
			}

			logger.Info("shutdown complete")
			_ = logger.Sync()
		})
	})

	cli.Root().AddCommand(migrateCommand(), openAPICommand())

	cli.Run()
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations for the configured store",
		Run: humacli.WithOptions(func(cmd *cobra.Command, _ []string, options *container.Options) {
			logger, err := container.NewLogger(options.LogFormat, options.LogLevel)
			if err != nil {
				cmd.PrintErrln(err)

				return
			}

			if err := migrate(cmd.Context(), options); err != nil {
				logger.Fatal("migration failed", zap.String("store", options.Store), zap.Error(err))
			}

			logger.Info("migrations applied", zap.String("store", options.Store))
		}),
	}
}

func migrate(ctx context.Context, options *container.Options) error {
	switch options.Store {
	case container.StorePostgres:
		pool, err := pgxpool.New(ctx, options.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()

		return store.MigratePostgres(ctx, pool)
	case container.StoreSQLite:
		s, err := store.NewSQLiteStore(options.SQLitePath)
		if err != nil {
			return err
		}

		return s.Shutdown()
	default:
		return fmt.Errorf("store %q has no migrations", options.Store)
	}
}

func openAPICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "openapi",
		Short: "Print the OpenAPI document as YAML",
		Run: humacli.WithOptions(func(cmd *cobra.Command, _ []string, options *container.Options) {
			// The document does not depend on the backend.
			opts := *options
			opts.Store = container.StoreMemory
			opts.RedisAddr = ""
			opts.Events = false

			injector := do.New()
			registerPackages(injector, &opts)
			do.OverrideValue(injector, zap.NewNop())

			spec, err := do.MustInvoke[huma.API](injector).OpenAPI().YAML()
			if err != nil {
				cmd.PrintErrln(err)

				return
			}

			cmd.Println(string(spec))
		}),
	}
}

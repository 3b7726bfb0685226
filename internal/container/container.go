package container

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/shortener-ws/internal/events"
	"github.com/serroba/shortener-ws/internal/messaging"
	"github.com/serroba/shortener-ws/internal/metrics"
	"github.com/serroba/shortener-ws/internal/shortener"
	"github.com/serroba/shortener-ws/internal/store"
	"go.uber.org/zap"
)

// Store backends selectable with --store.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreRedis    = "redis"
)

// Code generators selectable with --generator.
const (
	GeneratorNanoid = "nanoid"
	GeneratorSqids  = "sqids"
)

type Options struct {
	Port     int    `default:"8888" help:"Port to listen on"                                      short:"p"`
	BaseURL  string `default:""     help:"Public base of short URLs (default http://localhost:<port>)"`
	BasePath string `default:""     help:"Path prefix for every shortener route"`

	CORSOrigins string `default:"*" help:"Comma-separated origins allowed by CORS, * allows any"`

	Store       string `default:"memory"     help:"Mapping store: memory, postgres, sqlite or redis" short:"s"`
	DatabaseURL string `default:""           help:"PostgreSQL connection string"`
	SQLitePath  string `default:"shortener.db" help:"SQLite database file"`
	RedisAddr   string `default:""           help:"Redis server address, enables cache, rate limit store and event streams" short:"r"`
	CacheTTL    int    `default:"300"        help:"Redis cache TTL in seconds for resolved codes, 0 disables the cache"`
	Migrate     bool   `default:"true"       help:"Apply database migrations on startup"`

	Generator   string `default:"nanoid" help:"Code generator: nanoid or sqids"`
	CodeLength  int    `default:"8"      help:"Length of generated short codes"                  short:"c"`
	MaxAttempts int    `default:"5"      help:"Code allocation attempts before giving up"`

	RateLimitGlobal   int `default:"1000" help:"Requests per minute per client, 0 disables"`
	RateLimitRead     int `default:"600"  help:"Read requests per minute per client, 0 disables"`
	RateLimitWrite    int `default:"60"   help:"Write requests per minute per client, 0 disables"`
	RateLimitRedirect int `default:"1200" help:"Redirects per minute per client, 0 disables"`

	Events        bool   `default:"false" help:"Publish mapping lifecycle events"`
	ConsumerGroup string `default:"audit" help:"Redis stream consumer group for the event consumer"`

	LogFormat string `default:"json" help:"Log format: json or console"`
	LogLevel  string `default:"info" help:"Log level: debug, info, warn or error"`
}

// PublicBaseURL returns the configured base URL or the local default.
func (o *Options) PublicBaseURL() string {
	if o.BaseURL != "" {
		return strings.TrimRight(o.BaseURL, "/")
	}

	return fmt.Sprintf("http://localhost:%d", o.Port)
}

// AllowedOrigins returns the CORS origins, any origin when none are configured.
func (o *Options) AllowedOrigins() []string {
	var origins []string

	for origin := range strings.SplitSeq(o.CORSOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}

	if len(origins) == 0 {
		return []string{"*"}
	}

	return origins
}

// LoggerPackage provides the application logger.
func LoggerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		return NewLogger(opts.LogFormat, opts.LogLevel)
	})
}

// NewLogger builds a JSON production logger, or a console development logger.
func NewLogger(format, level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	cfg := zap.NewProductionConfig()
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	}

	cfg.Level = lvl

	return cfg.Build()
}

// RedisClient is a shutdownable redis client.
type RedisClient struct {
	redis.UniversalClient
}

func (c *RedisClient) Shutdown() error {
	return c.Close()
}

// RedisPackage provides the redis client used by the redis store, cache, rate limiter and streams.
func RedisPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*RedisClient, error) {
		opts := do.MustInvoke[*Options](i)
		if opts.RedisAddr == "" {
			return nil, errors.New("redis address is not configured")
		}

		return &RedisClient{UniversalClient: redis.NewClient(&redis.Options{Addr: opts.RedisAddr})}, nil
	})
}

// PostgresPool is a shutdownable pgx pool.
type PostgresPool struct {
	*pgxpool.Pool
}

func (p *PostgresPool) Shutdown() error {
	p.Close()

	return nil
}

// PostgresPackage provides the PostgreSQL pool, migrated when Options.Migrate is set.
func PostgresPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*PostgresPool, error) {
		opts := do.MustInvoke[*Options](i)
		if opts.DatabaseURL == "" {
			return nil, errors.New("database url is not configured")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		pool, err := pgxpool.New(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		if err := pool.Ping(ctx); err != nil {
			pool.Close()

			return nil, fmt.Errorf("ping postgres: %w", err)
		}

		if opts.Migrate {
			if err := store.MigratePostgres(ctx, pool); err != nil {
				pool.Close()

				return nil, err
			}
		}

		return &PostgresPool{Pool: pool}, nil
	})
}

// SQLitePackage provides the SQLite store. Migrations always run on open.
func SQLitePackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*store.SQLiteStore, error) {
		opts := do.MustInvoke[*Options](i)

		return store.NewSQLiteStore(opts.SQLitePath)
	})
}

// RepositoryPackage provides the configured mapping store with its decorators.
func RepositoryPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (shortener.Repository, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		repo, err := newBackend(i, opts)
		if err != nil {
			return nil, err
		}

		if opts.Events {
			group, err := do.Invoke[*messaging.PublisherGroup](i)
			if err != nil {
				return nil, err
			}

			repo = store.NewPublishingRepository(
				repo,
				messaging.NewPublishFunc[events.MappingCreated](group.Publisher(), events.TopicMappingCreated),
				messaging.NewPublishFunc[events.MappingDeactivated](group.Publisher(), events.TopicMappingDeactivated),
				logger,
			)
		}

		if opts.RedisAddr != "" && opts.CacheTTL > 0 && (opts.Store == StorePostgres || opts.Store == StoreSQLite) {
			client, err := do.Invoke[*RedisClient](i)
			if err != nil {
				return nil, err
			}

			// Outermost, so a deactivation is published before the cache is invalidated.
			repo = store.NewRedisCacheRepository(repo, client, time.Duration(opts.CacheTTL)*time.Second, logger)
		}

		logger.Info("mapping store ready",
			zap.String("store", opts.Store),
			zap.Bool("events", opts.Events),
		)

		return repo, nil
	})
}

func newBackend(i *do.Injector, opts *Options) (shortener.Repository, error) {
	switch opts.Store {
	case StoreMemory:
		return store.NewMemoryStore(), nil
	case StorePostgres:
		pool, err := do.Invoke[*PostgresPool](i)
		if err != nil {
			return nil, err
		}

		return store.NewPostgresStore(pool.Pool), nil
	case StoreSQLite:
		return do.Invoke[*store.SQLiteStore](i)
	case StoreRedis:
		client, err := do.Invoke[*RedisClient](i)
		if err != nil {
			return nil, err
		}

		return store.NewRedisStore(client), nil
	default:
		return nil, fmt.Errorf("unknown store %q", opts.Store)
	}
}

// GeneratorPackage provides the short code generator.
func GeneratorPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (shortener.CodeGenerator, error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.Generator {
		case GeneratorNanoid:
			return shortener.NewNanoidGenerator(opts.CodeLength)
		case GeneratorSqids:
			g, err := shortener.NewCounterGenerator(opts.CodeLength)
			if err != nil {
				return nil, err
			}

			return g.Generate, nil
		default:
			return nil, fmt.Errorf("unknown generator %q", opts.Generator)
		}
	})
}

// ServicePackage provides the shortener service and the text rewriter.
func ServicePackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*shortener.Service, error) {
		opts := do.MustInvoke[*Options](i)

		return shortener.NewService(
			do.MustInvoke[shortener.Repository](i),
			do.MustInvoke[shortener.CodeGenerator](i),
			opts.MaxAttempts,
			do.MustInvoke[*zap.Logger](i),
		), nil
	})

	do.Provide(injector, func(i *do.Injector) (*shortener.Rewriter, error) {
		return shortener.NewRewriter(
			do.MustInvoke[*shortener.Service](i),
			do.MustInvoke[shortener.Linker](i),
		), nil
	})
}

// GoChannel is the in-process pubsub used for events when Redis is not configured.
type GoChannel struct {
	*gochannel.GoChannel
}

func (g *GoChannel) Shutdown() error {
	return g.Close()
}

// PublisherGroupPackage provides the event publisher: Redis streams when Redis is
// configured, otherwise an in-process channel.
func PublisherGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*GoChannel, error) {
		logger := do.MustInvoke[*zap.Logger](i)

		return &GoChannel{GoChannel: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 64},
			messaging.NewZapLogger(logger.Named("gochannel")),
		)}, nil
	})

	do.Provide(injector, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		var (
			publisher message.Publisher
			err       error
		)

		if opts.RedisAddr != "" {
			client, invokeErr := do.Invoke[*RedisClient](i)
			if invokeErr != nil {
				return nil, invokeErr
			}

			publisher, err = redisstream.NewPublisher(redisstream.PublisherConfig{
				Client: client.UniversalClient,
			}, messaging.NewZapLogger(logger.Named("redisstream")))
			if err != nil {
				return nil, fmt.Errorf("create redis stream publisher: %w", err)
			}
		} else {
			publisher, err = do.Invoke[*GoChannel](i)
			if err != nil {
				return nil, err
			}
		}

		return messaging.NewPublisherGroup(publisher), nil
	})
}

// ConsumerGroupPackage provides the audit log consumers for both lifecycle topics.
func ConsumerGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		var subscriber message.Subscriber

		if opts.RedisAddr != "" {
			client, err := do.Invoke[*RedisClient](i)
			if err != nil {
				return nil, err
			}

			subscriber, err = redisstream.NewSubscriber(redisstream.SubscriberConfig{
				Client:        client.UniversalClient,
				ConsumerGroup: opts.ConsumerGroup,
			}, messaging.NewZapLogger(logger.Named("redisstream")))
			if err != nil {
				return nil, fmt.Errorf("create redis stream subscriber: %w", err)
			}
		} else {
			ch, err := do.Invoke[*GoChannel](i)
			if err != nil {
				return nil, err
			}

			subscriber = ch
		}

		audit := events.NewAuditLog(logger.Named("audit"))

		var consumerOpts []messaging.ConsumerOption
		if m, err := do.Invoke[*metrics.Metrics](i); err == nil {
			consumerOpts = append(consumerOpts, messaging.WithObserver(m))
		}

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(messaging.NewConsumer(subscriber, events.TopicMappingCreated, audit.MappingCreated, logger, consumerOpts...))
		group.Add(messaging.NewConsumer(subscriber, events.TopicMappingDeactivated, audit.MappingDeactivated, logger, consumerOpts...))

		return group, nil
	})
}

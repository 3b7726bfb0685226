package health

import (
	"context"
	"database/sql"

	"github.com/danielgtaylor/huma/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Checker defines the interface for checking service health.
type Checker interface {
	Ping(ctx context.Context) error
}

// RedisChecker adapts a redis client to the Checker interface.
type RedisChecker struct {
	client redis.UniversalClient
}

// NewRedisChecker creates a new Redis health checker.
func NewRedisChecker(client redis.UniversalClient) *RedisChecker {
	return &RedisChecker{client: client}
}

// Ping checks Redis connectivity.
func (r *RedisChecker) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// PostgresChecker adapts a pgx pool to the Checker interface.
type PostgresChecker struct {
	pool *pgxpool.Pool
}

func NewPostgresChecker(pool *pgxpool.Pool) *PostgresChecker {
	return &PostgresChecker{pool: pool}
}

func (p *PostgresChecker) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// SQLChecker adapts a database/sql handle, used for SQLite.
type SQLChecker struct {
	db *sql.DB
}

func NewSQLChecker(db *sql.DB) *SQLChecker {
	return &SQLChecker{db: db}
}

func (s *SQLChecker) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type namedChecker struct {
	name    string
	checker Checker
}

// Handler handles health check operations.
type Handler struct {
	checks []namedChecker
}

// NewHandler creates a health handler with no dependencies.
func NewHandler() *Handler {
	return &Handler{}
}

// With registers a dependency under name. Checks run in registration order.
func (h *Handler) With(name string, checker Checker) *Handler {
	h.checks = append(h.checks, namedChecker{name: name, checker: checker})

	return h
}

// Response is the response for health check endpoint.
type Response struct {
	Body struct {
		Status string            `enum:"ok,degraded"                      json:"status"`
		Checks map[string]string `doc:"Per-dependency status, healthy or unhealthy" json:"checks"`
	}
}

// Check performs a health check of the application and its dependencies.
func (h *Handler) Check(ctx context.Context, _ *struct{}) (*Response, error) {
	resp := &Response{}
	resp.Body.Status = "ok"
	resp.Body.Checks = make(map[string]string, len(h.checks))

	for _, c := range h.checks {
		if err := c.checker.Ping(ctx); err != nil {
			resp.Body.Checks[c.name] = "unhealthy"
			resp.Body.Status = "degraded"

			continue
		}

		resp.Body.Checks[c.name] = "healthy"
	}

	return resp, nil
}

// RegisterRoutes registers health check routes.
func RegisterRoutes(api huma.API, h *Handler) {
	huma.Get(api, "/health", h.Check)
}

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/shortener-ws/internal/shortener"
)

const (
	pgUniqueViolation = "23505"

	codeConstraint      = "short_mappings_code_key"
	activeURLConstraint = "short_mappings_active_url_key"
)

const mappingColumns = `code, original_url, status, created_at, deactivated_at`

// PostgresStore is a PostgreSQL implementation of shortener.Repository.
// A partial unique index on active urls enforces the single active mapping per url.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed mapping store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (p *PostgresStore) Insert(ctx context.Context, code shortener.Code, originalURL string) (*shortener.Mapping, error) {
	query := `
		INSERT INTO short_mappings (code, original_url, status)
		VALUES ($1, $2, 'active')
		RETURNING ` + mappingColumns

	mapping, err := scanMapping(p.pool.QueryRow(ctx, query, string(code), originalURL))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			switch pgErr.ConstraintName {
			case codeConstraint:
				return nil, shortener.ErrCodeExists
			case activeURLConstraint:
				return nil, shortener.ErrActiveMappingExists
			}
		}

		return nil, err
	}

	return mapping, nil
}

func (p *PostgresStore) FindActiveByURL(ctx context.Context, originalURL string) (*shortener.Mapping, error) {
	query := `
		SELECT ` + mappingColumns + `
		FROM short_mappings
		WHERE original_url = $1 AND status = 'active'
	`

	return scanMapping(p.pool.QueryRow(ctx, query, originalURL))
}

func (p *PostgresStore) FindLatestByURL(ctx context.Context, originalURL string) (*shortener.Mapping, error) {
	query := `
		SELECT ` + mappingColumns + `
		FROM short_mappings
		WHERE original_url = $1
		ORDER BY id DESC
		LIMIT 1
	`

	return scanMapping(p.pool.QueryRow(ctx, query, originalURL))
}

func (p *PostgresStore) FindByCode(ctx context.Context, code shortener.Code) (*shortener.Mapping, error) {
	query := `
		SELECT ` + mappingColumns + `
		FROM short_mappings
		WHERE code = $1
	`

	return scanMapping(p.pool.QueryRow(ctx, query, string(code)))
}

func (p *PostgresStore) FindActiveByCode(ctx context.Context, code shortener.Code) (*shortener.Mapping, error) {
	query := `
		SELECT ` + mappingColumns + `
		FROM short_mappings
		WHERE code = $1 AND status = 'active'
	`

	return scanMapping(p.pool.QueryRow(ctx, query, string(code)))
}

func (p *PostgresStore) Deactivate(ctx context.Context, code shortener.Code) (*shortener.Mapping, bool, error) {
	query := `
		UPDATE short_mappings
		SET status = 'deactivated', deactivated_at = now()
		WHERE code = $1 AND status = 'active'
		RETURNING ` + mappingColumns

	mapping, err := scanMapping(p.pool.QueryRow(ctx, query, string(code)))
	if errors.Is(err, shortener.ErrNotFound) {
		// Either unknown or already deactivated.
		existing, err := p.FindByCode(ctx, code)

		return existing, false, err
	}

	if err != nil {
		return nil, false, err
	}

	return mapping, true, nil
}

// MigratePostgres applies the embedded schema migrations that have not run yet.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	migrations, err := loadMigrations("postgres")
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		if err := applyPostgresMigration(ctx, pool, m); err != nil {
			return err
		}
	}

	return nil
}

func applyPostgresMigration(ctx context.Context, pool *pgxpool.Pool, m migration) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT (version) DO NOTHING`, m.version)
	if err != nil {
		return fmt.Errorf("record migration %s: %w", m.version, err)
	}

	if tag.RowsAffected() == 0 {
		return nil
	}

	if _, err := tx.Exec(ctx, m.sql); err != nil {
		return fmt.Errorf("apply migration %s: %w", m.version, err)
	}

	return tx.Commit(ctx)
}

func scanMapping(row pgx.Row) (*shortener.Mapping, error) {
	var m shortener.Mapping

	err := row.Scan(&m.Code, &m.OriginalURL, &m.Status, &m.CreatedAt, &m.DeactivatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shortener.ErrNotFound
		}

		return nil, err
	}

	return &m, nil
}

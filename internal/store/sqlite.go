package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/serroba/shortener-ws/internal/shortener"
)

// SQLiteStore is a SQLite implementation of shortener.Repository.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database at path, applies migrations and returns the store.
// Use ":memory:" for a private in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// A single connection serializes writers and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}

	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()

		return nil, err
	}

	return s, nil
}

// DB exposes the underlying handle for health checks.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Shutdown closes the database.
func (s *SQLiteStore) Shutdown() error {
	return s.db.Close()
}

func (s *SQLiteStore) Insert(ctx context.Context, code shortener.Code, originalURL string) (*shortener.Mapping, error) {
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO short_mappings (code, original_url, status, created_at)
		VALUES (?, ?, 'active', ?)
	`, string(code), originalURL, now.UnixNano())
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			if strings.Contains(sqliteErr.Error(), "short_mappings.code") {
				return nil, shortener.ErrCodeExists
			}

			return nil, shortener.ErrActiveMappingExists
		}

		return nil, err
	}

	return &shortener.Mapping{
		Code:        code,
		OriginalURL: originalURL,
		Status:      shortener.StatusActive,
		CreatedAt:   time.Unix(0, now.UnixNano()).UTC(),
	}, nil
}

func (s *SQLiteStore) FindActiveByURL(ctx context.Context, originalURL string) (*shortener.Mapping, error) {
	return s.queryOne(ctx, `WHERE original_url = ? AND status = 'active'`, originalURL)
}

func (s *SQLiteStore) FindLatestByURL(ctx context.Context, originalURL string) (*shortener.Mapping, error) {
	return s.queryOne(ctx, `WHERE original_url = ? ORDER BY id DESC LIMIT 1`, originalURL)
}

func (s *SQLiteStore) FindByCode(ctx context.Context, code shortener.Code) (*shortener.Mapping, error) {
	return s.queryOne(ctx, `WHERE code = ?`, string(code))
}

func (s *SQLiteStore) FindActiveByCode(ctx context.Context, code shortener.Code) (*shortener.Mapping, error) {
	return s.queryOne(ctx, `WHERE code = ? AND status = 'active'`, string(code))
}

func (s *SQLiteStore) Deactivate(ctx context.Context, code shortener.Code) (*shortener.Mapping, bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE short_mappings
		SET status = 'deactivated', deactivated_at = ?
		WHERE code = ? AND status = 'active'
	`, time.Now().UTC().UnixNano(), string(code))
	if err != nil {
		return nil, false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	mapping, err := s.FindByCode(ctx, code)
	if err != nil {
		return nil, false, err
	}

	return mapping, affected == 1, nil
}

func (s *SQLiteStore) queryOne(ctx context.Context, where string, args ...any) (*shortener.Mapping, error) {
	query := `SELECT code, original_url, status, created_at, deactivated_at FROM short_mappings ` + where

	var (
		m             shortener.Mapping
		createdAt     int64
		deactivatedAt sql.NullInt64
	)

	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&m.Code, &m.OriginalURL, &m.Status, &createdAt, &deactivatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shortener.ErrNotFound
		}

		return nil, err
	}

	m.CreatedAt = time.Unix(0, createdAt).UTC()

	if deactivatedAt.Valid {
		at := time.Unix(0, deactivatedAt.Int64).UTC()
		m.DeactivatedAt = &at
	}

	return &m, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	migrations, err := loadMigrations("sqlite")
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var exists int

		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, m.version).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", m.version, err)
		}

		if exists > 0 {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("apply migration %s: %w", m.version, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
			m.version, time.Now().Unix()); err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("record migration %s: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}

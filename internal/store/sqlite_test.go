package store_test

import (
	"path/filepath"
	"testing"

	"github.com/serroba/shortener-ws/internal/shortener"
	"github.com/serroba/shortener-ws/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "shortener.db"))
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Shutdown() })

	return s
}

func TestSQLiteStore(t *testing.T) {
	testRepositoryContract(t, func(t *testing.T) shortener.Repository {
		return newSQLiteStore(t)
	})
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shortener.db")

	first, err := store.NewSQLiteStore(path)
	require.NoError(t, err)

	_, err = first.Insert(t.Context(), "persisted", "https://example.com/persisted")
	require.NoError(t, err)
	require.NoError(t, first.Shutdown())

	second, err := store.NewSQLiteStore(path)
	require.NoError(t, err)

	defer func() { _ = second.Shutdown() }()

	got, err := second.FindActiveByCode(t.Context(), "persisted")

	require.NoError(t, err)
	assert.Equal(t, "https://example.com/persisted", got.OriginalURL)
}

package store_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/serroba/shortener-ws/internal/shortener"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniqueURL() string {
	return "https://example.com/" + uuid.NewString()
}

func uniqueCode() shortener.Code {
	return shortener.Code(uuid.NewString()[:13])
}

// testRepositoryContract runs the behavior every mapping store must share.
func testRepositoryContract(t *testing.T, newRepo func(t *testing.T) shortener.Repository) {
	t.Helper()

	ctx := context.Background()

	t.Run("insert stores an active mapping", func(t *testing.T) {
		repo := newRepo(t)
		code, url := uniqueCode(), uniqueURL()

		inserted, err := repo.Insert(ctx, code, url)

		require.NoError(t, err)
		assert.Equal(t, code, inserted.Code)
		assert.Equal(t, url, inserted.OriginalURL)
		assert.Equal(t, shortener.StatusActive, inserted.Status)
		assert.False(t, inserted.CreatedAt.IsZero())
		assert.Nil(t, inserted.DeactivatedAt)

		byCode, err := repo.FindByCode(ctx, code)
		require.NoError(t, err)
		assert.Equal(t, url, byCode.OriginalURL)

		activeByCode, err := repo.FindActiveByCode(ctx, code)
		require.NoError(t, err)
		assert.Equal(t, url, activeByCode.OriginalURL)

		activeByURL, err := repo.FindActiveByURL(ctx, url)
		require.NoError(t, err)
		assert.Equal(t, code, activeByURL.Code)

		latest, err := repo.FindLatestByURL(ctx, url)
		require.NoError(t, err)
		assert.Equal(t, code, latest.Code)
	})

	t.Run("insert rejects a taken code", func(t *testing.T) {
		repo := newRepo(t)
		code := uniqueCode()

		_, err := repo.Insert(ctx, code, uniqueURL())
		require.NoError(t, err)

		_, err = repo.Insert(ctx, code, uniqueURL())

		assert.ErrorIs(t, err, shortener.ErrCodeExists)
	})

	t.Run("insert rejects a second active mapping for the url", func(t *testing.T) {
		repo := newRepo(t)
		url := uniqueURL()

		_, err := repo.Insert(ctx, uniqueCode(), url)
		require.NoError(t, err)

		_, err = repo.Insert(ctx, uniqueCode(), url)

		assert.ErrorIs(t, err, shortener.ErrActiveMappingExists)
	})

	t.Run("lookups of unknown keys return ErrNotFound", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.FindByCode(ctx, uniqueCode())
		assert.ErrorIs(t, err, shortener.ErrNotFound)

		_, err = repo.FindActiveByCode(ctx, uniqueCode())
		assert.ErrorIs(t, err, shortener.ErrNotFound)

		_, err = repo.FindActiveByURL(ctx, uniqueURL())
		assert.ErrorIs(t, err, shortener.ErrNotFound)

		_, err = repo.FindLatestByURL(ctx, uniqueURL())
		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})

	t.Run("deactivate hides the mapping from active lookups", func(t *testing.T) {
		repo := newRepo(t)
		code, url := uniqueCode(), uniqueURL()

		_, err := repo.Insert(ctx, code, url)
		require.NoError(t, err)

		deactivated, changed, err := repo.Deactivate(ctx, code)

		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, shortener.StatusDeactivated, deactivated.Status)
		require.NotNil(t, deactivated.DeactivatedAt)

		_, err = repo.FindActiveByCode(ctx, code)
		assert.ErrorIs(t, err, shortener.ErrNotFound)

		_, err = repo.FindActiveByURL(ctx, url)
		assert.ErrorIs(t, err, shortener.ErrNotFound)

		byCode, err := repo.FindByCode(ctx, code)
		require.NoError(t, err)
		assert.Equal(t, shortener.StatusDeactivated, byCode.Status)

		latest, err := repo.FindLatestByURL(ctx, url)
		require.NoError(t, err)
		assert.Equal(t, code, latest.Code)
		assert.Equal(t, shortener.StatusDeactivated, latest.Status)
	})

	t.Run("deactivate is idempotent", func(t *testing.T) {
		repo := newRepo(t)
		code := uniqueCode()

		_, err := repo.Insert(ctx, code, uniqueURL())
		require.NoError(t, err)

		first, changed, err := repo.Deactivate(ctx, code)
		require.NoError(t, err)
		require.True(t, changed)

		second, changed, err := repo.Deactivate(ctx, code)

		require.NoError(t, err)
		assert.False(t, changed, "second call changes nothing")
		assert.Equal(t, shortener.StatusDeactivated, second.Status)
		require.NotNil(t, second.DeactivatedAt)
		assert.True(t, first.DeactivatedAt.Equal(*second.DeactivatedAt))
	})

	t.Run("deactivate unknown code returns ErrNotFound", func(t *testing.T) {
		repo := newRepo(t)

		_, changed, err := repo.Deactivate(ctx, uniqueCode())

		assert.False(t, changed)
		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})

	t.Run("url can be mapped again after deactivation", func(t *testing.T) {
		repo := newRepo(t)
		oldCode, newCode, url := uniqueCode(), uniqueCode(), uniqueURL()

		_, err := repo.Insert(ctx, oldCode, url)
		require.NoError(t, err)

		_, _, err = repo.Deactivate(ctx, oldCode)
		require.NoError(t, err)

		_, err = repo.Insert(ctx, newCode, url)
		require.NoError(t, err)

		active, err := repo.FindActiveByURL(ctx, url)
		require.NoError(t, err)
		assert.Equal(t, newCode, active.Code)

		latest, err := repo.FindLatestByURL(ctx, url)
		require.NoError(t, err)
		assert.Equal(t, newCode, latest.Code)

		old, err := repo.FindByCode(ctx, oldCode)
		require.NoError(t, err)
		assert.Equal(t, shortener.StatusDeactivated, old.Status)
	})

	t.Run("concurrent inserts for one url leave a single active mapping", func(t *testing.T) {
		repo := newRepo(t)
		url := uniqueURL()

		const workers = 16

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded []shortener.Code
			conflicts int
		)

		for range workers {
			wg.Add(1)

			go func() {
				defer wg.Done()

				mapping, err := repo.Insert(ctx, uniqueCode(), url)

				mu.Lock()
				defer mu.Unlock()

				if err == nil {
					succeeded = append(succeeded, mapping.Code)

					return
				}

				if assert.ErrorIs(t, err, shortener.ErrActiveMappingExists) {
					conflicts++
				}
			}()
		}

		wg.Wait()

		require.Len(t, succeeded, 1)
		assert.Equal(t, workers-1, conflicts)

		active, err := repo.FindActiveByURL(ctx, url)
		require.NoError(t, err)
		assert.Equal(t, succeeded[0], active.Code)
	})

	t.Run("concurrent deactivations change the mapping once", func(t *testing.T) {
		repo := newRepo(t)
		code := uniqueCode()

		_, err := repo.Insert(ctx, code, uniqueURL())
		require.NoError(t, err)

		const workers = 16

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			changes int
		)

		for range workers {
			wg.Add(1)

			go func() {
				defer wg.Done()

				mapping, changed, err := repo.Deactivate(ctx, code)
				if !assert.NoError(t, err) {
					return
				}

				assert.Equal(t, shortener.StatusDeactivated, mapping.Status)

				if changed {
					mu.Lock()
					changes++
					mu.Unlock()
				}
			}()
		}

		wg.Wait()

		assert.Equal(t, 1, changes)
	})
}

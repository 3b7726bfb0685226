package store

import (
	"context"
	"sync"
	"time"

	"github.com/serroba/shortener-ws/internal/shortener"
)

// MemoryStore is an in-memory implementation of shortener.Repository.
type MemoryStore struct {
	mu       sync.RWMutex
	mappings map[shortener.Code]*shortener.Mapping
	active   map[string]shortener.Code // url -> active code
	latest   map[string]shortener.Code // url -> most recent code
}

// NewMemoryStore creates a new in-memory mapping store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mappings: make(map[shortener.Code]*shortener.Mapping),
		active:   make(map[string]shortener.Code),
		latest:   make(map[string]shortener.Code),
	}
}

func (m *MemoryStore) Insert(_ context.Context, code shortener.Code, originalURL string) (*shortener.Mapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.mappings[code]; ok {
		return nil, shortener.ErrCodeExists
	}

	if _, ok := m.active[originalURL]; ok {
		return nil, shortener.ErrActiveMappingExists
	}

	mapping := &shortener.Mapping{
		Code:        code,
		OriginalURL: originalURL,
		Status:      shortener.StatusActive,
		CreatedAt:   time.Now().UTC(),
	}

	m.mappings[code] = mapping
	m.active[originalURL] = code
	m.latest[originalURL] = code

	return clone(mapping), nil
}

func (m *MemoryStore) FindActiveByURL(_ context.Context, originalURL string) (*shortener.Mapping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.lookup(m.active, originalURL)
}

func (m *MemoryStore) FindLatestByURL(_ context.Context, originalURL string) (*shortener.Mapping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.lookup(m.latest, originalURL)
}

func (m *MemoryStore) FindByCode(_ context.Context, code shortener.Code) (*shortener.Mapping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mapping, ok := m.mappings[code]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	return clone(mapping), nil
}

func (m *MemoryStore) FindActiveByCode(_ context.Context, code shortener.Code) (*shortener.Mapping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mapping, ok := m.mappings[code]
	if !ok || !mapping.IsActive() {
		return nil, shortener.ErrNotFound
	}

	return clone(mapping), nil
}

func (m *MemoryStore) Deactivate(_ context.Context, code shortener.Code) (*shortener.Mapping, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mapping, ok := m.mappings[code]
	if !ok {
		return nil, false, shortener.ErrNotFound
	}

	if !mapping.IsActive() {
		return clone(mapping), false, nil
	}

	now := time.Now().UTC()
	mapping.Status = shortener.StatusDeactivated
	mapping.DeactivatedAt = &now

	if m.active[mapping.OriginalURL] == code {
		delete(m.active, mapping.OriginalURL)
	}

	return clone(mapping), true, nil
}

// lookup must be called with the lock held.
func (m *MemoryStore) lookup(index map[string]shortener.Code, originalURL string) (*shortener.Mapping, error) {
	code, ok := index[originalURL]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	return clone(m.mappings[code]), nil
}

func clone(mapping *shortener.Mapping) *shortener.Mapping {
	c := *mapping
	if mapping.DeactivatedAt != nil {
		at := *mapping.DeactivatedAt
		c.DeactivatedAt = &at
	}

	return &c
}

package shortener_test

import (
	"context"
	"errors"

	"github.com/serroba/shortener-ws/internal/shortener"
)

var errMock = errors.New("mock error")

// mockRepository delegates to inner unless an error is configured for the operation.
type mockRepository struct {
	inner         shortener.Repository
	insertErr     error
	findURLErr    error
	latestErr     error
	findCodeErr   error
	deactivateErr error
	insertCalls   int
	// beforeDeactivate runs ahead of the delegated Deactivate.
	beforeDeactivate func(code shortener.Code)
}

func (m *mockRepository) Insert(ctx context.Context, code shortener.Code, url string) (*shortener.Mapping, error) {
	m.insertCalls++

	if m.insertErr != nil {
		return nil, m.insertErr
	}

	return m.inner.Insert(ctx, code, url)
}

func (m *mockRepository) FindActiveByURL(ctx context.Context, url string) (*shortener.Mapping, error) {
	if m.findURLErr != nil {
		return nil, m.findURLErr
	}

	return m.inner.FindActiveByURL(ctx, url)
}

func (m *mockRepository) FindLatestByURL(ctx context.Context, url string) (*shortener.Mapping, error) {
	if m.latestErr != nil {
		return nil, m.latestErr
	}

	return m.inner.FindLatestByURL(ctx, url)
}

func (m *mockRepository) FindByCode(ctx context.Context, code shortener.Code) (*shortener.Mapping, error) {
	if m.findCodeErr != nil {
		return nil, m.findCodeErr
	}

	return m.inner.FindByCode(ctx, code)
}

func (m *mockRepository) FindActiveByCode(ctx context.Context, code shortener.Code) (*shortener.Mapping, error) {
	if m.findCodeErr != nil {
		return nil, m.findCodeErr
	}

	return m.inner.FindActiveByCode(ctx, code)
}

func (m *mockRepository) Deactivate(ctx context.Context, code shortener.Code) (*shortener.Mapping, bool, error) {
	if m.deactivateErr != nil {
		return nil, false, m.deactivateErr
	}

	if m.beforeDeactivate != nil {
		m.beforeDeactivate(code)
	}

	return m.inner.Deactivate(ctx, code)
}

// sequenceGenerator returns the given codes in order, then repeats the last one.
type sequenceGenerator struct {
	codes []string
	calls int
}

func (g *sequenceGenerator) next() string {
	i := min(g.calls, len(g.codes)-1)
	g.calls++

	return g.codes[i]
}

package shortener

import (
	"context"
	"errors"
	"net/url"
	"path"
	"strings"

	"go.uber.org/zap"
)

// DefaultMaxAttempts bounds how many generated codes Add tries before giving up.
const DefaultMaxAttempts = 5

// Service implements the shortener operations on top of a Repository and a CodeGenerator.
type Service struct {
	store       Repository
	generate    CodeGenerator
	maxAttempts int
	logger      *zap.Logger
}

// NewService creates a shortener service. A non-positive maxAttempts selects DefaultMaxAttempts.
func NewService(store Repository, generate CodeGenerator, maxAttempts int, logger *zap.Logger) *Service {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	return &Service{
		store:       store,
		generate:    generate,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Add returns the active mapping for rawURL, creating one with a fresh code if none exists.
func (s *Service) Add(ctx context.Context, rawURL string) (*Mapping, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		existing, err := s.store.FindActiveByURL(ctx, rawURL)
		if err == nil {
			return existing, nil
		}

		if !errors.Is(err, ErrNotFound) {
			return nil, internal("failed to look up url", err)
		}

		code := Code(s.generate())

		mapping, err := s.store.Insert(ctx, code, rawURL)

		switch {
		case err == nil:
			return mapping, nil
		case errors.Is(err, ErrCodeExists):
			s.logger.Debug("generated code collided",
				zap.String("code", string(code)),
				zap.Int("attempt", attempt),
			)
		case errors.Is(err, ErrActiveMappingExists):
			// A concurrent Add won; the next lookup returns its mapping.
			s.logger.Debug("concurrent add for url", zap.Int("attempt", attempt))
		default:
			return nil, internal("failed to store mapping", err)
		}
	}

	return nil, internal("failed to allocate a unique code", ErrGeneratorExhausted)
}

// Info returns the most recent mapping for rawURL, active or not.
func (s *Service) Info(ctx context.Context, rawURL string) (*Mapping, error) {
	mapping, err := s.store.FindLatestByURL(ctx, rawURL)
	if err != nil {
		return nil, s.lookupError(err, "no mapping for url", "failed to look up url")
	}

	return mapping, nil
}

// Deactivate deactivates the active mapping for rawURL. Only one of several
// concurrent callers succeeds; the others get NOT_FOUND.
func (s *Service) Deactivate(ctx context.Context, rawURL string) (*Mapping, error) {
	active, err := s.store.FindActiveByURL(ctx, rawURL)
	if err != nil {
		return nil, s.lookupError(err, "no active mapping for url", "failed to look up url")
	}

	mapping, changed, err := s.store.Deactivate(ctx, active.Code)
	if err != nil {
		return nil, s.lookupError(err, "no active mapping for url", "failed to deactivate mapping")
	}

	if !changed {
		return nil, notFound("no active mapping for url")
	}

	return mapping, nil
}

// Query resolves a short code, or a short URL ending in one, to the original URL.
// Deactivated codes do not resolve.
func (s *Service) Query(ctx context.Context, codeOrURL string) (string, error) {
	code := ExtractCode(codeOrURL)
	if code == "" {
		return "", notFound("short code not found")
	}

	mapping, err := s.store.FindActiveByCode(ctx, code)
	if err != nil {
		return "", s.lookupError(err, "short code not found", "failed to resolve code")
	}

	return mapping.OriginalURL, nil
}

func (s *Service) lookupError(err error, notFoundMsg, internalMsg string) error {
	if errors.Is(err, ErrNotFound) {
		return notFound(notFoundMsg)
	}

	return internal(internalMsg, err)
}

// ExtractCode returns the code from a bare code, a "/code" path or a full short URL.
func ExtractCode(codeOrURL string) Code {
	raw := strings.TrimSpace(codeOrURL)

	if strings.Contains(raw, "://") {
		parsed, err := url.Parse(raw)
		if err != nil {
			return ""
		}

		raw = parsed.Path
	}

	raw = strings.Trim(raw, "/")
	if raw == "" {
		return ""
	}

	return Code(path.Base(raw))
}

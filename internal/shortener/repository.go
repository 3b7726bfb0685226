package shortener

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no mapping matches the lookup.
	ErrNotFound = errors.New("mapping not found")
	// ErrCodeExists is returned by Insert when the code is already taken by any mapping.
	ErrCodeExists = errors.New("code already exists")
	// ErrActiveMappingExists is returned by Insert when the URL already has an active mapping.
	ErrActiveMappingExists = errors.New("url already has an active mapping")
)

// Repository is the mapping store. Implementations must make Insert and Deactivate atomic:
// a code is stored at most once, and a URL has at most one active mapping at any time.
type Repository interface {
	// Insert stores a new active mapping and returns it with its creation time set.
	Insert(ctx context.Context, code Code, originalURL string) (*Mapping, error)

	// FindActiveByURL returns the active mapping for the URL.
	FindActiveByURL(ctx context.Context, originalURL string) (*Mapping, error)

	// FindLatestByURL returns the most recently created mapping for the URL regardless of status.
	FindLatestByURL(ctx context.Context, originalURL string) (*Mapping, error)

	// FindByCode returns the mapping for the code regardless of status.
	FindByCode(ctx context.Context, code Code) (*Mapping, error)

	// FindActiveByCode returns the mapping for the code only while it is active.
	FindActiveByCode(ctx context.Context, code Code) (*Mapping, error)

	// Deactivate marks the mapping as deactivated and reports whether this call changed it.
	// Deactivating an already deactivated mapping is a no-op that returns the stored
	// mapping with changed set to false.
	Deactivate(ctx context.Context, code Code) (mapping *Mapping, changed bool, err error)
}

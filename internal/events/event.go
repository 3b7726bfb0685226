package events

import (
	"time"

	"github.com/serroba/shortener-ws/internal/shortener"
)

const (
	TopicMappingCreated     = "mapping.created"
	TopicMappingDeactivated = "mapping.deactivated"
)

// MappingCreated is emitted when a new short code is stored.
type MappingCreated struct {
	Code        string    `json:"code"`
	OriginalURL string    `json:"originalUrl"`
	CreatedAt   time.Time `json:"createdAt"`
}

// MappingDeactivated is emitted when a mapping stops resolving.
type MappingDeactivated struct {
	Code          string    `json:"code"`
	OriginalURL   string    `json:"originalUrl"`
	DeactivatedAt time.Time `json:"deactivatedAt"`
}

// NewMappingCreated builds the event for a freshly inserted mapping.
func NewMappingCreated(m *shortener.Mapping) *MappingCreated {
	return &MappingCreated{
		Code:        string(m.Code),
		OriginalURL: m.OriginalURL,
		CreatedAt:   m.CreatedAt,
	}
}

// NewMappingDeactivated builds the event for a deactivated mapping.
func NewMappingDeactivated(m *shortener.Mapping) *MappingDeactivated {
	e := &MappingDeactivated{
		Code:        string(m.Code),
		OriginalURL: m.OriginalURL,
	}

	if m.DeactivatedAt != nil {
		e.DeactivatedAt = *m.DeactivatedAt
	}

	return e
}

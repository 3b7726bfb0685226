package shortener

import "time"

// Code is the short identifier assigned to a mapping.
type Code string

// Status is the lifecycle state of a mapping.
type Status string

const (
	StatusActive      Status = "active"
	StatusDeactivated Status = "deactivated"
)

// Mapping associates a short code with the URL it resolves to.
// Mappings are never deleted; deactivation is a status change and codes are never reused.
type Mapping struct {
	Code          Code
	OriginalURL   string
	Status        Status
	CreatedAt     time.Time
	DeactivatedAt *time.Time
}

// IsActive reports whether the code currently resolves to its URL.
func (m *Mapping) IsActive() bool {
	return m.Status == StatusActive
}

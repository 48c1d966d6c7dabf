package storage

import "errors"

// Sentinel errors for storage operations.
var (
	// ErrNotFound is returned when a session does not exist or belongs to
	// another tenant.
	ErrNotFound = errors.New("session not found")

	// ErrConflict is returned when a session with the given ID already exists.
	ErrConflict = errors.New("session already exists")
)

// Page size bounds for session listing.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ClampLimit applies the default and maximum page size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return min(limit, MaxListLimit)
}

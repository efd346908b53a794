package domain

import "github.com/google/uuid"

// NewID generates a UUIDv7 string for store-assigned entity ids.
// UUIDv7 sorts by creation time, which keeps SQLite index pages warm.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

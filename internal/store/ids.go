package store

import "github.com/google/uuid"

// IDGenerator generates unique run identifiers.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-ordered UUIDv7 run identifiers.
//
// UUIDv7 embeds a millisecond timestamp, so identifiers of later runs
// sort after earlier ones.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

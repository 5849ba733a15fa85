// Package id generates identifiers for documents, catalog entries and ledger rows.
package id

import (
	"github.com/google/uuid"
)

// ID identifies every persisted entity.
type ID = uuid.UUID

// Nil is the zero ID.
var Nil = uuid.Nil

// New returns a time-ordered UUIDv7 so that ledger rows sort by creation.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v
}

// Parse converts a string to ID.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse panics on malformed input. Tests and constants only.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// IsNil reports whether v is the zero UUID.
func IsNil(v ID) bool {
	return v == uuid.Nil
}

// Ptr returns nil for the zero UUID, otherwise a pointer to a copy of v.
func Ptr(v ID) *ID {
	if IsNil(v) {
		return nil
	}
	return &v
}

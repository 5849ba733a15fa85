package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaintenanceKey checks the X-Maintenance-Key header of admin endpoints
// against a bcrypt hash from configuration.
type MaintenanceKey struct {
	hash []byte
}

// NewMaintenanceKey accepts a bcrypt hash. An empty hash disables the check.
func NewMaintenanceKey(hash string) (*MaintenanceKey, error) {
	if hash == "" {
		return &MaintenanceKey{}, nil
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("maintenance key hash: %w", err)
	}
	return &MaintenanceKey{hash: []byte(hash)}, nil
}

// HashMaintenanceKey produces the value to put in configuration.
func HashMaintenanceKey(plain string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash maintenance key: %w", err)
	}
	return string(h), nil
}

// Enabled reports whether a key is configured.
func (k *MaintenanceKey) Enabled() bool { return k != nil && len(k.hash) > 0 }

// Verify reports whether plain matches the configured key.
func (k *MaintenanceKey) Verify(plain string) bool {
	if !k.Enabled() {
		return true
	}
	return bcrypt.CompareHashAndPassword(k.hash, []byte(plain)) == nil
}

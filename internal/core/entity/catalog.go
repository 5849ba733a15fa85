package entity

import (
	"context"
	"strings"

	"konditer/internal/core/apperror"
)

// BaseCatalog holds the fields every reference-book entry carries.
type BaseCatalog struct {
	BaseEntity

	Code     string `db:"code" json:"code"`
	Name     string `db:"name" json:"name"`
	IsActive bool   `db:"is_active" json:"isActive"`
}

// NewBaseCatalog creates an active catalog entry.
func NewBaseCatalog(code, name string) BaseCatalog {
	return BaseCatalog{
		BaseEntity: NewBaseEntity(),
		Code:       strings.TrimSpace(code),
		Name:       strings.TrimSpace(name),
		IsActive:   true,
	}
}

// Validate implements Validatable.
func (c *BaseCatalog) Validate(ctx context.Context) error {
	if strings.TrimSpace(c.Name) == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	return nil
}

func (c *BaseCatalog) GetCode() string { return c.Code }
func (c *BaseCatalog) GetName() string { return c.Name }

// Active reports whether the entry may be referenced by new documents.
func (c *BaseCatalog) Active() bool { return c.IsActive }

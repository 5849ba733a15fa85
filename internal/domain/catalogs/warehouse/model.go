// Package warehouse provides the Warehouse catalog.
package warehouse

import (
	"context"

	"konditer/internal/core/entity"
	"konditer/internal/core/id"
)

// Warehouse is a storage location. Departments group warehouses.
type Warehouse struct {
	entity.BaseCatalog

	// DepartmentID is the optional parent grouping
	DepartmentID *id.ID `db:"department_id" json:"departmentId,omitempty"`
}

// NewWarehouse creates an active warehouse.
func NewWarehouse(code, name string) *Warehouse {
	return &Warehouse{BaseCatalog: entity.NewBaseCatalog(code, name)}
}

// Validate implements entity.Validatable.
func (w *Warehouse) Validate(ctx context.Context) error {
	return w.BaseCatalog.Validate(ctx)
}

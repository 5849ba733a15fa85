package warehouse

import (
	"context"

	"konditer/internal/core/id"
	"konditer/internal/domain"
)

// Repository defines the interface for Warehouse persistence.
type Repository interface {
	domain.CatalogRepository[*Warehouse]

	// GetMany returns the warehouses found among ids, keyed by id.
	GetMany(ctx context.Context, ids []id.ID) (map[id.ID]*Warehouse, error)
}

package item

import (
	"context"

	"konditer/internal/core/id"
	"konditer/internal/domain"
)

// Repository defines the interface for Item persistence.
type Repository interface {
	domain.CatalogRepository[*Item]

	// GetMany returns the items found among ids, keyed by id. Missing ids are absent.
	GetMany(ctx context.Context, ids []id.ID) (map[id.ID]*Item, error)
}

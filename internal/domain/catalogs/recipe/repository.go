package recipe

import (
	"context"

	"konditer/internal/core/id"
	"konditer/internal/domain"
)

// Repository persists recipes together with their items and stages.
type Repository interface {
	domain.CatalogRepository[*Recipe]

	// GetActiveByOutputItem returns the active recipe producing itemID
	// (the oldest one if several are active), or NotFound.
	GetActiveByOutputItem(ctx context.Context, itemID id.ID) (*Recipe, error)

	// ListActive returns every active recipe with items loaded.
	ListActive(ctx context.Context) ([]*Recipe, error)
}

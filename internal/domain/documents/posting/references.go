package posting

import (
	"context"
	"fmt"

	"konditer/internal/core/apperror"
	"konditer/internal/core/id"
	"konditer/internal/domain/catalogs/item"
	"konditer/internal/domain/catalogs/warehouse"
)

// ReferenceChecker fails with a ReferentialError when a reference points to a
// missing or inactive catalog entry.
type ReferenceChecker interface {
	CheckReferences(ctx context.Context, refs []Reference) error
}

// CatalogReferences checks item and warehouse references against the catalogs.
type CatalogReferences struct {
	items      item.Repository
	warehouses warehouse.Repository
}

// NewCatalogReferences creates a catalog-backed reference checker.
func NewCatalogReferences(items item.Repository, warehouses warehouse.Repository) *CatalogReferences {
	return &CatalogReferences{items: items, warehouses: warehouses}
}

// CheckReferences implements ReferenceChecker.
func (c *CatalogReferences) CheckReferences(ctx context.Context, refs []Reference) error {
	var itemIDs, warehouseIDs []id.ID
	for _, r := range refs {
		switch r.Entity {
		case EntityItem:
			itemIDs = append(itemIDs, r.ID)
		case EntityWarehouse:
			warehouseIDs = append(warehouseIDs, r.ID)
		}
	}

	items, err := c.items.GetMany(ctx, itemIDs)
	if err != nil {
		return fmt.Errorf("load items: %w", err)
	}
	warehouses, err := c.warehouses.GetMany(ctx, warehouseIDs)
	if err != nil {
		return fmt.Errorf("load warehouses: %w", err)
	}

	for _, r := range refs {
		active := true
		switch r.Entity {
		case EntityItem:
			it, ok := items[r.ID]
			active = ok && it.IsActive
		case EntityWarehouse:
			wh, ok := warehouses[r.ID]
			active = ok && wh.IsActive
		}
		if !active {
			appErr := apperror.NewReferential(r.Entity, r.ID.String(), "is missing or inactive")
			if r.Line >= 0 {
				appErr = appErr.WithLine(r.Line)
			}
			return appErr
		}
	}
	return nil
}

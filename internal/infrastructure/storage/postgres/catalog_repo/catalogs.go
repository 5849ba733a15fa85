package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"konditer/internal/core/apperror"
	"konditer/internal/core/id"
	"konditer/internal/domain/catalogs/item"
	"konditer/internal/domain/catalogs/recipe"
	"konditer/internal/domain/catalogs/warehouse"
	"konditer/internal/infrastructure/storage/postgres"
)

const (
	itemsTable        = "cat_items"
	warehousesTable   = "cat_warehouses"
	recipesTable      = "cat_recipes"
	recipeItemsTable  = "cat_recipe_items"
	recipeStagesTable = "cat_recipe_stages"
)

// ItemRepo persists items.
type ItemRepo struct {
	*BaseCatalogRepo[*item.Item]
}

func NewItemRepo(txm *postgres.TxManager) *ItemRepo {
	return &ItemRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(txm, itemsTable, "item",
			postgres.ExtractDBColumns[item.Item](),
			func() *item.Item { return &item.Item{} }),
	}
}

// WarehouseRepo persists warehouses.
type WarehouseRepo struct {
	*BaseCatalogRepo[*warehouse.Warehouse]
}

func NewWarehouseRepo(txm *postgres.TxManager) *WarehouseRepo {
	return &WarehouseRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(txm, warehousesTable, "warehouse",
			postgres.ExtractDBColumns[warehouse.Warehouse](),
			func() *warehouse.Warehouse { return &warehouse.Warehouse{} }),
	}
}

// RecipeRepo persists recipes with their input items and stage names.
type RecipeRepo struct {
	*BaseCatalogRepo[*recipe.Recipe]
}

func NewRecipeRepo(txm *postgres.TxManager) *RecipeRepo {
	return &RecipeRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(txm, recipesTable, "recipe",
			postgres.ExtractDBColumns[recipe.Recipe](),
			func() *recipe.Recipe { return &recipe.Recipe{} },
			postgres.Children(recipeItemsTable, "recipe_id", "line_no",
				func(r *recipe.Recipe) []recipe.Item { return r.Items },
				func(r *recipe.Recipe, items []recipe.Item) { r.Items = items }),
			postgres.Children(recipeStagesTable, "recipe_id", "stage_number",
				func(r *recipe.Recipe) []recipe.Stage { return r.Stages },
				func(r *recipe.Recipe, stages []recipe.Stage) { r.Stages = stages }),
		),
	}
}

// GetActiveByOutputItem returns the active recipe producing itemID.
func (r *RecipeRepo) GetActiveByOutputItem(ctx context.Context, itemID id.ID) (*recipe.Recipe, error) {
	rec, err := r.FindOne(ctx, r.baseSelect().
		Where(squirrel.Eq{"output_item_id": itemID, "is_active": true}).
		OrderBy("code").
		Limit(1))
	if apperror.IsNotFound(err) {
		return nil, apperror.NewNotFound("recipe", itemID.String()).WithDetail("output_item_id", itemID.String())
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListActive returns every active recipe.
func (r *RecipeRepo) ListActive(ctx context.Context) ([]*recipe.Recipe, error) {
	return r.FindAll(ctx, r.baseSelect().
		Where(squirrel.Eq{"is_active": true}).
		OrderBy("code"))
}

var (
	_ item.Repository      = (*ItemRepo)(nil)
	_ warehouse.Repository = (*WarehouseRepo)(nil)
	_ recipe.Repository    = (*RecipeRepo)(nil)
)

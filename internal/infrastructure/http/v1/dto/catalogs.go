package dto

import (
	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/core/types"
	"konditer/internal/domain/catalogs/item"
	"konditer/internal/domain/catalogs/recipe"
	"konditer/internal/domain/catalogs/warehouse"
)

// CatalogHeader holds the fields every catalog request sets.
type CatalogHeader struct {
	Code     string `json:"code" binding:"required,max=50"`
	Name     string `json:"name" binding:"required,max=200"`
	IsActive *bool  `json:"isActive,omitempty"`
	Version  int    `json:"version,omitempty" binding:"min=0"`
}

func (h CatalogHeader) apply(c *entity.BaseCatalog) {
	c.Code, c.Name = h.Code, h.Name
	if h.IsActive != nil {
		c.IsActive = *h.IsActive
	}
	if h.Version > 0 {
		c.Version = h.Version
	}
}

// --- Item ---

// ItemRequest creates or replaces an item.
type ItemRequest struct {
	CatalogHeader
	Kind          item.Kind      `json:"kind" binding:"required,oneof=raw_material semi_finished finished"`
	Unit          string         `json:"unit" binding:"required"`
	PurchasePrice types.Money    `json:"purchasePrice"`
	MinStock      types.Quantity `json:"minStock"`
}

// NewItem builds an item.
func (r ItemRequest) NewItem() *item.Item {
	it := item.NewItem(r.Code, r.Name, r.Kind, r.Unit)
	r.ApplyTo(it)
	return it
}

// ApplyTo overwrites it with the request.
func (r ItemRequest) ApplyTo(it *item.Item) {
	r.CatalogHeader.apply(&it.BaseCatalog)
	it.Kind = r.Kind
	it.Unit = r.Unit
	it.PurchasePrice = r.PurchasePrice
	it.MinStock = r.MinStock
}

// --- Warehouse ---

// WarehouseRequest creates or replaces a warehouse.
type WarehouseRequest struct {
	CatalogHeader
	DepartmentID *id.ID `json:"departmentId,omitempty"`
}

// NewWarehouse builds a warehouse.
func (r WarehouseRequest) NewWarehouse() *warehouse.Warehouse {
	w := warehouse.NewWarehouse(r.Code, r.Name)
	r.ApplyTo(w)
	return w
}

// ApplyTo overwrites w with the request.
func (r WarehouseRequest) ApplyTo(w *warehouse.Warehouse) {
	r.CatalogHeader.apply(&w.BaseCatalog)
	w.DepartmentID = r.DepartmentID
}

// --- Recipe ---

// RecipeRequest creates or replaces a recipe.
type RecipeRequest struct {
	CatalogHeader
	OutputItemID   id.ID               `json:"outputItemId" binding:"required"`
	OutputQuantity types.Quantity      `json:"outputQuantity"`
	Items          []RecipeItemRequest `json:"items" binding:"required,min=1,dive"`
	Stages         []string            `json:"stages,omitempty"`
}

// RecipeItemRequest is one input per batch.
type RecipeItemRequest struct {
	ItemID   id.ID          `json:"itemId" binding:"required"`
	Quantity types.Quantity `json:"quantity"`
}

// NewRecipe builds a recipe.
func (r RecipeRequest) NewRecipe() *recipe.Recipe {
	rc := recipe.NewRecipe(r.Code, r.Name, r.OutputItemID, r.OutputQuantity)
	r.ApplyTo(rc)
	return rc
}

// ApplyTo overwrites rc with the request.
func (r RecipeRequest) ApplyTo(rc *recipe.Recipe) {
	r.CatalogHeader.apply(&rc.BaseCatalog)
	rc.OutputItemID = r.OutputItemID
	rc.OutputQuantity = r.OutputQuantity
	rc.Items, rc.Stages = nil, nil
	for _, in := range r.Items {
		rc.AddItem(in.ItemID, in.Quantity)
	}
	for _, name := range r.Stages {
		rc.AddStage(name)
	}
}

// CostResponse reports a computed cost.
type CostResponse struct {
	WarehouseID id.ID       `json:"warehouseId"`
	ItemID      id.ID       `json:"itemId,omitempty"`
	RecipeID    id.ID       `json:"recipeId,omitempty"`
	UnitCost    types.Money `json:"unitCost"`
}

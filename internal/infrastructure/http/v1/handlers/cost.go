package handlers

import (
	"github.com/gin-gonic/gin"

	"konditer/internal/core/apperror"
	"konditer/internal/core/id"
	"konditer/internal/domain/catalogs/recipe"
	"konditer/internal/domain/costing"
	"konditer/internal/infrastructure/http/v1/dto"
)

// CostHandler reports unit and recipe costs at a warehouse.
type CostHandler struct {
	*BaseHandler
	engine  *costing.Engine
	recipes *recipe.Service
}

// NewCostHandler creates a cost handler.
func NewCostHandler(base *BaseHandler, engine *costing.Engine, recipes *recipe.Service) *CostHandler {
	return &CostHandler{BaseHandler: base, engine: engine, recipes: recipes}
}

// ItemCost handles GET /items/:id/cost?warehouseId=
func (h *CostHandler) ItemCost(c *gin.Context) {
	itemID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	warehouseID, ok := h.warehouse(c)
	if !ok {
		return
	}
	cost, err := h.engine.UnitCost(c.Request.Context(), warehouseID, itemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.CostResponse{WarehouseID: warehouseID, ItemID: itemID, UnitCost: cost})
}

// RecipeCost handles GET /recipes/:id/cost?warehouseId=
func (h *CostHandler) RecipeCost(c *gin.Context) {
	recipeID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	warehouseID, ok := h.warehouse(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	r, err := h.recipes.GetByID(ctx, recipeID)
	if err != nil {
		h.Error(c, err)
		return
	}
	cost, err := h.engine.RecipeCost(ctx, warehouseID, r)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.CostResponse{WarehouseID: warehouseID, ItemID: r.OutputItemID, RecipeID: r.ID, UnitCost: cost})
}

func (h *CostHandler) warehouse(c *gin.Context) (id.ID, bool) {
	raw := c.Query("warehouseId")
	if raw == "" {
		h.Error(c, apperror.NewValidation("warehouseId is required"))
		return id.Nil, false
	}
	warehouseID, err := id.Parse(raw)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format").WithDetail("param", "warehouseId"))
		return id.Nil, false
	}
	return warehouseID, true
}

package dto

import (
	"time"

	"konditer/internal/core/id"
	"konditer/internal/core/types"
	"konditer/internal/domain/documents/production"
)

// CreateProductionRequest starts a production order from a recipe.
type CreateProductionRequest struct {
	RecipeID          id.ID          `json:"recipeId" binding:"required"`
	SourceWarehouseID id.ID          `json:"sourceWarehouseId" binding:"required"`
	OutputWarehouseID id.ID          `json:"outputWarehouseId" binding:"required"`
	Quantity          types.Quantity `json:"quantity"`
	MaxStage          int            `json:"maxStage,omitempty" binding:"min=0"`
	Date              *time.Time     `json:"date,omitempty"`
	Comment           string         `json:"comment,omitempty"`
}

// ToInput converts the request.
func (r CreateProductionRequest) ToInput() production.CreateInput {
	in := production.CreateInput{
		RecipeID:          r.RecipeID,
		SourceWarehouseID: r.SourceWarehouseID,
		OutputWarehouseID: r.OutputWarehouseID,
		Quantity:          r.Quantity,
		MaxStage:          r.MaxStage,
		Comment:           r.Comment,
	}
	if r.Date != nil {
		in.Date = *r.Date
	}
	return in
}

// ProductionLinesRequest replaces the required inputs of an order.
type ProductionLinesRequest struct {
	Lines []ProductionLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ProductionLineRequest is one required input.
type ProductionLineRequest struct {
	ItemID   id.ID          `json:"itemId" binding:"required"`
	Quantity types.Quantity `json:"quantity"`
}

// ToLines converts the request.
func (r ProductionLinesRequest) ToLines() []production.Line {
	lines := make([]production.Line, 0, len(r.Lines))
	for _, l := range r.Lines {
		lines = append(lines, production.Line{ItemID: l.ItemID, Required: l.Quantity})
	}
	return lines
}

// CompleteStageRequest records who finished a stage and where.
type CompleteStageRequest struct {
	Machine  string `json:"machine,omitempty"`
	Operator string `json:"operator,omitempty"`
}

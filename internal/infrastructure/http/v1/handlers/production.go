package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"konditer/internal/core/apperror"
	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/domain/audit"
	"konditer/internal/domain/documents/production"
	"konditer/internal/infrastructure/http/v1/dto"
)

// ProductionHandler serves production orders.
type ProductionHandler struct {
	*BaseHandler
	service *production.Service
	history audit.Reader
}

// NewProductionHandler creates a production handler.
func NewProductionHandler(base *BaseHandler, service *production.Service, history audit.Reader) *ProductionHandler {
	return &ProductionHandler{BaseHandler: base, service: service, history: history}
}

// List handles GET /production
func (h *ProductionHandler) List(c *gin.Context) {
	var q dto.DocumentListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, validationErr("invalid filter", err))
		return
	}
	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromListResult(result))
}

// Create handles POST /production
func (h *ProductionHandler) Create(c *gin.Context) {
	var req dto.CreateProductionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	order, err := h.service.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, order)
}

// Get handles GET /production/:id
func (h *ProductionHandler) Get(c *gin.Context) {
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	order, err := h.service.GetByID(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, order)
}

// UpdateLines handles PUT /production/:id/lines
func (h *ProductionHandler) UpdateLines(c *gin.Context) {
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	var req dto.ProductionLinesRequest
	if !h.BindJSON(c, &req) {
		return
	}
	order, err := h.service.UpdateLines(c.Request.Context(), orderID, req.ToLines())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, order)
}

// CompleteStage handles POST /production/:id/stages/:stage/complete
func (h *ProductionHandler) CompleteStage(c *gin.Context) {
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	stage, err := strconv.Atoi(c.Param("stage"))
	if err != nil || stage < 1 {
		h.Error(c, apperror.NewValidation("stage must be a positive number").WithDetail("stage", c.Param("stage")))
		return
	}
	var req dto.CompleteStageRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	operator := req.Operator
	if operator == "" {
		operator = h.Actor(c)
	}
	order, err := h.service.CompleteStage(c.Request.Context(), orderID, stage, req.Machine, operator)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, order)
}

// Revert handles POST /production/:id/revert
func (h *ProductionHandler) Revert(c *gin.Context) {
	h.transition(c, h.service.Revert)
}

// Cancel handles POST /production/:id/cancel
func (h *ProductionHandler) Cancel(c *gin.Context) {
	h.transition(c, h.service.Cancel)
}

// Delete handles DELETE /production/:id
func (h *ProductionHandler) Delete(c *gin.Context) {
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), orderID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// History handles GET /production/:id/history
func (h *ProductionHandler) History(c *gin.Context) {
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	entries, err := h.history.History(c.Request.Context(), string(entity.DocumentTypeProduction), orderID, 100)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": entries})
}

func (h *ProductionHandler) transition(c *gin.Context, op func(context.Context, id.ID) error) {
	orderID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := op(ctx, orderID); err != nil {
		h.Error(c, err)
		return
	}
	order, err := h.service.GetByID(ctx, orderID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, order)
}

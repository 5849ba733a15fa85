package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/domain"
	"konditer/internal/infrastructure/http/v1/dto"
)

// CatalogService is what CatalogHandler needs from a catalog service.
type CatalogService[T entity.Validatable] interface {
	Create(ctx context.Context, e T) error
	Update(ctx context.Context, e T) error
	GetByID(ctx context.Context, entityID id.ID) (T, error)
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[T], error)
}

// CatalogHandler is a generic handler for catalog CRUD operations.
type CatalogHandler[T entity.Validatable, Req any] struct {
	*BaseHandler
	service CatalogService[T]
	newFn   func(Req) T
	apply   func(Req, T)
}

// NewCatalogHandler creates a catalog handler.
func NewCatalogHandler[T entity.Validatable, Req any](
	base *BaseHandler,
	service CatalogService[T],
	newFn func(Req) T,
	apply func(Req, T),
) *CatalogHandler[T, Req] {
	return &CatalogHandler[T, Req]{BaseHandler: base, service: service, newFn: newFn, apply: apply}
}

// List handles GET /{catalog}
func (h *CatalogHandler[T, Req]) List(c *gin.Context) {
	var q dto.ListQuery
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

// Create handles POST /{catalog}
func (h *CatalogHandler[T, Req]) Create(c *gin.Context) {
	var req Req
	if !h.BindJSON(c, &req) {
		return
	}
	e := h.newFn(req)
	if err := h.service.Create(c.Request.Context(), e); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, e)
}

// Get handles GET /{catalog}/:id
func (h *CatalogHandler[T, Req]) Get(c *gin.Context) {
	entityID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	e, err := h.service.GetByID(c.Request.Context(), entityID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, e)
}

// Update handles PUT /{catalog}/:id
func (h *CatalogHandler[T, Req]) Update(c *gin.Context) {
	entityID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	var req Req
	if !h.BindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	e, err := h.service.GetByID(ctx, entityID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.apply(req, e)
	if err := h.service.Update(ctx, e); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, e)
}

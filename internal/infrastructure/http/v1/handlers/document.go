package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"konditer/internal/core/id"
	"konditer/internal/domain"
	"konditer/internal/domain/audit"
	"konditer/internal/domain/documents"
	"konditer/internal/infrastructure/http/v1/dto"
)

// DocumentService is what DocumentHandler needs from a document service.
type DocumentService[T documents.Document] interface {
	Create(ctx context.Context, doc T) error
	GetByID(ctx context.Context, docID id.ID) (T, error)
	List(ctx context.Context, filter documents.ListFilter) (domain.ListResult[T], error)
	Update(ctx context.Context, doc T) error
	Delete(ctx context.Context, docID id.ID) error
	Confirm(ctx context.Context, docID id.ID) error
	Revert(ctx context.Context, docID id.ID) error
	Cancel(ctx context.Context, docID id.ID) error
}

// DocumentHandler serves the draft/confirm/revert/cancel lifecycle of one
// document type.
type DocumentHandler[T documents.Document, Req any] struct {
	*BaseHandler
	service DocumentService[T]
	history audit.Reader
	docType string

	newDoc func(req Req, now time.Time, actor string) T
	apply  func(req Req, doc T)
}

// DocumentHandlerConfig configures a DocumentHandler.
type DocumentHandlerConfig[T documents.Document, Req any] struct {
	Service      DocumentService[T]
	History      audit.Reader
	DocumentType string
	New          func(req Req, now time.Time, actor string) T
	Apply        func(req Req, doc T)
}

// NewDocumentHandler creates a document handler.
func NewDocumentHandler[T documents.Document, Req any](base *BaseHandler, cfg DocumentHandlerConfig[T, Req]) *DocumentHandler[T, Req] {
	return &DocumentHandler[T, Req]{
		BaseHandler: base,
		service:     cfg.Service,
		history:     cfg.History,
		docType:     cfg.DocumentType,
		newDoc:      cfg.New,
		apply:       cfg.Apply,
	}
}

// List handles GET /{documents}
func (h *DocumentHandler[T, Req]) List(c *gin.Context) {
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

// Create handles POST /{documents}
func (h *DocumentHandler[T, Req]) Create(c *gin.Context) {
	var req Req
	if !h.BindJSON(c, &req) {
		return
	}
	doc := h.newDoc(req, h.clock.Now(), h.Actor(c))
	if err := h.service.Create(c.Request.Context(), doc); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, doc)
}

// Get handles GET /{documents}/:id
func (h *DocumentHandler[T, Req]) Get(c *gin.Context) {
	docID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	doc, err := h.service.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

// Update handles PUT /{documents}/:id
func (h *DocumentHandler[T, Req]) Update(c *gin.Context) {
	docID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	var req Req
	if !h.BindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	doc, err := h.service.GetByID(ctx, docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.apply(req, doc)
	if err := h.service.Update(ctx, doc); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

// Delete handles DELETE /{documents}/:id
func (h *DocumentHandler[T, Req]) Delete(c *gin.Context) {
	docID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), docID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// Confirm handles POST /{documents}/:id/confirm
func (h *DocumentHandler[T, Req]) Confirm(c *gin.Context) {
	h.transition(c, h.service.Confirm)
}

// Revert handles POST /{documents}/:id/revert
func (h *DocumentHandler[T, Req]) Revert(c *gin.Context) {
	h.transition(c, h.service.Revert)
}

// Cancel handles POST /{documents}/:id/cancel
func (h *DocumentHandler[T, Req]) Cancel(c *gin.Context) {
	h.transition(c, h.service.Cancel)
}

// History handles GET /{documents}/:id/history
func (h *DocumentHandler[T, Req]) History(c *gin.Context) {
	docID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	entries, err := h.history.History(c.Request.Context(), h.docType, docID, 100)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": entries})
}

func (h *DocumentHandler[T, Req]) transition(c *gin.Context, op func(context.Context, id.ID) error) {
	docID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := op(ctx, docID); err != nil {
		h.Error(c, err)
		return
	}
	doc, err := h.service.GetByID(ctx, docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, doc)
}

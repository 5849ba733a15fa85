// Package handlers provides HTTP request handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"konditer/internal/core/apperror"
	"konditer/internal/core/clock"
	appctx "konditer/internal/core/context"
	"konditer/internal/core/id"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct {
	clock clock.Clock
}

// NewBaseHandler creates a new base handler.
func NewBaseHandler(clk clock.Clock) *BaseHandler {
	if clk == nil {
		clk = clock.System{}
	}
	return &BaseHandler{clock: clk}
}

// BindJSON binds and validates JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// BindQuery binds and validates query parameters.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid query parameters").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// PathID parses the :name path parameter as an id.
func (h *BaseHandler) PathID(c *gin.Context, name string) (id.ID, bool) {
	v, err := id.Parse(c.Param(name))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format").WithDetail("param", name))
		return id.Nil, false
	}
	return v, true
}

// Error registers error on Gin context and aborts request.
// Actual JSON response is produced by middleware.ErrorHandler.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// Actor returns the id of the authenticated user.
func (h *BaseHandler) Actor(c *gin.Context) string {
	return appctx.GetUserID(c.Request.Context())
}

// Created sends a 201 response.
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// OK sends a 200 response.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// NoContent sends a 204 response.
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

package v1

import (
	"github.com/gin-gonic/gin"

	"konditer/internal/core/security"
	"konditer/internal/infrastructure/http/v1/middleware"
)

// CatalogRouteHandler defines the interface for catalog handlers.
type CatalogRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
}

// DocumentRouteHandler defines the interface for document handlers.
type DocumentRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
	Confirm(c *gin.Context)
	Revert(c *gin.Context)
	Cancel(c *gin.Context)
	History(c *gin.Context)
}

// RegisterCatalogRoutes registers the CRUD routes of a catalog.
//
// Usage:
//
//	handler := handlers.NewCatalogHandler(base, svc.Items, dto.ItemRequest.NewItem, dto.ItemRequest.ApplyTo)
//	RegisterCatalogRoutes(api.Group("/items"), handler)
func RegisterCatalogRoutes(group *gin.RouterGroup, handler CatalogRouteHandler) {
	group.GET("", middleware.Require(security.CapDocumentsRead), handler.List)
	group.POST("", middleware.Require(security.CapCatalogsWrite), handler.Create)
	group.GET("/:id", middleware.Require(security.CapDocumentsRead), handler.Get)
	group.PUT("/:id", middleware.Require(security.CapCatalogsWrite), handler.Update)
}

// RegisterDocumentRoutes registers CRUD and lifecycle routes of a document.
func RegisterDocumentRoutes(group *gin.RouterGroup, handler DocumentRouteHandler) {
	group.GET("", middleware.Require(security.CapDocumentsRead), handler.List)
	group.POST("", middleware.Require(security.CapDocumentsWrite), handler.Create)
	group.GET("/:id", middleware.Require(security.CapDocumentsRead), handler.Get)
	group.PUT("/:id", middleware.Require(security.CapDocumentsWrite), handler.Update)
	group.DELETE("/:id", middleware.Require(security.CapDocumentsWrite), handler.Delete)
	group.GET("/:id/history", middleware.Require(security.CapDocumentsRead), handler.History)

	group.POST("/:id/confirm", middleware.Require(security.CapDocumentsConfirm), handler.Confirm)
	group.POST("/:id/revert", middleware.Require(security.CapDocumentsRevert), handler.Revert)
	group.POST("/:id/cancel", middleware.Require(security.CapDocumentsWrite), handler.Cancel)
}

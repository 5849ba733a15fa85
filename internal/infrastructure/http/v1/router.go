// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"konditer/internal/app"
	"konditer/internal/core/entity"
	"konditer/internal/core/idempotency"
	"konditer/internal/core/security"
	"konditer/internal/domain/catalogs/item"
	"konditer/internal/domain/catalogs/recipe"
	"konditer/internal/domain/catalogs/warehouse"
	"konditer/internal/domain/documents/adjustment"
	"konditer/internal/domain/documents/purchase"
	"konditer/internal/domain/documents/sale"
	"konditer/internal/domain/documents/transfer"
	"konditer/internal/infrastructure/http/v1/dto"
	"konditer/internal/infrastructure/http/v1/handlers"
	"konditer/internal/infrastructure/http/v1/middleware"
	"konditer/internal/infrastructure/observability"
	"konditer/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	Services *app.Services
	Logger   *logger.Logger

	// Tokens validates bearer tokens.
	Tokens middleware.TokenValidator

	// MaintenanceKey guards /admin routes in addition to CapMaintenance.
	MaintenanceKey middleware.MaintenanceKeyVerifier

	// Idempotency is nil when mutating requests are not deduplicated.
	Idempotency idempotency.Store

	Metrics *observability.Metrics
	Health  map[string]handlers.Pinger

	// ServiceName labels server spans.
	ServiceName string
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	if cfg.ServiceName != "" {
		router.Use(otelgin.Middleware(cfg.ServiceName))
	}
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(cfg.Metrics.Middleware())
	router.Use(middleware.ErrorHandler())

	router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))

	healthHandler := handlers.NewHealthHandler(cfg.Health)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	api := router.Group("/api/v1")
	api.Use(middleware.Auth(cfg.Tokens))
	api.Use(middleware.Idempotency(cfg.Idempotency))

	base := handlers.NewBaseHandler(cfg.Services.Clock)
	registerCatalogRoutes(api, base, cfg)
	registerDocumentRoutes(api, base, cfg)
	registerProductionRoutes(api, base, cfg)
	registerStockRoutes(api, base, cfg)
	registerAdminRoutes(api, base, cfg)

	return router
}

func registerCatalogRoutes(api *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	svc := cfg.Services

	RegisterCatalogRoutes(api.Group("/warehouses"),
		handlers.NewCatalogHandler[*warehouse.Warehouse](base, svc.Warehouses,
			dto.WarehouseRequest.NewWarehouse, dto.WarehouseRequest.ApplyTo))

	items := api.Group("/items")
	RegisterCatalogRoutes(items,
		handlers.NewCatalogHandler[*item.Item](base, svc.Items,
			dto.ItemRequest.NewItem, dto.ItemRequest.ApplyTo))

	recipes := api.Group("/recipes")
	RegisterCatalogRoutes(recipes,
		handlers.NewCatalogHandler[*recipe.Recipe](base, svc.Recipes,
			dto.RecipeRequest.NewRecipe, dto.RecipeRequest.ApplyTo))

	costs := handlers.NewCostHandler(base, svc.Costing, svc.Recipes)
	items.GET("/:id/cost", middleware.Require(security.CapStockRead), costs.ItemCost)
	recipes.GET("/:id/cost", middleware.Require(security.CapStockRead), costs.RecipeCost)
}

func registerDocumentRoutes(api *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	svc := cfg.Services
	history := svc.Backend.History

	RegisterDocumentRoutes(api.Group("/purchases"),
		handlers.NewDocumentHandler(base, handlers.DocumentHandlerConfig[*purchase.Purchase, dto.PurchaseRequest]{
			Service:      svc.Purchases,
			History:      history,
			DocumentType: string(entity.DocumentTypePurchase),
			New:          dto.PurchaseRequest.NewPurchase,
			Apply:        dto.PurchaseRequest.ApplyTo,
		}))

	RegisterDocumentRoutes(api.Group("/transfers"),
		handlers.NewDocumentHandler(base, handlers.DocumentHandlerConfig[*transfer.Transfer, dto.TransferRequest]{
			Service:      svc.Transfers,
			History:      history,
			DocumentType: string(entity.DocumentTypeTransfer),
			New:          dto.TransferRequest.NewTransfer,
			Apply:        dto.TransferRequest.ApplyTo,
		}))

	RegisterDocumentRoutes(api.Group("/adjustments"),
		handlers.NewDocumentHandler(base, handlers.DocumentHandlerConfig[*adjustment.Adjustment, dto.AdjustmentRequest]{
			Service:      svc.Adjustments,
			History:      history,
			DocumentType: string(entity.DocumentTypeAdjustment),
			New:          dto.AdjustmentRequest.NewAdjustment,
			Apply:        dto.AdjustmentRequest.ApplyTo,
		}))

	RegisterDocumentRoutes(api.Group("/sales"),
		handlers.NewDocumentHandler(base, handlers.DocumentHandlerConfig[*sale.Sale, dto.SaleRequest]{
			Service:      svc.Sales,
			History:      history,
			DocumentType: string(entity.DocumentTypeSale),
			New:          dto.SaleRequest.NewSale,
			Apply:        dto.SaleRequest.ApplyTo,
		}))
}

func registerProductionRoutes(api *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewProductionHandler(base, cfg.Services.Production, cfg.Services.Backend.History)

	g := api.Group("/production")
	g.GET("", middleware.Require(security.CapDocumentsRead), h.List)
	g.POST("", middleware.Require(security.CapProductionOperate), h.Create)
	g.GET("/:id", middleware.Require(security.CapDocumentsRead), h.Get)
	g.GET("/:id/history", middleware.Require(security.CapDocumentsRead), h.History)
	g.PUT("/:id/lines", middleware.Require(security.CapProductionOperate), h.UpdateLines)
	g.POST("/:id/stages/:stage/complete", middleware.Require(security.CapProductionOperate), h.CompleteStage)
	g.POST("/:id/revert", middleware.Require(security.CapProductionRevert), h.Revert)
	g.POST("/:id/cancel", middleware.Require(security.CapProductionOperate), h.Cancel)
	g.DELETE("/:id", middleware.Require(security.CapProductionDelete), h.Delete)
}

func registerStockRoutes(api *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewStockHandler(base, cfg.Services.Stock, cfg.Services.Ledger)

	g := api.Group("/stock", middleware.Require(security.CapStockRead))
	g.GET("/balances", h.Balances)
	g.GET("/movements", h.Movements)
	g.GET("/documents/:type/:id/movements", h.DocumentMovements)
}

func registerAdminRoutes(api *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	var observer handlers.ReconcileObserver
	if cfg.Metrics != nil {
		observer = cfg.Metrics
	}
	h := handlers.NewAdminHandler(base, cfg.Services.Reconcile, cfg.Services.LowStock, observer)

	g := api.Group("/admin",
		middleware.Require(security.CapMaintenance),
		middleware.RequireMaintenanceKey(cfg.MaintenanceKey),
	)
	g.POST("/recompute-balances", h.RecomputeBalances)
	g.POST("/low-stock/check", h.CheckLowStock)
}

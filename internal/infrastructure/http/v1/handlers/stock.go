package handlers

import (
	"slices"

	"github.com/gin-gonic/gin"

	"konditer/internal/core/apperror"
	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/domain/registers/ledger"
	"konditer/internal/domain/registers/stock"
	"konditer/internal/infrastructure/http/v1/dto"
)

// StockHandler exposes balances and the movement ledger.
type StockHandler struct {
	*BaseHandler
	stock  *stock.Service
	ledger *ledger.Service
}

// NewStockHandler creates a stock handler.
func NewStockHandler(base *BaseHandler, st *stock.Service, led *ledger.Service) *StockHandler {
	return &StockHandler{BaseHandler: base, stock: st, ledger: led}
}

// Balances handles GET /stock/balances
func (h *StockHandler) Balances(c *gin.Context) {
	var q dto.StockQuery
	if !h.BindQuery(c, &q) {
		return
	}
	ctx := c.Request.Context()

	var (
		balances []entity.Balance
		err      error
	)
	switch {
	case q.WarehouseID != "" && q.ItemID != "":
		var b entity.Balance
		b, err = h.stock.Get(ctx, id.MustParse(q.WarehouseID), id.MustParse(q.ItemID))
		balances = []entity.Balance{b}
	case q.WarehouseID != "":
		balances, err = h.stock.ListByWarehouse(ctx, id.MustParse(q.WarehouseID))
	default:
		balances, err = h.stock.ListAll(ctx)
		if err == nil && q.ItemID != "" {
			itemID := id.MustParse(q.ItemID)
			balances = slices.DeleteFunc(balances, func(b entity.Balance) bool { return b.ItemID != itemID })
		}
	}
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": balances})
}

// Movements handles GET /stock/movements
func (h *StockHandler) Movements(c *gin.Context) {
	var q dto.StockQuery
	if !h.BindQuery(c, &q) {
		return
	}
	if q.WarehouseID == "" || q.ItemID == "" {
		h.Error(c, apperror.NewValidation("warehouseId and itemId are required"))
		return
	}
	ctx := c.Request.Context()
	warehouseID, itemID := id.MustParse(q.WarehouseID), id.MustParse(q.ItemID)

	entries, err := h.ledger.List(ctx, warehouseID, itemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	total, err := h.ledger.Sum(ctx, warehouseID, itemID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": entries, "total": total})
}

// DocumentMovements handles GET /stock/documents/:type/:id/movements
func (h *StockHandler) DocumentMovements(c *gin.Context) {
	docType := entity.DocumentType(c.Param("type"))
	if !slices.Contains(entity.DocumentTypes, docType) {
		h.Error(c, apperror.NewValidation("unknown document type").WithDetail("type", docType))
		return
	}
	docID, ok := h.PathID(c, "id")
	if !ok {
		return
	}
	entries, err := h.ledger.ListByDocument(c.Request.Context(), entity.DocumentRef{Type: docType, ID: docID})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": entries})
}

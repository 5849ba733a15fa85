package dto

import (
	"time"

	"konditer/internal/core/id"
	"konditer/internal/core/types"
	"konditer/internal/domain/documents/adjustment"
	"konditer/internal/domain/documents/purchase"
	"konditer/internal/domain/documents/sale"
	"konditer/internal/domain/documents/transfer"
)

// --- Purchase ---

// PurchaseRequest creates or replaces a draft purchase.
type PurchaseRequest struct {
	DocumentHeader
	WarehouseID  id.ID                    `json:"warehouseId" binding:"required"`
	SupplierName string                   `json:"supplierName,omitempty"`
	Lines        []PurchaseLineRequest    `json:"lines" binding:"required,min=1,dive"`
	Expenses     []PurchaseExpenseRequest `json:"expenses,omitempty" binding:"dive"`
}

// PurchaseLineRequest is one received item.
type PurchaseLineRequest struct {
	ItemID   id.ID          `json:"itemId" binding:"required"`
	Quantity types.Quantity `json:"quantity"`
	Price    types.Money    `json:"price"`
}

// PurchaseExpenseRequest is one delivery cost.
type PurchaseExpenseRequest struct {
	Name   string      `json:"name" binding:"required"`
	Amount types.Money `json:"amount"`
}

// NewPurchase builds a draft purchase.
func (r PurchaseRequest) NewPurchase(now time.Time, actor string) *purchase.Purchase {
	p := purchase.NewPurchase(now, actor, r.WarehouseID)
	r.ApplyTo(p)
	return p
}

// ApplyTo replaces the header and lines of p.
func (r PurchaseRequest) ApplyTo(p *purchase.Purchase) {
	r.DocumentHeader.apply(&p.Document)
	p.WarehouseID = r.WarehouseID
	p.SupplierName = r.SupplierName
	p.Lines, p.Expenses = nil, nil
	for _, l := range r.Lines {
		p.AddLine(l.ItemID, l.Quantity, l.Price)
	}
	for _, e := range r.Expenses {
		p.AddExpense(e.Name, e.Amount)
	}
}

// --- Transfer ---

// TransferRequest creates or replaces a draft transfer.
type TransferRequest struct {
	DocumentHeader
	SourceWarehouseID      id.ID                 `json:"sourceWarehouseId" binding:"required"`
	DestinationWarehouseID id.ID                 `json:"destinationWarehouseId" binding:"required"`
	Lines                  []TransferLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// TransferLineRequest is one moved item.
type TransferLineRequest struct {
	ItemID   id.ID          `json:"itemId" binding:"required"`
	Quantity types.Quantity `json:"quantity"`
}

// NewTransfer builds a draft transfer.
func (r TransferRequest) NewTransfer(now time.Time, actor string) *transfer.Transfer {
	t := transfer.NewTransfer(now, actor, r.SourceWarehouseID, r.DestinationWarehouseID)
	r.ApplyTo(t)
	return t
}

// ApplyTo replaces the header and lines of t.
func (r TransferRequest) ApplyTo(t *transfer.Transfer) {
	r.DocumentHeader.apply(&t.Document)
	t.SourceWarehouseID = r.SourceWarehouseID
	t.DestinationWarehouseID = r.DestinationWarehouseID
	t.Lines = nil
	for _, l := range r.Lines {
		t.AddLine(l.ItemID, l.Quantity)
	}
}

// --- Adjustment ---

// AdjustmentRequest creates or replaces a draft adjustment.
type AdjustmentRequest struct {
	DocumentHeader
	WarehouseID id.ID                   `json:"warehouseId" binding:"required"`
	Reason      string                  `json:"reason,omitempty"`
	Lines       []AdjustmentLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// AdjustmentLineRequest sets one counted quantity. UnitCost is optional.
type AdjustmentLineRequest struct {
	ItemID   id.ID          `json:"itemId" binding:"required"`
	Quantity types.Quantity `json:"quantity"`
	UnitCost *types.Money   `json:"unitCost,omitempty"`
}

// NewAdjustment builds a draft adjustment.
func (r AdjustmentRequest) NewAdjustment(now time.Time, actor string) *adjustment.Adjustment {
	a := adjustment.NewAdjustment(now, actor, r.WarehouseID)
	r.ApplyTo(a)
	return a
}

// ApplyTo replaces the header and lines of a.
func (r AdjustmentRequest) ApplyTo(a *adjustment.Adjustment) {
	r.DocumentHeader.apply(&a.Document)
	a.WarehouseID = r.WarehouseID
	a.Reason = r.Reason
	a.Lines = nil
	for _, l := range r.Lines {
		a.AddLine(l.ItemID, l.Quantity, l.UnitCost)
	}
}

// --- Sale ---

// SaleRequest creates or replaces a draft sale.
type SaleRequest struct {
	DocumentHeader
	WarehouseID  id.ID             `json:"warehouseId" binding:"required"`
	CustomerName string            `json:"customerName,omitempty"`
	Lines        []SaleLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// SaleLineRequest is one shipped item.
type SaleLineRequest struct {
	ItemID   id.ID          `json:"itemId" binding:"required"`
	Quantity types.Quantity `json:"quantity"`
	Price    types.Money    `json:"price"`
}

// NewSale builds a draft sale.
func (r SaleRequest) NewSale(now time.Time, actor string) *sale.Sale {
	s := sale.NewSale(now, actor, r.WarehouseID)
	r.ApplyTo(s)
	return s
}

// ApplyTo replaces the header and lines of s.
func (r SaleRequest) ApplyTo(s *sale.Sale) {
	r.DocumentHeader.apply(&s.Document)
	s.WarehouseID = r.WarehouseID
	s.CustomerName = r.CustomerName
	s.Lines = nil
	s.TotalAmount = types.Zero()
	for _, l := range r.Lines {
		s.AddLine(l.ItemID, l.Quantity, l.Price)
	}
}

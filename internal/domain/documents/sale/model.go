// Package sale provides the Sale document: goods shipped to a customer from
// one warehouse.
package sale

import (
	"context"
	"time"

	"konditer/internal/core/apperror"
	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/core/types"
	"konditer/internal/domain/documents/posting"
	"konditer/internal/domain/registers/stock"
)

// Sale ships items out of a warehouse. It cannot be reverted.
type Sale struct {
	entity.Document

	WarehouseID  id.ID       `db:"warehouse_id" json:"warehouseId"`
	CustomerName string      `db:"customer_name" json:"customerName,omitempty"`
	TotalAmount  types.Money `db:"total_amount" json:"totalAmount"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one shipped item. UnitCost is the balance cost at confirm.
type Line struct {
	SaleID   id.ID          `db:"sale_id" json:"-"`
	LineNo   int            `db:"line_no" json:"lineNo"`
	ItemID   id.ID          `db:"item_id" json:"itemId"`
	Quantity types.Quantity `db:"quantity" json:"quantity"`
	Price    types.Money    `db:"price" json:"price"`
	Amount   types.Money    `db:"amount" json:"amount"`
	UnitCost types.Money    `db:"unit_cost" json:"unitCost"`
}

// NewSale creates a draft sale from warehouseID.
func NewSale(now time.Time, actor string, warehouseID id.ID) *Sale {
	return &Sale{
		Document:    entity.NewDocument(now, actor),
		WarehouseID: warehouseID,
		TotalAmount: types.Zero(),
	}
}

// AddLine appends a shipped item.
func (s *Sale) AddLine(itemID id.ID, qty types.Quantity, price types.Money) {
	s.Lines = append(s.Lines, Line{
		SaleID:   s.ID,
		LineNo:   len(s.Lines) + 1,
		ItemID:   itemID,
		Quantity: qty,
		Price:    price,
		Amount:   types.Amount(price, qty),
		UnitCost: types.Zero(),
	})
	s.TotalAmount = s.TotalAmount.Add(s.Lines[len(s.Lines)-1].Amount)
}

// Validate implements entity.Validatable.
func (s *Sale) Validate(ctx context.Context) error {
	if err := s.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(s.WarehouseID) {
		return apperror.NewValidation("warehouse is required").WithDetail("field", "warehouseId")
	}
	if len(s.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").WithDetail("field", "lines")
	}
	for i, line := range s.Lines {
		if id.IsNil(line.ItemID) {
			return apperror.NewValidation("item is required").WithLine(i)
		}
		if !line.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").WithLine(i)
		}
		if line.Price.IsNegative() {
			return apperror.NewValidation("price must not be negative").WithLine(i)
		}
	}
	return nil
}

func (s *Sale) DocumentType() entity.DocumentType { return entity.DocumentTypeSale }

func (s *Sale) AppliedStatus() entity.Status { return entity.StatusConfirmed }

func (s *Sale) References() []posting.Reference {
	refs := []posting.Reference{posting.WarehouseRef(s.WarehouseID)}
	for i, line := range s.Lines {
		refs = append(refs, posting.ItemRef(line.ItemID, i))
	}
	return refs
}

func (s *Sale) BalanceKeys() []entity.BalanceKey {
	keys := make([]entity.BalanceKey, 0, len(s.Lines))
	for _, line := range s.Lines {
		keys = append(keys, entity.BalanceKey{WarehouseID: s.WarehouseID, ItemID: line.ItemID})
	}
	return keys
}

// Post rejects the sale if any line is short, then consumes every line.
func (s *Sale) Post(ctx context.Context, sess *posting.Session) error {
	reqs := make([]stock.Requirement, len(s.Lines))
	for i, line := range s.Lines {
		reqs[i] = stock.Requirement{Line: i, WarehouseID: s.WarehouseID, ItemID: line.ItemID, Quantity: line.Quantity}
	}
	if err := sess.Require(ctx, reqs); err != nil {
		return err
	}
	for i := range s.Lines {
		line := &s.Lines[i]
		change, err := sess.Consume(ctx, s.WarehouseID, line.ItemID, line.Quantity)
		if err != nil {
			return err
		}
		line.UnitCost = change.Before.UnitCost
	}
	return nil
}

var _ posting.Postable = (*Sale)(nil)

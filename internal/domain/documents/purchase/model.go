// Package purchase provides the Purchase document: goods received from a
// supplier into one warehouse at a landed cost.
package purchase

import (
	"context"
	"time"

	"konditer/internal/core/apperror"
	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/core/types"
	"konditer/internal/domain/documents/posting"
)

// Purchase is a supplier delivery.
type Purchase struct {
	entity.Document

	WarehouseID  id.ID  `db:"warehouse_id" json:"warehouseId"`
	SupplierName string `db:"supplier_name" json:"supplierName,omitempty"`

	// Totals (calculated from lines and expenses)
	TotalAmount   types.Money `db:"total_amount" json:"totalAmount"`
	TotalExpenses types.Money `db:"total_expenses" json:"totalExpenses"`

	Lines    []Line    `db:"-" json:"lines"`
	Expenses []Expense `db:"-" json:"expenses"`
}

// Line is one received item. The balance snapshots are filled on confirm and
// used to undo it.
type Line struct {
	PurchaseID id.ID          `db:"purchase_id" json:"-"`
	LineNo     int            `db:"line_no" json:"lineNo"`
	ItemID     id.ID          `db:"item_id" json:"itemId"`
	Quantity   types.Quantity `db:"quantity" json:"quantity"`
	Price      types.Money    `db:"price" json:"price"`
	Amount     types.Money    `db:"amount" json:"amount"`

	// LandedCost is price plus the line's share of expenses, per unit
	LandedCost types.Money `db:"landed_cost" json:"landedCost"`

	PrevQuantity  types.Quantity `db:"prev_quantity" json:"prevQuantity"`
	PrevUnitCost  types.Money    `db:"prev_unit_cost" json:"prevUnitCost"`
	AfterQuantity types.Quantity `db:"after_quantity" json:"afterQuantity"`
	AfterUnitCost types.Money    `db:"after_unit_cost" json:"afterUnitCost"`
}

// Expense is a delivery cost spread over the lines by amount.
type Expense struct {
	PurchaseID id.ID       `db:"purchase_id" json:"-"`
	LineNo     int         `db:"line_no" json:"lineNo"`
	Name       string      `db:"name" json:"name"`
	Amount     types.Money `db:"amount" json:"amount"`
}

// NewPurchase creates a draft purchase into warehouseID.
func NewPurchase(now time.Time, actor string, warehouseID id.ID) *Purchase {
	return &Purchase{
		Document:      entity.NewDocument(now, actor),
		WarehouseID:   warehouseID,
		TotalAmount:   types.Zero(),
		TotalExpenses: types.Zero(),
	}
}

// AddLine appends a received item and recalculates totals.
func (p *Purchase) AddLine(itemID id.ID, qty types.Quantity, price types.Money) {
	p.Lines = append(p.Lines, Line{
		PurchaseID: p.ID,
		LineNo:     len(p.Lines) + 1,
		ItemID:     itemID,
		Quantity:   qty,
		Price:      price,
	})
	p.Recalculate()
}

// AddExpense appends a delivery cost and recalculates totals.
func (p *Purchase) AddExpense(name string, amount types.Money) {
	p.Expenses = append(p.Expenses, Expense{
		PurchaseID: p.ID,
		LineNo:     len(p.Expenses) + 1,
		Name:       name,
		Amount:     amount,
	})
	p.Recalculate()
}

// Recalculate refreshes line amounts, totals and landed costs.
func (p *Purchase) Recalculate() {
	p.TotalAmount = types.Zero()
	for i := range p.Lines {
		p.Lines[i].PurchaseID = p.ID
		p.Lines[i].LineNo = i + 1
		p.Lines[i].Amount = types.Amount(p.Lines[i].Price, p.Lines[i].Quantity)
		p.TotalAmount = p.TotalAmount.Add(p.Lines[i].Amount)
	}
	p.TotalExpenses = types.Zero()
	for i := range p.Expenses {
		p.Expenses[i].PurchaseID = p.ID
		p.Expenses[i].LineNo = i + 1
		p.TotalExpenses = p.TotalExpenses.Add(p.Expenses[i].Amount)
	}
	for i := range p.Lines {
		p.Lines[i].LandedCost = LandedCost(p.Lines[i], p.TotalAmount, p.TotalExpenses)
	}
}

// LandedCost is price + (amount / items total * expenses) / quantity.
func LandedCost(l Line, itemsTotal, expenses types.Money) types.Money {
	if !expenses.IsPositive() || !itemsTotal.IsPositive() || !l.Quantity.IsPositive() {
		return l.Price
	}
	share := l.Amount.Div(itemsTotal).Mul(expenses)
	return l.Price.Add(share.Div(l.Quantity.Decimal())).Round(types.CostPrecision)
}

// Validate implements entity.Validatable.
func (p *Purchase) Validate(ctx context.Context) error {
	if err := p.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(p.WarehouseID) {
		return apperror.NewValidation("warehouse is required").WithDetail("field", "warehouseId")
	}
	if len(p.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").WithDetail("field", "lines")
	}
	for i, line := range p.Lines {
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
	for i, e := range p.Expenses {
		if e.Amount.IsNegative() {
			return apperror.NewValidation("expense must not be negative").WithDetail("expense", i)
		}
	}
	return nil
}

// --- posting.Unpostable ---

// DocumentType implements posting.Document.
func (p *Purchase) DocumentType() entity.DocumentType { return entity.DocumentTypePurchase }

// AppliedStatus implements posting.Postable.
func (p *Purchase) AppliedStatus() entity.Status { return entity.StatusConfirmed }

// References implements posting.Postable.
func (p *Purchase) References() []posting.Reference {
	refs := []posting.Reference{posting.WarehouseRef(p.WarehouseID)}
	for i, line := range p.Lines {
		refs = append(refs, posting.ItemRef(line.ItemID, i))
	}
	return refs
}

// BalanceKeys implements posting.Postable.
func (p *Purchase) BalanceKeys() []entity.BalanceKey {
	keys := make([]entity.BalanceKey, 0, len(p.Lines))
	for _, line := range p.Lines {
		keys = append(keys, entity.BalanceKey{WarehouseID: p.WarehouseID, ItemID: line.ItemID})
	}
	return keys
}

// Post receives every line at its landed cost and snapshots the balance
// before and after.
func (p *Purchase) Post(ctx context.Context, s *posting.Session) error {
	p.Recalculate()
	for i := range p.Lines {
		line := &p.Lines[i]
		change, err := s.Receive(ctx, p.WarehouseID, line.ItemID, line.Quantity, line.LandedCost)
		if err != nil {
			return err
		}
		line.PrevQuantity, line.PrevUnitCost = change.Before.Quantity, change.Before.UnitCost
		line.AfterQuantity, line.AfterUnitCost = change.After.Quantity, change.After.UnitCost
	}
	return nil
}

// Unpost undoes the lines in reverse order. A balance untouched since confirm
// gets its exact snapshot back; otherwise the received quantity and its share
// of the average are removed.
func (p *Purchase) Unpost(ctx context.Context, s *posting.Session) error {
	for i := len(p.Lines) - 1; i >= 0; i-- {
		line := p.Lines[i]
		key := entity.BalanceKey{WarehouseID: p.WarehouseID, ItemID: line.ItemID}
		current, err := s.Balance(ctx, key.WarehouseID, key.ItemID)
		if err != nil {
			return err
		}

		after := entity.BalanceSnapshot{Quantity: line.AfterQuantity, UnitCost: line.AfterUnitCost}
		if current.Snapshot().Equal(after) {
			prev := entity.BalanceSnapshot{Quantity: line.PrevQuantity, UnitCost: line.PrevUnitCost}
			if _, err := s.Restore(ctx, key, prev); err != nil {
				return err
			}
			continue
		}

		if current.Quantity < line.Quantity {
			return apperror.NewIrreversible(key.WarehouseID.String(), key.ItemID.String(),
				line.Quantity.String(), current.Quantity.String()).WithLine(i)
		}
		remaining := current.Quantity - line.Quantity
		cost := inverseAverage(current, line)
		if remaining.IsZero() {
			cost = line.PrevUnitCost
		}
		if _, err := s.Restore(ctx, key, entity.BalanceSnapshot{Quantity: remaining, UnitCost: cost}); err != nil {
			return err
		}
	}
	return nil
}

// inverseAverage removes the received value from the current average.
func inverseAverage(current entity.Balance, line Line) types.Money {
	remaining := current.Quantity - line.Quantity
	if !remaining.IsPositive() {
		return current.UnitCost
	}
	value := types.Amount(current.UnitCost, current.Quantity).Sub(types.Amount(line.LandedCost, line.Quantity))
	if value.IsNegative() {
		return current.UnitCost
	}
	return value.Div(remaining.Decimal()).Round(types.CostPrecision)
}

var _ posting.Unpostable = (*Purchase)(nil)

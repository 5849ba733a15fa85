// Package adjustment provides the stock Adjustment document: counted
// quantities (and optionally costs) that overwrite balances of one warehouse.
package adjustment

import (
	"context"
	"time"

	"konditer/internal/core/apperror"
	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/core/types"
	"konditer/internal/domain/documents/posting"
)

// Adjustment sets balances to counted values.
type Adjustment struct {
	entity.Document

	WarehouseID id.ID  `db:"warehouse_id" json:"warehouseId"`
	Reason      string `db:"reason" json:"reason,omitempty"`

	Lines []Line `db:"-" json:"lines"`
}

// Line sets one item to Quantity. UnitCost, when set, also replaces the
// balance cost. Prev* hold the balance the confirm overwrote, After* the one
// it wrote.
type Line struct {
	AdjustmentID id.ID          `db:"adjustment_id" json:"-"`
	LineNo       int            `db:"line_no" json:"lineNo"`
	ItemID       id.ID          `db:"item_id" json:"itemId"`
	Quantity     types.Quantity `db:"quantity" json:"quantity"`
	UnitCost     *types.Money   `db:"unit_cost" json:"unitCost,omitempty"`

	PrevQuantity types.Quantity `db:"prev_quantity" json:"prevQuantity"`
	PrevUnitCost types.Money    `db:"prev_unit_cost" json:"prevUnitCost"`

	AfterQuantity types.Quantity `db:"after_quantity" json:"afterQuantity"`
	AfterUnitCost types.Money    `db:"after_unit_cost" json:"afterUnitCost"`
}

// NewAdjustment creates a draft adjustment for warehouseID.
func NewAdjustment(now time.Time, actor string, warehouseID id.ID) *Adjustment {
	return &Adjustment{
		Document:    entity.NewDocument(now, actor),
		WarehouseID: warehouseID,
	}
}

// AddLine appends a counted quantity; cost may be nil to keep the balance cost.
func (a *Adjustment) AddLine(itemID id.ID, qty types.Quantity, cost *types.Money) {
	a.Lines = append(a.Lines, Line{
		AdjustmentID: a.ID,
		LineNo:       len(a.Lines) + 1,
		ItemID:       itemID,
		Quantity:     qty,
		UnitCost:     cost,
		PrevUnitCost:  types.Zero(),
		AfterUnitCost: types.Zero(),
	})
}

// Validate implements entity.Validatable.
func (a *Adjustment) Validate(ctx context.Context) error {
	if err := a.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(a.WarehouseID) {
		return apperror.NewValidation("warehouse is required").WithDetail("field", "warehouseId")
	}
	if len(a.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").WithDetail("field", "lines")
	}
	seen := make(map[id.ID]bool, len(a.Lines))
	for i, line := range a.Lines {
		if id.IsNil(line.ItemID) {
			return apperror.NewValidation("item is required").WithLine(i)
		}
		if seen[line.ItemID] {
			return apperror.NewValidation("item appears on more than one line").WithLine(i)
		}
		seen[line.ItemID] = true
		if line.Quantity.IsNegative() {
			return apperror.NewValidation("quantity must not be negative").WithLine(i)
		}
		if line.UnitCost != nil && line.UnitCost.IsNegative() {
			return apperror.NewValidation("unit cost must not be negative").WithLine(i)
		}
	}
	return nil
}

// DocumentType implements posting.Document.
func (a *Adjustment) DocumentType() entity.DocumentType { return entity.DocumentTypeAdjustment }

// AppliedStatus implements posting.Postable.
func (a *Adjustment) AppliedStatus() entity.Status { return entity.StatusConfirmed }

// References implements posting.Postable.
func (a *Adjustment) References() []posting.Reference {
	refs := []posting.Reference{posting.WarehouseRef(a.WarehouseID)}
	for i, line := range a.Lines {
		refs = append(refs, posting.ItemRef(line.ItemID, i))
	}
	return refs
}

// BalanceKeys implements posting.Postable.
func (a *Adjustment) BalanceKeys() []entity.BalanceKey {
	keys := make([]entity.BalanceKey, 0, len(a.Lines))
	for _, line := range a.Lines {
		keys = append(keys, entity.BalanceKey{WarehouseID: a.WarehouseID, ItemID: line.ItemID})
	}
	return keys
}

// Post overwrites each balance with the counted values, keeping the previous
// ones on the line.
func (a *Adjustment) Post(ctx context.Context, s *posting.Session) error {
	for i := range a.Lines {
		line := &a.Lines[i]
		current, err := s.Balance(ctx, a.WarehouseID, line.ItemID)
		if err != nil {
			return err
		}
		line.PrevQuantity, line.PrevUnitCost = current.Quantity, current.UnitCost

		target := entity.BalanceSnapshot{Quantity: line.Quantity, UnitCost: current.UnitCost}
		if line.UnitCost != nil {
			target.UnitCost = *line.UnitCost
		}
		change, err := s.Restore(ctx, current.Key(), target)
		if err != nil {
			return err
		}
		line.AfterQuantity, line.AfterUnitCost = change.After.Quantity, change.After.UnitCost
	}
	return nil
}

// Unpost undoes the lines in reverse order. A balance untouched since confirm
// gets its previous snapshot back; otherwise only the counted difference is
// taken back from the current quantity.
func (a *Adjustment) Unpost(ctx context.Context, s *posting.Session) error {
	for i := len(a.Lines) - 1; i >= 0; i-- {
		line := a.Lines[i]
		key := entity.BalanceKey{WarehouseID: a.WarehouseID, ItemID: line.ItemID}
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

		remaining := current.Quantity + line.PrevQuantity - line.AfterQuantity
		if remaining.IsNegative() {
			needed := line.AfterQuantity - line.PrevQuantity
			return apperror.NewIrreversible(key.WarehouseID.String(), key.ItemID.String(),
				needed.String(), current.Quantity.String()).WithLine(i)
		}
		if _, err := s.Restore(ctx, key, entity.BalanceSnapshot{Quantity: remaining, UnitCost: current.UnitCost}); err != nil {
			return err
		}
	}
	return nil
}

var _ posting.Unpostable = (*Adjustment)(nil)

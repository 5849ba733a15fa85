// Package transfer provides the warehouse Transfer document: stock moved from
// one warehouse to another at the source's unit cost.
package transfer

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

// Transfer moves items between two warehouses.
type Transfer struct {
	entity.Document

	SourceWarehouseID      id.ID `db:"source_warehouse_id" json:"sourceWarehouseId"`
	DestinationWarehouseID id.ID `db:"destination_warehouse_id" json:"destinationWarehouseId"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one transferred item. UnitCost is the source cost at confirm.
type Line struct {
	TransferID id.ID          `db:"transfer_id" json:"-"`
	LineNo     int            `db:"line_no" json:"lineNo"`
	ItemID     id.ID          `db:"item_id" json:"itemId"`
	Quantity   types.Quantity `db:"quantity" json:"quantity"`
	UnitCost   types.Money    `db:"unit_cost" json:"unitCost"`
}

// NewTransfer creates a draft transfer.
func NewTransfer(now time.Time, actor string, source, destination id.ID) *Transfer {
	return &Transfer{
		Document:               entity.NewDocument(now, actor),
		SourceWarehouseID:      source,
		DestinationWarehouseID: destination,
	}
}

// AddLine appends an item to transfer.
func (t *Transfer) AddLine(itemID id.ID, qty types.Quantity) {
	t.Lines = append(t.Lines, Line{
		TransferID: t.ID,
		LineNo:     len(t.Lines) + 1,
		ItemID:     itemID,
		Quantity:   qty,
		UnitCost:   types.Zero(),
	})
}

// Validate implements entity.Validatable.
func (t *Transfer) Validate(ctx context.Context) error {
	if err := t.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(t.SourceWarehouseID) {
		return apperror.NewValidation("source warehouse is required").WithDetail("field", "sourceWarehouseId")
	}
	if id.IsNil(t.DestinationWarehouseID) {
		return apperror.NewValidation("destination warehouse is required").WithDetail("field", "destinationWarehouseId")
	}
	if t.SourceWarehouseID == t.DestinationWarehouseID {
		return apperror.NewValidation("source and destination warehouses must differ")
	}
	if len(t.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").WithDetail("field", "lines")
	}
	for i, line := range t.Lines {
		if id.IsNil(line.ItemID) {
			return apperror.NewValidation("item is required").WithLine(i)
		}
		if !line.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").WithLine(i)
		}
	}
	return nil
}

// DocumentType implements posting.Document.
func (t *Transfer) DocumentType() entity.DocumentType { return entity.DocumentTypeTransfer }

// AppliedStatus implements posting.Postable.
func (t *Transfer) AppliedStatus() entity.Status { return entity.StatusConfirmed }

// References implements posting.Postable.
func (t *Transfer) References() []posting.Reference {
	refs := []posting.Reference{
		posting.WarehouseRef(t.SourceWarehouseID),
		posting.WarehouseRef(t.DestinationWarehouseID),
	}
	for i, line := range t.Lines {
		refs = append(refs, posting.ItemRef(line.ItemID, i))
	}
	return refs
}

// BalanceKeys implements posting.Postable.
func (t *Transfer) BalanceKeys() []entity.BalanceKey {
	keys := make([]entity.BalanceKey, 0, 2*len(t.Lines))
	for _, line := range t.Lines {
		keys = append(keys,
			entity.BalanceKey{WarehouseID: t.SourceWarehouseID, ItemID: line.ItemID},
			entity.BalanceKey{WarehouseID: t.DestinationWarehouseID, ItemID: line.ItemID})
	}
	return keys
}

// Post rejects the whole transfer if any line is short, then moves every
// line at the source unit cost.
func (t *Transfer) Post(ctx context.Context, s *posting.Session) error {
	reqs := make([]stock.Requirement, len(t.Lines))
	for i, line := range t.Lines {
		reqs[i] = stock.Requirement{Line: i, WarehouseID: t.SourceWarehouseID, ItemID: line.ItemID, Quantity: line.Quantity}
	}
	if err := s.Require(ctx, reqs); err != nil {
		return err
	}

	for i := range t.Lines {
		line := &t.Lines[i]
		src, err := s.Balance(ctx, t.SourceWarehouseID, line.ItemID)
		if err != nil {
			return err
		}
		line.UnitCost = src.UnitCost
		if _, err := s.Consume(ctx, t.SourceWarehouseID, line.ItemID, line.Quantity); err != nil {
			return err
		}
		if _, err := s.Receive(ctx, t.DestinationWarehouseID, line.ItemID, line.Quantity, line.UnitCost); err != nil {
			return err
		}
	}
	return nil
}

// Unpost moves the stock back. It fails when the destination no longer holds
// what was transferred.
func (t *Transfer) Unpost(ctx context.Context, s *posting.Session) error {
	needed := make(map[id.ID]types.Quantity)
	first := make(map[id.ID]int)
	for i, line := range t.Lines {
		if _, ok := first[line.ItemID]; !ok {
			first[line.ItemID] = i
		}
		needed[line.ItemID] += line.Quantity
	}
	for i, line := range t.Lines {
		if first[line.ItemID] != i {
			continue
		}
		dst, err := s.Balance(ctx, t.DestinationWarehouseID, line.ItemID)
		if err != nil {
			return err
		}
		if dst.Quantity < needed[line.ItemID] {
			return apperror.NewIrreversible(t.DestinationWarehouseID.String(), line.ItemID.String(),
				needed[line.ItemID].String(), dst.Quantity.String()).WithLine(i)
		}
	}

	for _, line := range t.Lines {
		if _, err := s.Consume(ctx, t.DestinationWarehouseID, line.ItemID, line.Quantity); err != nil {
			return err
		}
		if _, err := s.Receive(ctx, t.SourceWarehouseID, line.ItemID, line.Quantity, line.UnitCost); err != nil {
			return err
		}
	}
	return nil
}

var _ posting.Unpostable = (*Transfer)(nil)

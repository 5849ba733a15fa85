// Package entity provides core domain entities.
package entity

import (
	"time"

	"konditer/internal/core/id"
	"konditer/internal/core/types"
)

// Balance is the current stock of one item in one warehouse.
type Balance struct {
	WarehouseID id.ID          `db:"warehouse_id" json:"warehouseId"`
	ItemID      id.ID          `db:"item_id" json:"itemId"`
	Quantity    types.Quantity `db:"quantity" json:"quantity"`
	UnitCost    types.Money    `db:"unit_cost" json:"unitCost"`

	LastMovementAt *time.Time `db:"last_movement_at" json:"lastMovementAt,omitempty"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
}

// Key returns the (warehouse, item) key of the balance.
func (b Balance) Key() BalanceKey {
	return BalanceKey{WarehouseID: b.WarehouseID, ItemID: b.ItemID}
}

// Snapshot captures the value part of the balance.
func (b Balance) Snapshot() BalanceSnapshot {
	return BalanceSnapshot{Quantity: b.Quantity, UnitCost: b.UnitCost}
}

// BalanceKey identifies a balance row.
type BalanceKey struct {
	WarehouseID id.ID
	ItemID      id.ID
}

// BalanceSnapshot is an exact (quantity, unit cost) pair kept on document lines for revert.
type BalanceSnapshot struct {
	Quantity types.Quantity `db:"quantity" json:"quantity"`
	UnitCost types.Money    `db:"unit_cost" json:"unitCost"`
}

// Equal compares snapshots exactly.
func (s BalanceSnapshot) Equal(other BalanceSnapshot) bool {
	return s.Quantity == other.Quantity && s.UnitCost.Equal(other.UnitCost)
}

// MovementEntry is one ledger row: the net quantity change a document applied to
// one (warehouse, item) pair.
type MovementEntry struct {
	ID             id.ID          `db:"id" json:"id"`
	WarehouseID    id.ID          `db:"warehouse_id" json:"warehouseId"`
	ItemID         id.ID          `db:"item_id" json:"itemId"`
	QuantityDelta  types.Quantity `db:"quantity_delta" json:"quantityDelta"`
	QuantityAfter  types.Quantity `db:"quantity_after" json:"quantityAfter"`
	DocumentType   DocumentType   `db:"document_type" json:"documentType"`
	DocumentID     id.ID          `db:"document_id" json:"documentId"`
	DocumentNumber string         `db:"document_number" json:"documentNumber"`
	RecordedAt     time.Time      `db:"recorded_at" json:"recordedAt"`
	Actor          string         `db:"actor" json:"actor,omitempty"`
}

// Key returns the balance key the entry applies to.
func (m MovementEntry) Key() BalanceKey {
	return BalanceKey{WarehouseID: m.WarehouseID, ItemID: m.ItemID}
}

// DocumentRef identifies the document behind a movement entry.
type DocumentRef struct {
	Type DocumentType
	ID   id.ID
}

// Ref returns the document reference of the entry.
func (m MovementEntry) Ref() DocumentRef {
	return DocumentRef{Type: m.DocumentType, ID: m.DocumentID}
}

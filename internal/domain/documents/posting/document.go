// Package posting is the document state machine: it moves stock documents
// between statuses and applies their lines to balances and the movement
// ledger as one atomic unit.
package posting

import (
	"context"
	"time"

	"konditer/internal/core/entity"
	"konditer/internal/core/id"
)

// Document is the header every stock document exposes to the engine.
type Document interface {
	GetID() id.ID
	GetNumber() string
	GetStatus() entity.Status
	DocumentType() entity.DocumentType
}

// Postable is a document that can be confirmed.
type Postable interface {
	Document
	entity.Validatable

	// References lists the catalog entries the lines point to.
	References() []Reference

	// BalanceKeys lists every balance Post or Unpost may write, so the engine
	// can lock them in a fixed order up front.
	BalanceKeys() []entity.BalanceKey

	// Post applies the document lines through the session.
	Post(ctx context.Context, s *Session) error

	// AppliedStatus is the status the document takes after Post.
	AppliedStatus() entity.Status

	MarkApplied(status entity.Status, at time.Time, actor string)
}

// Unpostable is a document whose confirmation can be undone.
type Unpostable interface {
	Postable

	// Unpost undoes Post through the session, failing with an
	// IrreversibleError when balances no longer cover the inverse.
	Unpost(ctx context.Context, s *Session) error

	MarkDraft(at time.Time, actor string)
}

// Cancellable is a document that can be abandoned from draft.
type Cancellable interface {
	Document
	MarkCancelled(at time.Time, actor string)
}

// Reference is a catalog entry a document line points to. Line is the
// zero-based line index, or -1 for header fields.
type Reference struct {
	Entity string
	ID     id.ID
	Line   int
}

const (
	EntityItem      = "item"
	EntityWarehouse = "warehouse"
	EntityRecipe    = "recipe"
)

// ItemRef is a line reference to an item.
func ItemRef(itemID id.ID, line int) Reference {
	return Reference{Entity: EntityItem, ID: itemID, Line: line}
}

// WarehouseRef is a header reference to a warehouse.
func WarehouseRef(warehouseID id.ID) Reference {
	return Reference{Entity: EntityWarehouse, ID: warehouseID, Line: -1}
}

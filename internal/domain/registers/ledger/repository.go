// Package ledger is the movement log: one entry per (document type, document,
// warehouse, item) recording the net quantity change a document applied.
package ledger

import (
	"context"

	"konditer/internal/core/entity"
	"konditer/internal/core/id"
)

// Repository persists movement entries.
type Repository interface {
	// Upsert writes entries; an existing entry with the same
	// (document_type, document_id, warehouse_id, item_id) is replaced.
	Upsert(ctx context.Context, entries []entity.MovementEntry) error

	// List returns the entries of one key ordered by recorded_at, oldest first.
	List(ctx context.Context, warehouseID, itemID id.ID) ([]entity.MovementEntry, error)

	// ListAll returns every entry ordered by recorded_at.
	ListAll(ctx context.Context) ([]entity.MovementEntry, error)

	// ListByDocument returns the entries written by one document.
	ListByDocument(ctx context.Context, ref entity.DocumentRef) ([]entity.MovementEntry, error)

	// DeleteByDocument physically removes the entries of one document.
	DeleteByDocument(ctx context.Context, ref entity.DocumentRef) (int64, error)
}

// StatusResolver reports the current status of documents of one type.
// Documents that no longer exist are absent from the result.
type StatusResolver interface {
	Statuses(ctx context.Context, docType entity.DocumentType, ids []id.ID) (map[id.ID]entity.Status, error)
}

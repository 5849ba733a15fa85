// Package documents holds the create/read/update/delete flow shared by every
// stock document and hands lifecycle transitions to the posting engine.
package documents

import (
	"context"
	"time"

	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/domain"
	"konditer/internal/domain/documents/posting"
)

// Document is the constraint on document types managed by Service.
type Document interface {
	posting.Postable
	posting.Cancellable

	SetNumber(number string)
	GetDate() time.Time
	CanModify() error
	Touch(now time.Time, actor string)
}

// Repository persists one document type together with its lines.
type Repository[T Document] interface {
	Create(ctx context.Context, doc T) error
	GetByID(ctx context.Context, docID id.ID) (T, error)

	// GetForUpdate loads the document and locks its row until the transaction ends.
	GetForUpdate(ctx context.Context, docID id.ID) (T, error)

	// Update writes header and lines with optimistic locking on version.
	Update(ctx context.Context, doc T) error

	Delete(ctx context.Context, docID id.ID) error
	List(ctx context.Context, filter ListFilter) (domain.ListResult[T], error)

	// Statuses returns the status of each existing document among ids.
	Statuses(ctx context.Context, ids []id.ID) (map[id.ID]entity.Status, error)
}

// ListFilter narrows document lists.
type ListFilter struct {
	domain.ListFilter

	Status      *entity.Status
	WarehouseID *id.ID
	DateFrom    *time.Time
	DateTo      *time.Time
}

package entity

import (
	"context"
	"time"

	"konditer/internal/core/id"
)

// Validatable is implemented by entities that check their own invariants
// without touching storage.
type Validatable interface {
	Validate(ctx context.Context) error
}

// BaseEntity contains the fields shared by catalogs and documents.
type BaseEntity struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id" json:"id"`

	// Version for optimistic locking (incremented on each update)
	Version int `db:"version" json:"version"`
}

// NewBaseEntity creates a new BaseEntity with generated ID.
func NewBaseEntity() BaseEntity {
	return BaseEntity{
		ID:      id.New(),
		Version: 1,
	}
}

// GetID returns the entity ID.
func (b *BaseEntity) GetID() id.ID {
	return b.ID
}

// GetVersion returns the optimistic-lock version.
func (b *BaseEntity) GetVersion() int {
	return b.Version
}

// SetVersion is called by repositories after a successful write.
func (b *BaseEntity) SetVersion(v int) {
	b.Version = v
}

// BaseDocument extends BaseEntity with audit fields for documents.
type BaseDocument struct {
	BaseEntity

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`
	UpdatedBy string    `db:"updated_by" json:"updatedBy,omitempty"`
}

// NewBaseDocument creates a BaseDocument stamped with now.
func NewBaseDocument(now time.Time, actor string) BaseDocument {
	return BaseDocument{
		BaseEntity: NewBaseEntity(),
		CreatedAt:  now,
		UpdatedAt:  now,
		CreatedBy:  actor,
		UpdatedBy:  actor,
	}
}

// Touch records a modification.
func (b *BaseDocument) Touch(now time.Time, actor string) {
	b.UpdatedAt = now
	if actor != "" {
		b.UpdatedBy = actor
	}
}

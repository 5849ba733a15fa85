// Package domain holds the contracts shared by catalog and document services.
package domain

import (
	"context"

	"konditer/internal/core/entity"
	"konditer/internal/core/id"
)

// ListFilter contains common filtering options for list operations.
type ListFilter struct {
	// Search matches code, name or number (case-insensitive substring)
	Search string

	// IDs filters by specific IDs
	IDs []id.ID

	// IncludeInactive includes catalog entries with is_active = false
	IncludeInactive bool

	// OrderBy specifies sorting (e.g., "name", "-created_at")
	OrderBy string

	Limit  int
	Offset int
}

// DefaultListFilter returns sensible defaults.
func DefaultListFilter() ListFilter {
	return ListFilter{Limit: 50}
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// CatalogRepository defines persistence for reference-book entries.
type CatalogRepository[T entity.Validatable] interface {
	Create(ctx context.Context, entity T) error

	GetByID(ctx context.Context, id id.ID) (T, error)

	// Update modifies an existing entity with optimistic locking on version
	Update(ctx context.Context, entity T) error

	List(ctx context.Context, filter ListFilter) (ListResult[T], error)
}

// HookEvent represents lifecycle event type.
type HookEvent string

const (
	BeforeCreate HookEvent = "before_create"
	BeforeUpdate HookEvent = "before_update"
	AfterSave    HookEvent = "after_save"
)

// Hook is a function that runs at specific lifecycle points.
type Hook[T any] func(ctx context.Context, entity T) error

// HookRegistry stores lifecycle hooks for an entity type.
type HookRegistry[T any] struct {
	hooks map[HookEvent][]Hook[T]
}

// NewHookRegistry creates an empty hook registry.
func NewHookRegistry[T any]() *HookRegistry[T] {
	return &HookRegistry[T]{hooks: make(map[HookEvent][]Hook[T])}
}

// On registers a hook for the specified event.
func (r *HookRegistry[T]) On(event HookEvent, hook Hook[T]) {
	r.hooks[event] = append(r.hooks[event], hook)
}

// Run executes all hooks for the specified event, stopping at the first error.
func (r *HookRegistry[T]) Run(ctx context.Context, event HookEvent, entity T) error {
	for _, hook := range r.hooks[event] {
		if err := hook(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}

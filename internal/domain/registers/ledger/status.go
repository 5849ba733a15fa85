package ledger

import (
	"context"
	"fmt"
	"sync"

	"konditer/internal/core/entity"
	"konditer/internal/core/id"
)

// StatusSource reports the status of documents of a single type.
type StatusSource interface {
	Statuses(ctx context.Context, ids []id.ID) (map[id.ID]entity.Status, error)
}

// StatusRegistry dispatches status lookups to the source registered for each
// document type.
type StatusRegistry struct {
	mu      sync.RWMutex
	sources map[entity.DocumentType]StatusSource
}

// NewStatusRegistry creates an empty registry.
func NewStatusRegistry() *StatusRegistry {
	return &StatusRegistry{sources: make(map[entity.DocumentType]StatusSource)}
}

// Register binds a document type to its status source.
func (r *StatusRegistry) Register(t entity.DocumentType, src StatusSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[t] = src
}

// Statuses implements StatusResolver.
func (r *StatusRegistry) Statuses(ctx context.Context, t entity.DocumentType, ids []id.ID) (map[id.ID]entity.Status, error) {
	r.mu.RLock()
	src, ok := r.sources[t]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no status source for document type %q", t)
	}
	return src.Statuses(ctx, ids)
}

var _ StatusResolver = (*StatusRegistry)(nil)

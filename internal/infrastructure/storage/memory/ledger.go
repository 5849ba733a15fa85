package memory

import (
	"context"
	"sync"

	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/domain/registers/ledger"
)

type ledgerKey struct {
	ref entity.DocumentRef
	bk  entity.BalanceKey
}

// LedgerRepo implements ledger.Repository with the same uniqueness as the
// database: one entry per (document_type, document_id, warehouse, item).
type LedgerRepo struct {
	mu      sync.RWMutex
	entries []entity.MovementEntry
}

// NewLedgerRepo creates a movement table in store.
func NewLedgerRepo(store *Store) *LedgerRepo {
	r := &LedgerRepo{}
	store.register(r)
	return r
}

func (r *LedgerRepo) snapshot() func() {
	r.mu.RLock()
	saved := append([]entity.MovementEntry(nil), r.entries...)
	r.mu.RUnlock()
	return func() {
		r.mu.Lock()
		r.entries = saved
		r.mu.Unlock()
	}
}

func (r *LedgerRepo) Upsert(_ context.Context, entries []entity.MovementEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	index := make(map[ledgerKey]int, len(r.entries))
	for i, e := range r.entries {
		index[ledgerKey{ref: e.Ref(), bk: e.Key()}] = i
	}
	for _, e := range entries {
		k := ledgerKey{ref: e.Ref(), bk: e.Key()}
		if i, ok := index[k]; ok {
			e.ID = r.entries[i].ID
			r.entries[i] = e
			continue
		}
		index[k] = len(r.entries)
		r.entries = append(r.entries, e)
	}
	return nil
}

func (r *LedgerRepo) List(_ context.Context, warehouseID, itemID id.ID) ([]entity.MovementEntry, error) {
	return r.filter(func(e entity.MovementEntry) bool {
		return e.WarehouseID == warehouseID && e.ItemID == itemID
	}), nil
}

func (r *LedgerRepo) ListAll(context.Context) ([]entity.MovementEntry, error) {
	return r.filter(func(entity.MovementEntry) bool { return true }), nil
}

func (r *LedgerRepo) ListByDocument(_ context.Context, ref entity.DocumentRef) ([]entity.MovementEntry, error) {
	return r.filter(func(e entity.MovementEntry) bool { return e.Ref() == ref }), nil
}

func (r *LedgerRepo) DeleteByDocument(_ context.Context, ref entity.DocumentRef) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := make([]entity.MovementEntry, 0, len(r.entries))
	var n int64
	for _, e := range r.entries {
		if e.Ref() == ref {
			n++
			continue
		}
		kept = append(kept, e)
	}
	r.entries = kept
	return n, nil
}

func (r *LedgerRepo) filter(keep func(entity.MovementEntry) bool) []entity.MovementEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []entity.MovementEntry
	for _, e := range r.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	ledger.SortByTime(out)
	return out
}

var _ ledger.Repository = (*LedgerRepo)(nil)

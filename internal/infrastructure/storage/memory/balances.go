package memory

import (
	"context"
	"sort"
	"sync"

	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/core/types"
	"konditer/internal/domain/registers/stock"
)

// BalanceRepo implements stock.Repository.
type BalanceRepo struct {
	mu   sync.RWMutex
	rows map[entity.BalanceKey]entity.Balance
}

// NewBalanceRepo creates a balance table in store.
func NewBalanceRepo(store *Store) *BalanceRepo {
	r := &BalanceRepo{rows: make(map[entity.BalanceKey]entity.Balance)}
	store.register(r)
	return r
}

func (r *BalanceRepo) snapshot() func() {
	r.mu.RLock()
	saved := make(map[entity.BalanceKey]entity.Balance, len(r.rows))
	for k, v := range r.rows {
		saved[k] = v
	}
	r.mu.RUnlock()
	return func() {
		r.mu.Lock()
		r.rows = saved
		r.mu.Unlock()
	}
}

func (r *BalanceRepo) Get(_ context.Context, warehouseID, itemID id.ID) (entity.Balance, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.rows[entity.BalanceKey{WarehouseID: warehouseID, ItemID: itemID}]
	return b, ok, nil
}

func (r *BalanceRepo) GetForUpdate(_ context.Context, warehouseID, itemID id.ID) (entity.Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := entity.BalanceKey{WarehouseID: warehouseID, ItemID: itemID}
	b, ok := r.rows[k]
	if !ok {
		b = entity.Balance{WarehouseID: warehouseID, ItemID: itemID, UnitCost: types.Zero()}
		r.rows[k] = b
	}
	return b, nil
}

func (r *BalanceRepo) Save(_ context.Context, b entity.Balance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[b.Key()] = b
	return nil
}

func (r *BalanceRepo) ListByWarehouse(_ context.Context, warehouseID id.ID) ([]entity.Balance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []entity.Balance
	for k, b := range r.rows {
		if k.WarehouseID == warehouseID {
			out = append(out, b)
		}
	}
	sortBalances(out)
	return out, nil
}

func (r *BalanceRepo) ListAll(context.Context) ([]entity.Balance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entity.Balance, 0, len(r.rows))
	for _, b := range r.rows {
		out = append(out, b)
	}
	sortBalances(out)
	return out, nil
}

// LockAll is a no-op: transactions already hold the store lock.
func (r *BalanceRepo) LockAll(context.Context) error { return nil }

func sortBalances(bs []entity.Balance) {
	sort.Slice(bs, func(i, j int) bool {
		if bs[i].WarehouseID != bs[j].WarehouseID {
			return bs[i].WarehouseID.String() < bs[j].WarehouseID.String()
		}
		return bs[i].ItemID.String() < bs[j].ItemID.String()
	})
}

var _ stock.Repository = (*BalanceRepo)(nil)

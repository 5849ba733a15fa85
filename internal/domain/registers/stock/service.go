package stock

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"konditer/internal/core/apperror"
	"konditer/internal/core/clock"
	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/core/types"
	"konditer/internal/domain/costing"
	"konditer/pkg/logger"
)

// Delta is a signed quantity change for one balance. CostHint is the incoming
// unit cost of a receipt; consuming deltas leave it nil.
type Delta struct {
	WarehouseID id.ID
	ItemID      id.ID
	Quantity    types.Quantity
	CostHint    *types.Money
}

// Change reports a balance before and after a write.
type Change struct {
	Key    entity.BalanceKey
	Before entity.BalanceSnapshot
	After  entity.BalanceSnapshot
}

// Requirement is a consuming line checked before any delta is applied.
type Requirement struct {
	Line        int
	WarehouseID id.ID
	ItemID      id.ID
	Quantity    types.Quantity
}

// Service implements the balance store on top of a Repository. Transactions are
// owned by the caller (the posting engine or reconciliation).
type Service struct {
	repo  Repository
	clock clock.Clock
}

// NewService creates a new balance store.
func NewService(repo Repository, clk clock.Clock) *Service {
	return &Service{repo: repo, clock: clk}
}

// Get returns the balance of (warehouse, item); a zero balance when none exists.
func (s *Service) Get(ctx context.Context, warehouseID, itemID id.ID) (entity.Balance, error) {
	b, found, err := s.repo.Get(ctx, warehouseID, itemID)
	if err != nil {
		return entity.Balance{}, fmt.Errorf("get balance: %w", err)
	}
	if !found {
		return entity.Balance{WarehouseID: warehouseID, ItemID: itemID, UnitCost: types.Zero()}, nil
	}
	return b, nil
}

// ListByWarehouse returns the balances of one warehouse.
func (s *Service) ListByWarehouse(ctx context.Context, warehouseID id.ID) ([]entity.Balance, error) {
	return s.repo.ListByWarehouse(ctx, warehouseID)
}

// Lock takes row locks on every key in a fixed order so that two documents
// touching the same balances cannot deadlock.
func (s *Service) Lock(ctx context.Context, keys []entity.BalanceKey) error {
	sorted := append([]entity.BalanceKey(nil), keys...)
	sort.Slice(sorted, func(i, j int) bool { return keyLess(sorted[i], sorted[j]) })
	var prev *entity.BalanceKey
	for i := range sorted {
		if prev != nil && *prev == sorted[i] {
			continue
		}
		if _, err := s.repo.GetForUpdate(ctx, sorted[i].WarehouseID, sorted[i].ItemID); err != nil {
			return fmt.Errorf("lock balance: %w", err)
		}
		prev = &sorted[i]
	}
	return nil
}

// GetForUpdate returns the balance locked until the transaction ends.
func (s *Service) GetForUpdate(ctx context.Context, warehouseID, itemID id.ID) (entity.Balance, error) {
	b, err := s.repo.GetForUpdate(ctx, warehouseID, itemID)
	if err != nil {
		return entity.Balance{}, fmt.Errorf("get balance for update: %w", err)
	}
	return b, nil
}

// Available returns the locked on-hand quantity.
func (s *Service) Available(ctx context.Context, warehouseID, itemID id.ID) (types.Quantity, error) {
	b, err := s.GetForUpdate(ctx, warehouseID, itemID)
	if err != nil {
		return 0, err
	}
	return b.Quantity, nil
}

// CheckAvailability rejects the whole set when any key is short. Requirements on
// the same key are summed; the error names the first line of the short key.
func (s *Service) CheckAvailability(ctx context.Context, reqs []Requirement) error {
	type need struct {
		line int
		qty  types.Quantity
	}
	totals := make(map[entity.BalanceKey]*need)
	order := make([]entity.BalanceKey, 0, len(reqs))
	for _, r := range reqs {
		k := entity.BalanceKey{WarehouseID: r.WarehouseID, ItemID: r.ItemID}
		if n, ok := totals[k]; ok {
			n.qty += r.Quantity
			continue
		}
		totals[k] = &need{line: r.Line, qty: r.Quantity}
		order = append(order, k)
	}

	for _, k := range order {
		n := totals[k]
		available, err := s.Available(ctx, k.WarehouseID, k.ItemID)
		if err != nil {
			return err
		}
		if n.qty > available {
			return apperror.NewShortage(k.WarehouseID.String(), k.ItemID.String(), n.qty.String(), available.String()).
				WithLine(n.line)
		}
	}
	return nil
}

// ApplyDelta adds d.Quantity to the balance. A positive delta with a cost hint
// recomputes the moving average; quantity never drops below zero.
func (s *Service) ApplyDelta(ctx context.Context, d Delta) (Change, error) {
	b, err := s.repo.GetForUpdate(ctx, d.WarehouseID, d.ItemID)
	if err != nil {
		return Change{}, fmt.Errorf("get balance for update: %w", err)
	}
	change := Change{Key: b.Key(), Before: b.Snapshot()}

	if d.Quantity.IsPositive() && d.CostHint != nil {
		b.UnitCost = costing.MovingAverage(b.Quantity, b.UnitCost, d.Quantity, *d.CostHint)
	}
	next := b.Quantity + d.Quantity
	if next.IsNegative() {
		logger.Warn(ctx, "balance clamped at zero",
			"warehouse_id", d.WarehouseID, "item_id", d.ItemID,
			"quantity", b.Quantity.String(), "delta", d.Quantity.String())
		next = 0
	}
	b.Quantity = next

	if err := s.save(ctx, &b); err != nil {
		return Change{}, err
	}
	change.After = b.Snapshot()
	return change, nil
}

// Restore overwrites the balance with an exact snapshot.
func (s *Service) Restore(ctx context.Context, key entity.BalanceKey, snap entity.BalanceSnapshot) (Change, error) {
	b, err := s.repo.GetForUpdate(ctx, key.WarehouseID, key.ItemID)
	if err != nil {
		return Change{}, fmt.Errorf("get balance for update: %w", err)
	}
	change := Change{Key: key, Before: b.Snapshot()}
	b.Quantity = snap.Quantity.Floor()
	b.UnitCost = snap.UnitCost
	if err := s.save(ctx, &b); err != nil {
		return Change{}, err
	}
	change.After = b.Snapshot()
	return change, nil
}

// SetQuantity overwrites the quantity of a balance, keeping its cost.
func (s *Service) SetQuantity(ctx context.Context, key entity.BalanceKey, qty types.Quantity) (Change, error) {
	b, err := s.GetForUpdate(ctx, key.WarehouseID, key.ItemID)
	if err != nil {
		return Change{}, err
	}
	return s.Restore(ctx, key, entity.BalanceSnapshot{Quantity: qty, UnitCost: b.UnitCost})
}

// ListAll returns every balance.
func (s *Service) ListAll(ctx context.Context) ([]entity.Balance, error) {
	return s.repo.ListAll(ctx)
}

// LockAll blocks every other balance writer until the transaction ends.
func (s *Service) LockAll(ctx context.Context) error {
	return s.repo.LockAll(ctx)
}

func (s *Service) save(ctx context.Context, b *entity.Balance) error {
	now := s.clock.Now()
	b.LastMovementAt = &now
	b.UpdatedAt = now
	if err := s.repo.Save(ctx, *b); err != nil {
		return fmt.Errorf("save balance: %w", err)
	}
	return nil
}

func keyLess(a, b entity.BalanceKey) bool {
	if c := bytes.Compare(a.WarehouseID[:], b.WarehouseID[:]); c != 0 {
		return c < 0
	}
	return bytes.Compare(a.ItemID[:], b.ItemID[:]) < 0
}

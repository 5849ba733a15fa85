package posting

import (
	"context"
	"time"

	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/core/types"
	"konditer/internal/domain/registers/stock"
)

// Session is handed to Post and Unpost. It applies balance changes and
// collects one movement entry per touched key.
type Session struct {
	stock *stock.Service
	doc   Document
	actor string
	now   time.Time

	entries map[entity.BalanceKey]*entity.MovementEntry
	order   []entity.BalanceKey
	emitted []string
}

func newSession(st *stock.Service, doc Document, actor string, now time.Time) *Session {
	return &Session{
		stock:   st,
		doc:     doc,
		actor:   actor,
		now:     now,
		entries: make(map[entity.BalanceKey]*entity.MovementEntry),
	}
}

// Now is the transition timestamp.
func (s *Session) Now() time.Time { return s.now }

// Actor is the user performing the transition.
func (s *Session) Actor() string { return s.actor }

// Emit queues a document transition event of eventType for publication
// with the transaction.
func (s *Session) Emit(eventType string) {
	s.emitted = append(s.emitted, eventType)
}

// Balance returns a locked balance.
func (s *Session) Balance(ctx context.Context, warehouseID, itemID id.ID) (entity.Balance, error) {
	return s.stock.GetForUpdate(ctx, warehouseID, itemID)
}

// Require rejects the transition with a ShortageError if any requirement
// exceeds its balance.
func (s *Session) Require(ctx context.Context, reqs []stock.Requirement) error {
	return s.stock.CheckAvailability(ctx, reqs)
}

// Receive adds qty at unitCost, updating the moving average.
func (s *Session) Receive(ctx context.Context, warehouseID, itemID id.ID, qty types.Quantity, unitCost types.Money) (stock.Change, error) {
	return s.apply(ctx, stock.Delta{WarehouseID: warehouseID, ItemID: itemID, Quantity: qty, CostHint: &unitCost})
}

// Consume removes qty, keeping the unit cost.
func (s *Session) Consume(ctx context.Context, warehouseID, itemID id.ID, qty types.Quantity) (stock.Change, error) {
	return s.apply(ctx, stock.Delta{WarehouseID: warehouseID, ItemID: itemID, Quantity: qty.Neg()})
}

// Adjust applies a signed delta without a cost hint.
func (s *Session) Adjust(ctx context.Context, warehouseID, itemID id.ID, delta types.Quantity) (stock.Change, error) {
	return s.apply(ctx, stock.Delta{WarehouseID: warehouseID, ItemID: itemID, Quantity: delta})
}

// Restore writes an exact snapshot.
func (s *Session) Restore(ctx context.Context, key entity.BalanceKey, snap entity.BalanceSnapshot) (stock.Change, error) {
	change, err := s.stock.Restore(ctx, key, snap)
	if err != nil {
		return stock.Change{}, err
	}
	s.record(change)
	return change, nil
}

func (s *Session) apply(ctx context.Context, d stock.Delta) (stock.Change, error) {
	change, err := s.stock.ApplyDelta(ctx, d)
	if err != nil {
		return stock.Change{}, err
	}
	s.record(change)
	return change, nil
}

func (s *Session) record(change stock.Change) {
	delta := change.After.Quantity - change.Before.Quantity

	if e, ok := s.entries[change.Key]; ok {
		e.QuantityDelta += delta
		e.QuantityAfter = change.After.Quantity
		return
	}
	s.entries[change.Key] = &entity.MovementEntry{
		ID:             id.New(),
		WarehouseID:    change.Key.WarehouseID,
		ItemID:         change.Key.ItemID,
		QuantityDelta:  delta,
		QuantityAfter:  change.After.Quantity,
		DocumentType:   s.doc.DocumentType(),
		DocumentID:     s.doc.GetID(),
		DocumentNumber: s.doc.GetNumber(),
		RecordedAt:     s.now,
		Actor:          s.actor,
	}
	s.order = append(s.order, change.Key)
}

// Entries returns the collected movements in the order keys were first touched.
func (s *Session) Entries() []entity.MovementEntry {
	out := make([]entity.MovementEntry, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, *s.entries[k])
	}
	return out
}

// Warehouses returns the warehouses whose balances were written.
func (s *Session) Warehouses() []id.ID {
	seen := make(map[id.ID]bool, len(s.order))
	out := make([]id.ID, 0, len(s.order))
	for _, k := range s.order {
		if !seen[k.WarehouseID] {
			seen[k.WarehouseID] = true
			out = append(out, k.WarehouseID)
		}
	}
	return out
}

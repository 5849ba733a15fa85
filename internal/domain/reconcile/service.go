// Package reconcile rebuilds balance quantities from the movement ledger.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"konditer/internal/core/clock"
	appctx "konditer/internal/core/context"
	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/core/tx"
	"konditer/internal/core/types"
	"konditer/internal/domain/audit"
	"konditer/internal/domain/registers/ledger"
	"konditer/internal/domain/registers/stock"
	"konditer/pkg/logger"
)

// Summary reports what a recompute changed.
type Summary struct {
	Updated   int `json:"updated"`
	Created   int `json:"created"`
	Unchanged int `json:"unchanged"`
	Orphaned  int `json:"orphaned"`
}

// LedgerReader lists every movement entry.
type LedgerReader interface {
	ListAll(ctx context.Context) ([]entity.MovementEntry, error)
}

// Service replays the ledger onto balances.
type Service struct {
	txm     tx.SerializableManager
	stock   *stock.Service
	entries LedgerReader
	ledger  *ledger.Service
	auditor audit.Recorder
	clock   clock.Clock
}

// NewService creates a reconciliation service.
func NewService(
	txm tx.SerializableManager,
	st *stock.Service,
	entries LedgerReader,
	led *ledger.Service,
	auditor audit.Recorder,
	clk clock.Clock,
) *Service {
	return &Service{txm: txm, stock: st, entries: entries, ledger: led, auditor: auditor, clock: clk}
}

// RecomputeBalances sets every balance quantity to the sum of its applied
// movement entries. Orphaned entries are logged and skipped; balances with no
// applied entries are zeroed. Unit costs are left as they are. Running it
// twice without intervening movements changes nothing the second time.
func (s *Service) RecomputeBalances(ctx context.Context) (Summary, error) {
	started := time.Now()
	var summary Summary

	err := s.txm.RunSerializable(ctx, func(ctx context.Context) error {
		summary = Summary{}
		if err := s.stock.LockAll(ctx); err != nil {
			return fmt.Errorf("lock balances: %w", err)
		}

		all, err := s.entries.ListAll(ctx)
		if err != nil {
			return fmt.Errorf("list movements: %w", err)
		}
		applied, orphans, err := s.ledger.Applied(ctx, ledger.Collapse(all))
		if err != nil {
			return err
		}
		for _, o := range orphans {
			logger.Warn(ctx, "orphaned movement excluded from recompute",
				"document_type", o.DocumentType,
				"document_id", o.DocumentID,
				"warehouse_id", o.WarehouseID,
				"item_id", o.ItemID,
				"quantity_delta", o.QuantityDelta.String())
		}
		summary.Orphaned = len(orphans)

		target := make(map[entity.BalanceKey]types.Quantity)
		var order []entity.BalanceKey
		for _, e := range applied {
			if _, ok := target[e.Key()]; !ok {
				order = append(order, e.Key())
			}
			target[e.Key()] += e.QuantityDelta
		}

		existing, err := s.stock.ListAll(ctx)
		if err != nil {
			return fmt.Errorf("list balances: %w", err)
		}
		current := make(map[entity.BalanceKey]entity.Balance, len(existing))
		for _, b := range existing {
			current[b.Key()] = b
			if _, ok := target[b.Key()]; !ok {
				target[b.Key()] = 0
				order = append(order, b.Key())
			}
		}

		for _, key := range order {
			qty := target[key]
			if qty.IsNegative() {
				logger.Warn(ctx, "ledger sum below zero, balance set to zero",
					"warehouse_id", key.WarehouseID,
					"item_id", key.ItemID,
					"sum", qty.String())
				qty = 0
			}
			b, found := current[key]
			switch {
			case !found:
				summary.Created++
			case b.Quantity == qty:
				summary.Unchanged++
				continue
			default:
				summary.Updated++
			}
			if _, err := s.stock.SetQuantity(ctx, key, qty); err != nil {
				return err
			}
		}

		return s.record(ctx, summary)
	})
	if err != nil {
		return Summary{}, err
	}

	logger.Info(ctx, "balances recomputed from ledger",
		"updated", summary.Updated,
		"created", summary.Created,
		"unchanged", summary.Unchanged,
		"orphaned", summary.Orphaned,
		"duration_ms", time.Since(started).Milliseconds())
	return summary, nil
}

func (s *Service) record(ctx context.Context, summary Summary) error {
	if s.auditor == nil {
		return nil
	}
	actor := appctx.GetUserID(ctx)
	if actor == "" {
		actor = appctx.SystemUserID
	}
	return s.auditor.Record(ctx, audit.Record{
		EntityType: "balances",
		EntityID:   id.Nil,
		Action:     audit.ActionRecompute,
		Actor:      actor,
		Changes:    summary,
		At:         s.clock.Now(),
	})
}

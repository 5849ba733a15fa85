package lowstock

import (
	"context"
	"fmt"
	"time"

	"konditer/internal/core/clock"
	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/core/types"
	"konditer/internal/domain/catalogs/item"
	"konditer/pkg/logger"
)

// SuppressFor is how long an alert for one (warehouse, item) stays silent.
const SuppressFor = 24 * time.Hour

// Alert is one balance below its minimum.
type Alert struct {
	WarehouseID id.ID          `json:"warehouseId"`
	ItemID      id.ID          `json:"itemId"`
	ItemCode    string         `json:"itemCode"`
	ItemName    string         `json:"itemName"`
	Quantity    types.Quantity `json:"quantity"`
	MinStock    types.Quantity `json:"minStock"`
	RaisedAt    time.Time      `json:"raisedAt"`
}

// Notifier delivers alerts.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// Deduper grants the right to send an alert for key once per ttl.
type Deduper interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// BalanceLister reads balances.
type BalanceLister interface {
	ListByWarehouse(ctx context.Context, warehouseID id.ID) ([]entity.Balance, error)
	ListAll(ctx context.Context) ([]entity.Balance, error)
}

// ItemLoader reads items by id.
type ItemLoader interface {
	GetMany(ctx context.Context, ids []id.ID) (map[id.ID]*item.Item, error)
}

// Checker evaluates the low-stock rule.
type Checker struct {
	balances BalanceLister
	items    ItemLoader
	rule     *Rule
	dedup    Deduper
	notifier Notifier
	clock    clock.Clock
	suppress time.Duration
}

// NewChecker creates a checker.
func NewChecker(balances BalanceLister, items ItemLoader, rule *Rule, dedup Deduper, notifier Notifier, clk clock.Clock) *Checker {
	return &Checker{
		balances: balances,
		items:    items,
		rule:     rule,
		dedup:    dedup,
		notifier: notifier,
		clock:    clk,
		suppress: SuppressFor,
	}
}

// SuppressAlertsFor overrides SuppressFor. Non-positive values are ignored.
func (c *Checker) SuppressAlertsFor(d time.Duration) {
	if d > 0 {
		c.suppress = d
	}
}

// Check evaluates every balance of warehouseID (all warehouses when nil) and
// notifies about new shortfalls. It returns the number of alerts sent.
func (c *Checker) Check(ctx context.Context, warehouseID *id.ID) (int, error) {
	var (
		balances []entity.Balance
		err      error
	)
	if warehouseID != nil {
		balances, err = c.balances.ListByWarehouse(ctx, *warehouseID)
	} else {
		balances, err = c.balances.ListAll(ctx)
	}
	if err != nil {
		return 0, fmt.Errorf("list balances: %w", err)
	}
	if len(balances) == 0 {
		return 0, nil
	}

	ids := make([]id.ID, len(balances))
	for i, b := range balances {
		ids[i] = b.ItemID
	}
	items, err := c.items.GetMany(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("load items: %w", err)
	}

	sent := 0
	for _, b := range balances {
		it, ok := items[b.ItemID]
		if !ok || !it.IsActive || !it.MinStock.IsPositive() {
			continue
		}
		low, err := c.rule.Matches(b.Quantity.Float64(), it.MinStock.Float64(), string(it.Kind))
		if err != nil {
			return sent, err
		}
		if !low {
			continue
		}

		first, err := c.dedup.Acquire(ctx, dedupKey(b.Key()), c.suppress)
		if err != nil {
			return sent, fmt.Errorf("dedup low-stock alert: %w", err)
		}
		if !first {
			continue
		}
		alert := Alert{
			WarehouseID: b.WarehouseID,
			ItemID:      b.ItemID,
			ItemCode:    it.Code,
			ItemName:    it.Name,
			Quantity:    b.Quantity,
			MinStock:    it.MinStock,
			RaisedAt:    c.clock.Now(),
		}
		if err := c.notifier.Notify(ctx, alert); err != nil {
			return sent, fmt.Errorf("notify low stock: %w", err)
		}
		sent++
	}
	return sent, nil
}

func dedupKey(k entity.BalanceKey) string {
	return "lowstock:" + k.WarehouseID.String() + ":" + k.ItemID.String()
}

// LogNotifier writes alerts to the log.
type LogNotifier struct{}

// Notify implements Notifier.
func (LogNotifier) Notify(ctx context.Context, a Alert) error {
	logger.Warn(ctx, "low stock",
		"warehouse_id", a.WarehouseID,
		"item_id", a.ItemID,
		"item_code", a.ItemCode,
		"item_name", a.ItemName,
		"quantity", a.Quantity.String(),
		"min_stock", a.MinStock.String())
	return nil
}

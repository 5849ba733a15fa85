// Package register_repo provides PostgreSQL implementations of the balance
// store and the movement ledger.
package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/core/types"
	"konditer/internal/domain/registers/stock"
	"konditer/internal/infrastructure/storage/postgres"
)

const (
	stockMovementsTable = "reg_stock_movements"
	stockBalancesTable  = "reg_stock_balances"
)

var balanceColumns = []string{
	"warehouse_id", "item_id", "quantity", "unit_cost", "last_movement_at", "updated_at",
}

// BalanceRepo implements stock.Repository.
type BalanceRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewBalanceRepo creates a balance repository.
func NewBalanceRepo(txm *postgres.TxManager) *BalanceRepo {
	return &BalanceRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Get returns the current balance without locking.
func (r *BalanceRepo) Get(ctx context.Context, warehouseID, itemID id.ID) (entity.Balance, bool, error) {
	sql, args, err := r.builder.Select(balanceColumns...).
		From(stockBalancesTable).
		Where(squirrel.Eq{"warehouse_id": warehouseID, "item_id": itemID}).
		ToSql()
	if err != nil {
		return entity.Balance{}, false, fmt.Errorf("build query: %w", err)
	}

	var b entity.Balance
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &b, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return entity.Balance{WarehouseID: warehouseID, ItemID: itemID, UnitCost: types.Zero()}, false, nil
		}
		return b, false, fmt.Errorf("get balance: %w", err)
	}
	return b, true, nil
}

// GetForUpdate creates a zero row when none exists and locks it.
func (r *BalanceRepo) GetForUpdate(ctx context.Context, warehouseID, itemID id.ID) (entity.Balance, error) {
	q := r.txm.GetQuerier(ctx)

	_, err := q.Exec(ctx, `
		INSERT INTO reg_stock_balances (warehouse_id, item_id, quantity, unit_cost, updated_at)
		VALUES ($1, $2, 0, 0, now())
		ON CONFLICT (warehouse_id, item_id) DO NOTHING`,
		warehouseID, itemID)
	if err != nil {
		return entity.Balance{}, fmt.Errorf("ensure balance row: %w", err)
	}

	var b entity.Balance
	err = pgxscan.Get(ctx, q, &b, `
		SELECT warehouse_id, item_id, quantity, unit_cost, last_movement_at, updated_at
		FROM reg_stock_balances
		WHERE warehouse_id = $1 AND item_id = $2
		FOR UPDATE`,
		warehouseID, itemID)
	if err != nil {
		return b, fmt.Errorf("get balance for update: %w", err)
	}
	return b, nil
}

// Save upserts the balance row.
func (r *BalanceRepo) Save(ctx context.Context, b entity.Balance) error {
	sql, args, err := r.builder.Insert(stockBalancesTable).
		Columns(balanceColumns...).
		Values(b.WarehouseID, b.ItemID, b.Quantity, b.UnitCost, b.LastMovementAt, b.UpdatedAt).
		Suffix(`ON CONFLICT (warehouse_id, item_id) DO UPDATE SET
			quantity = EXCLUDED.quantity,
			unit_cost = EXCLUDED.unit_cost,
			last_movement_at = EXCLUDED.last_movement_at,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("save balance: %w", err)
	}
	return nil
}

// ListByWarehouse returns the balances of one warehouse ordered by item.
func (r *BalanceRepo) ListByWarehouse(ctx context.Context, warehouseID id.ID) ([]entity.Balance, error) {
	return r.list(ctx, r.builder.Select(balanceColumns...).
		From(stockBalancesTable).
		Where(squirrel.Eq{"warehouse_id": warehouseID}).
		OrderBy("item_id"))
}

// ListAll returns every balance row.
func (r *BalanceRepo) ListAll(ctx context.Context) ([]entity.Balance, error) {
	return r.list(ctx, r.builder.Select(balanceColumns...).
		From(stockBalancesTable).
		OrderBy("warehouse_id", "item_id"))
}

func (r *BalanceRepo) list(ctx context.Context, q squirrel.SelectBuilder) ([]entity.Balance, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []entity.Balance
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	return out, nil
}

// LockAll blocks concurrent postings until the transaction ends.
// EXCLUSIVE mode still admits plain SELECTs.
func (r *BalanceRepo) LockAll(ctx context.Context) error {
	if r.txm.GetTx(ctx) == nil {
		return fmt.Errorf("LockAll requires transaction context")
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, "LOCK TABLE reg_stock_balances IN EXCLUSIVE MODE"); err != nil {
		return fmt.Errorf("lock balances: %w", err)
	}
	return nil
}

var _ stock.Repository = (*BalanceRepo)(nil)

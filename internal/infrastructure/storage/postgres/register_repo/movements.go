package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/domain/registers/ledger"
	"konditer/internal/infrastructure/storage/postgres"
)

var movementColumns = []string{
	"id", "warehouse_id", "item_id", "quantity_delta", "quantity_after",
	"document_type", "document_id", "document_number", "recorded_at", "actor",
}

const movementUpsertSQL = `
	INSERT INTO reg_stock_movements (
		id, warehouse_id, item_id, quantity_delta, quantity_after,
		document_type, document_id, document_number, recorded_at, actor
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (document_type, document_id, warehouse_id, item_id) DO UPDATE SET
		quantity_delta = EXCLUDED.quantity_delta,
		quantity_after = EXCLUDED.quantity_after,
		document_number = EXCLUDED.document_number,
		recorded_at = EXCLUDED.recorded_at,
		actor = EXCLUDED.actor`

// LedgerRepo implements ledger.Repository.
type LedgerRepo struct {
	txm     *postgres.TxManager
	batch   *postgres.BatchExecutor
	builder squirrel.StatementBuilderType
}

// NewLedgerRepo creates a movement ledger repository.
func NewLedgerRepo(txm *postgres.TxManager) *LedgerRepo {
	return &LedgerRepo{
		txm:     txm,
		batch:   postgres.NewBatchExecutor(txm),
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Upsert writes entries in one batch. A replaced entry keeps its original id.
func (r *LedgerRepo) Upsert(ctx context.Context, entries []entity.MovementEntry) error {
	if len(entries) == 0 {
		return nil
	}

	queries := make([]postgres.BatchQuery, 0, len(entries))
	for _, e := range entries {
		entryID := e.ID
		if id.IsNil(entryID) {
			entryID = id.New()
		}
		queries = append(queries, postgres.BatchQuery{
			SQL: movementUpsertSQL,
			Args: []any{
				entryID, e.WarehouseID, e.ItemID, e.QuantityDelta, e.QuantityAfter,
				e.DocumentType, e.DocumentID, e.DocumentNumber, e.RecordedAt, e.Actor,
			},
		})
	}

	if err := r.batch.ExecuteBatch(ctx, queries); err != nil {
		return fmt.Errorf("upsert movements: %w", err)
	}
	return nil
}

// List returns the entries of one (warehouse, item) key, oldest first.
func (r *LedgerRepo) List(ctx context.Context, warehouseID, itemID id.ID) ([]entity.MovementEntry, error) {
	return r.selectEntries(ctx, squirrel.Eq{"warehouse_id": warehouseID, "item_id": itemID})
}

// ListAll returns every entry.
func (r *LedgerRepo) ListAll(ctx context.Context) ([]entity.MovementEntry, error) {
	return r.selectEntries(ctx, nil)
}

// ListByDocument returns the entries written by one document.
func (r *LedgerRepo) ListByDocument(ctx context.Context, ref entity.DocumentRef) ([]entity.MovementEntry, error) {
	return r.selectEntries(ctx, squirrel.Eq{"document_type": ref.Type, "document_id": ref.ID})
}

// DeleteByDocument removes the entries of one document.
func (r *LedgerRepo) DeleteByDocument(ctx context.Context, ref entity.DocumentRef) (int64, error) {
	sql, args, err := r.builder.Delete(stockMovementsTable).
		Where(squirrel.Eq{"document_type": ref.Type, "document_id": ref.ID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("delete movements: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *LedgerRepo) selectEntries(ctx context.Context, where squirrel.Sqlizer) ([]entity.MovementEntry, error) {
	q := r.builder.Select(movementColumns...).From(stockMovementsTable)
	if where != nil {
		q = q.Where(where)
	}
	q = q.OrderBy("recorded_at", "id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []entity.MovementEntry
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return out, nil
}

var _ ledger.Repository = (*LedgerRepo)(nil)

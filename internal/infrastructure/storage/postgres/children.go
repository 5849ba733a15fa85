package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"konditer/internal/core/id"
)

// ChildTable maps one slice field of a parent entity (document lines, recipe
// items, production stages) onto its own table keyed by the parent id.
type ChildTable[P any] struct {
	Table string
	FK    string
	Order string

	columns []string
	rows    func(P) [][]any
	load    func(ctx context.Context, q Querier, sql string, args []any, parent P) error
}

// Children builds a ChildTable for child type C. Columns come from C's db tags.
func Children[P any, C any](table, fk, order string, get func(P) []C, set func(P, []C)) ChildTable[P] {
	cols := ExtractDBColumns[C]()
	return ChildTable[P]{
		Table:   table,
		FK:      fk,
		Order:   order,
		columns: cols,
		rows: func(p P) [][]any {
			items := get(p)
			rows := make([][]any, 0, len(items))
			for _, c := range items {
				rows = append(rows, RowValues(c, cols))
			}
			return rows
		},
		load: func(ctx context.Context, q Querier, sql string, args []any, p P) error {
			var items []C
			if err := pgxscan.Select(ctx, q, &items, sql, args...); err != nil {
				return err
			}
			set(p, items)
			return nil
		},
	}
}

// Load reads the children of parentID into parent.
func (c ChildTable[P]) Load(ctx context.Context, txm *TxManager, parentID id.ID, parent P) error {
	sql, args, err := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select(c.columns...).
		From(c.Table).
		Where(squirrel.Eq{c.FK: parentID}).
		OrderBy(c.Order).
		ToSql()
	if err != nil {
		return fmt.Errorf("build %s query: %w", c.Table, err)
	}

	if err := c.load(ctx, txm.GetQuerier(ctx), sql, args, parent); err != nil {
		return fmt.Errorf("load %s: %w", c.Table, err)
	}
	return nil
}

// Replace deletes the stored children of parentID and writes the current ones.
// Inside a transaction rows go through COPY, otherwise through one multi-row INSERT.
func (c ChildTable[P]) Replace(ctx context.Context, txm *TxManager, parentID id.ID, parent P) error {
	q := txm.GetQuerier(ctx)
	if _, err := q.Exec(ctx, "DELETE FROM "+c.Table+" WHERE "+c.FK+" = $1", parentID); err != nil {
		return fmt.Errorf("delete %s: %w", c.Table, err)
	}

	rows := c.rows(parent)
	if len(rows) == 0 {
		return nil
	}
	for i, col := range c.columns {
		if col == c.FK {
			for _, row := range rows {
				row[i] = parentID
			}
		}
	}

	if txm.GetTx(ctx) != nil {
		if _, err := NewBatchInserter(txm).CopyFromSlice(ctx, c.Table, c.columns, rows); err != nil {
			return fmt.Errorf("copy %s: %w", c.Table, err)
		}
		return nil
	}

	ins := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Insert(c.Table).
		Columns(c.columns...)
	for _, row := range rows {
		ins = ins.Values(row...)
	}
	sql, args, err := ins.ToSql()
	if err != nil {
		return fmt.Errorf("build %s insert: %w", c.Table, err)
	}
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", c.Table, err)
	}
	return nil
}

// Package document_repo provides PostgreSQL repositories for stock documents.
package document_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"konditer/internal/core/apperror"
	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/domain"
	"konditer/internal/domain/documents"
	"konditer/internal/infrastructure/storage/postgres"
)

type versioned interface {
	GetVersion() int
	SetVersion(v int)
}

// BaseDocumentRepo implements documents.Repository for one header table and
// its child tables.
type BaseDocumentRepo[T documents.Document] struct {
	txm        *postgres.TxManager
	tableName  string
	entityName string
	selectCols []string
	// warehouseCols are matched by ListFilter.WarehouseID
	warehouseCols []string
	children      []postgres.ChildTable[T]
	newFn         func() T
}

// NewBaseDocumentRepo creates a repository over tableName.
func NewBaseDocumentRepo[T documents.Document](
	txm *postgres.TxManager,
	tableName string,
	entityName string,
	selectCols []string,
	warehouseCols []string,
	newFn func() T,
	children ...postgres.ChildTable[T],
) *BaseDocumentRepo[T] {
	return &BaseDocumentRepo[T]{
		txm:           txm,
		tableName:     tableName,
		entityName:    entityName,
		selectCols:    selectCols,
		warehouseCols: warehouseCols,
		children:      children,
		newFn:         newFn,
	}
}

// Builder returns a squirrel builder with PostgreSQL placeholders.
func (r *BaseDocumentRepo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Create inserts the header and all child rows.
func (r *BaseDocumentRepo[T]) Create(ctx context.Context, doc T) error {
	data := postgres.StructToMap(doc)
	values := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if v, ok := data[col]; ok {
			values[col] = v
		}
	}

	sql, args, err := r.Builder().Insert(r.tableName).SetMap(values).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err, "") {
			return apperror.NewDuplicate(r.entityName, "number", doc.GetNumber()).WithCause(err)
		}
		return fmt.Errorf("insert %s: %w", r.tableName, err)
	}

	return r.saveChildren(ctx, doc)
}

// Update writes the header with an optimistic lock on version and replaces child rows.
func (r *BaseDocumentRepo[T]) Update(ctx context.Context, doc T) error {
	v, ok := any(doc).(versioned)
	if !ok {
		return fmt.Errorf("%s does not carry a version", r.entityName)
	}

	data := postgres.StructToMap(doc)
	values := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if col == "id" || col == "version" || col == "created_at" || col == "created_by" {
			continue
		}
		if val, ok := data[col]; ok {
			values[col] = val
		}
	}

	sql, args, err := r.Builder().
		Update(r.tableName).
		SetMap(values).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": doc.GetID()}).
		Where(squirrel.Eq{"version": v.GetVersion()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", r.tableName, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(r.entityName, doc.GetID())
	}
	v.SetVersion(v.GetVersion() + 1)

	return r.saveChildren(ctx, doc)
}

func (r *BaseDocumentRepo[T]) saveChildren(ctx context.Context, doc T) error {
	for _, child := range r.children {
		if err := child.Replace(ctx, r.txm, doc.GetID(), doc); err != nil {
			return err
		}
	}
	return nil
}

func (r *BaseDocumentRepo[T]) loadChildren(ctx context.Context, doc T) error {
	for _, child := range r.children {
		if err := child.Load(ctx, r.txm, doc.GetID(), doc); err != nil {
			return err
		}
	}
	return nil
}

// GetByID returns the document with its lines.
func (r *BaseDocumentRepo[T]) GetByID(ctx context.Context, docID id.ID) (T, error) {
	return r.get(ctx, docID, "")
}

// GetForUpdate loads the document and locks its header row.
func (r *BaseDocumentRepo[T]) GetForUpdate(ctx context.Context, docID id.ID) (T, error) {
	return r.get(ctx, docID, "FOR UPDATE")
}

func (r *BaseDocumentRepo[T]) get(ctx context.Context, docID id.ID, suffix string) (T, error) {
	doc := r.newFn()

	q := r.Builder().
		Select(r.selectCols...).
		From(r.tableName).
		Where(squirrel.Eq{"id": docID})
	if suffix != "" {
		q = q.Suffix(suffix)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return doc, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), doc, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return doc, apperror.NewNotFound(r.entityName, docID.String())
		}
		return doc, fmt.Errorf("get %s: %w", r.entityName, err)
	}

	if err := r.loadChildren(ctx, doc); err != nil {
		return doc, err
	}
	return doc, nil
}

// Delete removes the document; child rows go with it by cascade.
func (r *BaseDocumentRepo[T]) Delete(ctx context.Context, docID id.ID) error {
	sql, args, err := r.Builder().Delete(r.tableName).Where(squirrel.Eq{"id": docID}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", r.tableName, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound(r.entityName, docID.String())
	}
	return nil
}

// List returns a page of documents, newest first unless filter.OrderBy says otherwise.
func (r *BaseDocumentRepo[T]) List(ctx context.Context, filter documents.ListFilter) (domain.ListResult[T], error) {
	result := domain.ListResult[T]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.filtered(filter)

	countSQL, countArgs, err := r.Builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	orderBy, err := r.parseOrderBy(filter.OrderBy)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy, "number DESC")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list %s: %w", r.tableName, err)
	}
	for _, doc := range result.Items {
		if err := r.loadChildren(ctx, doc); err != nil {
			return result, err
		}
	}

	return result, nil
}

func (r *BaseDocumentRepo[T]) filtered(filter documents.ListFilter) squirrel.SelectBuilder {
	q := r.Builder().Select(r.selectCols...).From(r.tableName)

	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"number": "%" + filter.Search + "%"})
	}
	if len(filter.IDs) > 0 {
		q = q.Where(squirrel.Eq{"id": filter.IDs})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"date": *filter.DateTo})
	}
	if filter.WarehouseID != nil && len(r.warehouseCols) > 0 {
		or := squirrel.Or{}
		for _, col := range r.warehouseCols {
			or = append(or, squirrel.Eq{col: *filter.WarehouseID})
		}
		q = q.Where(or)
	}
	return q
}

// Statuses returns the status of each existing document among ids.
func (r *BaseDocumentRepo[T]) Statuses(ctx context.Context, ids []id.ID) (map[id.ID]entity.Status, error) {
	out := make(map[id.ID]entity.Status, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	sql, args, err := r.Builder().
		Select("id", "status").
		From(r.tableName).
		Where(squirrel.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []struct {
		ID     id.ID         `db:"id"`
		Status entity.Status `db:"status"`
	}
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("statuses: %w", err)
	}
	for _, row := range rows {
		out[row.ID] = row.Status
	}
	return out, nil
}

func (r *BaseDocumentRepo[T]) parseOrderBy(orderBy string) (string, error) {
	allowed := make(map[string]struct{}, len(r.selectCols))
	for _, col := range r.selectCols {
		allowed[col] = struct{}{}
	}

	if strings.TrimSpace(orderBy) == "" {
		return "date DESC", nil
	}

	direction := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(orderBy, "-")
	} else if strings.HasPrefix(orderBy, "+") {
		field = strings.TrimPrefix(orderBy, "+")
	}

	field = strings.TrimSpace(field)
	if _, ok := allowed[field]; !ok || field == "" {
		return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy)
	}

	return field + " " + direction, nil
}

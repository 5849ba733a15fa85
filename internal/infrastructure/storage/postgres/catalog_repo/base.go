// Package catalog_repo provides PostgreSQL repositories for items, warehouses
// and recipes.
package catalog_repo

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
	"konditer/internal/infrastructure/storage/postgres"
)

// catalogEntry is satisfied by pointers to types embedding entity.BaseCatalog.
type catalogEntry interface {
	entity.Validatable
	GetID() id.ID
	GetCode() string
	GetVersion() int
	SetVersion(v int)
}

// BaseCatalogRepo provides CRUD over one catalog table.
type BaseCatalogRepo[T catalogEntry] struct {
	txm        *postgres.TxManager
	tableName  string
	entityName string
	selectCols []string
	children   []postgres.ChildTable[T]
	newFn      func() T
}

// NewBaseCatalogRepo creates a repository over tableName.
func NewBaseCatalogRepo[T catalogEntry](
	txm *postgres.TxManager,
	tableName string,
	entityName string,
	selectCols []string,
	newFn func() T,
	children ...postgres.ChildTable[T],
) *BaseCatalogRepo[T] {
	return &BaseCatalogRepo[T]{
		txm:        txm,
		tableName:  tableName,
		entityName: entityName,
		selectCols: selectCols,
		children:   children,
		newFn:      newFn,
	}
}

// Builder returns a squirrel builder with PostgreSQL placeholders.
func (r *BaseCatalogRepo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *BaseCatalogRepo[T]) Create(ctx context.Context, e T) error {
	data := postgres.StructToMap(e)
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
			return apperror.NewDuplicate(r.entityName, "code", e.GetCode()).WithCause(err)
		}
		return fmt.Errorf("insert %s: %w", r.tableName, err)
	}

	return r.saveChildren(ctx, e)
}

// Update writes the entry with an optimistic lock on version.
func (r *BaseCatalogRepo[T]) Update(ctx context.Context, e T) error {
	data := postgres.StructToMap(e)
	values := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if col == "id" || col == "version" {
			continue
		}
		if v, ok := data[col]; ok {
			values[col] = v
		}
	}

	sql, args, err := r.Builder().
		Update(r.tableName).
		SetMap(values).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": e.GetID()}).
		Where(squirrel.Eq{"version": e.GetVersion()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if postgres.IsUniqueViolation(err, "") {
			return apperror.NewDuplicate(r.entityName, "code", e.GetCode()).WithCause(err)
		}
		return fmt.Errorf("update %s: %w", r.tableName, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(r.entityName, e.GetID())
	}
	e.SetVersion(e.GetVersion() + 1)

	return r.saveChildren(ctx, e)
}

func (r *BaseCatalogRepo[T]) saveChildren(ctx context.Context, e T) error {
	for _, child := range r.children {
		if err := child.Replace(ctx, r.txm, e.GetID(), e); err != nil {
			return err
		}
	}
	return nil
}

func (r *BaseCatalogRepo[T]) loadChildren(ctx context.Context, e T) error {
	for _, child := range r.children {
		if err := child.Load(ctx, r.txm, e.GetID(), e); err != nil {
			return err
		}
	}
	return nil
}

func (r *BaseCatalogRepo[T]) baseSelect() squirrel.SelectBuilder {
	return r.Builder().Select(r.selectCols...).From(r.tableName)
}

func (r *BaseCatalogRepo[T]) GetByID(ctx context.Context, entityID id.ID) (T, error) {
	e, err := r.FindOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": entityID}).Limit(1))
	if apperror.IsNotFound(err) {
		return e, apperror.NewNotFound(r.entityName, entityID.String())
	}
	return e, err
}

// FindOne runs q and returns the single matching entry with its children.
func (r *BaseCatalogRepo[T]) FindOne(ctx context.Context, q squirrel.SelectBuilder) (T, error) {
	e := r.newFn()

	sql, args, err := q.ToSql()
	if err != nil {
		return e, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), e, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return e, apperror.NewNotFound(r.entityName, "")
		}
		return e, fmt.Errorf("get %s: %w", r.entityName, err)
	}

	if err := r.loadChildren(ctx, e); err != nil {
		return e, err
	}
	return e, nil
}

// FindAll runs q and returns every matching entry with its children.
func (r *BaseCatalogRepo[T]) FindAll(ctx context.Context, q squirrel.SelectBuilder) ([]T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []T
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list %s: %w", r.tableName, err)
	}
	for _, e := range items {
		if err := r.loadChildren(ctx, e); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// GetMany returns the existing entries among ids keyed by id.
func (r *BaseCatalogRepo[T]) GetMany(ctx context.Context, ids []id.ID) (map[id.ID]T, error) {
	out := make(map[id.ID]T, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	items, err := r.FindAll(ctx, r.baseSelect().Where(squirrel.Eq{"id": ids}))
	if err != nil {
		return nil, err
	}
	for _, e := range items {
		out[e.GetID()] = e
	}
	return out, nil
}

func (r *BaseCatalogRepo[T]) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[T], error) {
	result := domain.ListResult[T]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.filtered(filter)

	countSQL, countArgs, err := r.Builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	orderBy, err := r.parseOrderBy(filter.OrderBy)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy)

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	result.Items, err = r.FindAll(ctx, q)
	return result, err
}

func (r *BaseCatalogRepo[T]) filtered(filter domain.ListFilter) squirrel.SelectBuilder {
	q := r.baseSelect()

	if !filter.IncludeInactive {
		q = q.Where(squirrel.Eq{"is_active": true})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"code": pattern},
		})
	}
	if len(filter.IDs) > 0 {
		q = q.Where(squirrel.Eq{"id": filter.IDs})
	}
	return q
}

func (r *BaseCatalogRepo[T]) parseOrderBy(orderBy string) (string, error) {
	if strings.TrimSpace(orderBy) == "" {
		return "name ASC", nil
	}

	direction := "ASC"
	field := strings.TrimPrefix(orderBy, "+")
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(orderBy, "-")
	}

	for _, col := range r.selectCols {
		if col == field {
			return field + " " + direction, nil
		}
	}
	return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy)
}

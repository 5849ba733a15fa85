package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"konditer/internal/core/apperror"
	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/domain"
	"konditer/internal/domain/catalogs/item"
	"konditer/internal/domain/catalogs/recipe"
	"konditer/internal/domain/catalogs/warehouse"
)

type catalogEntry interface {
	entity.Validatable
	GetID() id.ID
	GetVersion() int
	SetVersion(v int)
	GetCode() string
	GetName() string
	Active() bool
}

// catalogTable is the shared storage of a catalog. Rows are cloned on the way
// in and out so callers never alias stored state.
type catalogTable[T catalogEntry] struct {
	mu    sync.RWMutex
	name  string
	rows  map[id.ID]T
	order []id.ID
	clone func(T) T
}

func newCatalogTable[T catalogEntry](store *Store, name string, clone func(T) T) *catalogTable[T] {
	t := &catalogTable[T]{name: name, rows: make(map[id.ID]T), clone: clone}
	store.register(t)
	return t
}

func (t *catalogTable[T]) snapshot() func() {
	t.mu.RLock()
	rows := make(map[id.ID]T, len(t.rows))
	for k, v := range t.rows {
		rows[k] = v
	}
	order := append([]id.ID(nil), t.order...)
	t.mu.RUnlock()
	return func() {
		t.mu.Lock()
		t.rows, t.order = rows, order
		t.mu.Unlock()
	}
}

func (t *catalogTable[T]) Create(_ context.Context, e T) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[e.GetID()]; ok {
		return apperror.NewDuplicate(t.name, "id", e.GetID().String())
	}
	if e.GetCode() != "" {
		for _, row := range t.rows {
			if row.GetCode() == e.GetCode() {
				return apperror.NewDuplicate(t.name, "code", e.GetCode())
			}
		}
	}
	t.rows[e.GetID()] = t.clone(e)
	t.order = append(t.order, e.GetID())
	return nil
}

func (t *catalogTable[T]) GetByID(_ context.Context, entityID id.ID) (T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := t.rows[entityID]
	if !ok {
		var zero T
		return zero, apperror.NewNotFound(t.name, entityID.String())
	}
	return t.clone(row), nil
}

func (t *catalogTable[T]) Update(_ context.Context, e T) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	row, ok := t.rows[e.GetID()]
	if !ok {
		return apperror.NewNotFound(t.name, e.GetID().String())
	}
	if row.GetVersion() != e.GetVersion() {
		return apperror.NewConcurrentModification(t.name, e.GetID().String())
	}
	e.SetVersion(e.GetVersion() + 1)
	t.rows[e.GetID()] = t.clone(e)
	return nil
}

func (t *catalogTable[T]) List(_ context.Context, filter domain.ListFilter) (domain.ListResult[T], error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	wanted := make(map[id.ID]bool, len(filter.IDs))
	for _, v := range filter.IDs {
		wanted[v] = true
	}
	search := strings.ToLower(filter.Search)

	var matched []T
	for _, key := range t.order {
		row := t.rows[key]
		if !filter.IncludeInactive && !row.Active() {
			continue
		}
		if len(wanted) > 0 && !wanted[key] {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(row.GetCode()), search) &&
			!strings.Contains(strings.ToLower(row.GetName()), search) {
			continue
		}
		matched = append(matched, t.clone(row))
	}
	if strings.TrimPrefix(filter.OrderBy, "-") == "name" {
		desc := strings.HasPrefix(filter.OrderBy, "-")
		sort.SliceStable(matched, func(i, j int) bool {
			if desc {
				return matched[i].GetName() > matched[j].GetName()
			}
			return matched[i].GetName() < matched[j].GetName()
		})
	}
	return paginate(matched, filter), nil
}

func (t *catalogTable[T]) GetMany(_ context.Context, ids []id.ID) (map[id.ID]T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[id.ID]T, len(ids))
	for _, key := range ids {
		if row, ok := t.rows[key]; ok {
			out[key] = t.clone(row)
		}
	}
	return out, nil
}

func paginate[T any](rows []T, filter domain.ListFilter) domain.ListResult[T] {
	total := len(rows)
	start := min(max(filter.Offset, 0), total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}
	return domain.ListResult[T]{
		Items:      rows[start:end],
		TotalCount: int64(total),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
}

// ItemRepo implements item.Repository.
type ItemRepo struct {
	*catalogTable[*item.Item]
}

func NewItemRepo(store *Store) *ItemRepo {
	return &ItemRepo{newCatalogTable(store, "item", func(i *item.Item) *item.Item {
		c := *i
		return &c
	})}
}

// WarehouseRepo implements warehouse.Repository.
type WarehouseRepo struct {
	*catalogTable[*warehouse.Warehouse]
}

func NewWarehouseRepo(store *Store) *WarehouseRepo {
	return &WarehouseRepo{newCatalogTable(store, "warehouse", func(w *warehouse.Warehouse) *warehouse.Warehouse {
		c := *w
		return &c
	})}
}

// RecipeRepo implements recipe.Repository.
type RecipeRepo struct {
	*catalogTable[*recipe.Recipe]
}

func NewRecipeRepo(store *Store) *RecipeRepo {
	return &RecipeRepo{newCatalogTable(store, "recipe", cloneRecipe)}
}

func cloneRecipe(r *recipe.Recipe) *recipe.Recipe {
	c := *r
	c.Items = append([]recipe.Item(nil), r.Items...)
	c.Stages = append([]recipe.Stage(nil), r.Stages...)
	return &c
}

func (r *RecipeRepo) GetActiveByOutputItem(_ context.Context, itemID id.ID) (*recipe.Recipe, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, key := range r.order {
		row := r.rows[key]
		if row.IsActive && row.OutputItemID == itemID {
			return cloneRecipe(row), nil
		}
	}
	return nil, apperror.NewNotFound("recipe", itemID.String()).WithDetail("output_item_id", itemID.String())
}

func (r *RecipeRepo) ListActive(context.Context) ([]*recipe.Recipe, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*recipe.Recipe
	for _, key := range r.order {
		if row := r.rows[key]; row.IsActive {
			out = append(out, cloneRecipe(row))
		}
	}
	return out, nil
}

var (
	_ item.Repository      = (*ItemRepo)(nil)
	_ warehouse.Repository = (*WarehouseRepo)(nil)
	_ recipe.Repository    = (*RecipeRepo)(nil)
)

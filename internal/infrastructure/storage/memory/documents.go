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
	"konditer/internal/domain/documents"
	"konditer/internal/domain/documents/adjustment"
	"konditer/internal/domain/documents/production"
	"konditer/internal/domain/documents/purchase"
	"konditer/internal/domain/documents/sale"
	"konditer/internal/domain/documents/transfer"
)

type versioned interface {
	GetVersion() int
	SetVersion(v int)
}

// DocumentRepo implements documents.Repository for one document type.
type DocumentRepo[T documents.Document] struct {
	mu    sync.RWMutex
	name  string
	rows  map[id.ID]T
	clone func(T) T
}

func newDocumentRepo[T documents.Document](store *Store, name string, clone func(T) T) *DocumentRepo[T] {
	r := &DocumentRepo[T]{name: name, rows: make(map[id.ID]T), clone: clone}
	store.register(r)
	return r
}

func (r *DocumentRepo[T]) snapshot() func() {
	r.mu.RLock()
	rows := make(map[id.ID]T, len(r.rows))
	for k, v := range r.rows {
		rows[k] = v
	}
	r.mu.RUnlock()
	return func() {
		r.mu.Lock()
		r.rows = rows
		r.mu.Unlock()
	}
}

func (r *DocumentRepo[T]) Create(_ context.Context, doc T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[doc.GetID()]; ok {
		return apperror.NewDuplicate(r.name, "id", doc.GetID().String())
	}
	r.rows[doc.GetID()] = r.clone(doc)
	return nil
}

func (r *DocumentRepo[T]) GetByID(_ context.Context, docID id.ID) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.rows[docID]
	if !ok {
		var zero T
		return zero, apperror.NewNotFound(r.name, docID.String())
	}
	return r.clone(doc), nil
}

// GetForUpdate equals GetByID: the store serializes transactions.
func (r *DocumentRepo[T]) GetForUpdate(ctx context.Context, docID id.ID) (T, error) {
	return r.GetByID(ctx, docID)
}

func (r *DocumentRepo[T]) Update(_ context.Context, doc T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.rows[doc.GetID()]
	if !ok {
		return apperror.NewNotFound(r.name, doc.GetID().String())
	}
	cur, ok1 := any(stored).(versioned)
	next, ok2 := any(doc).(versioned)
	if ok1 && ok2 {
		if cur.GetVersion() != next.GetVersion() {
			return apperror.NewConcurrentModification(r.name, doc.GetID().String())
		}
		next.SetVersion(next.GetVersion() + 1)
	}
	r.rows[doc.GetID()] = r.clone(doc)
	return nil
}

func (r *DocumentRepo[T]) Delete(_ context.Context, docID id.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[docID]; !ok {
		return apperror.NewNotFound(r.name, docID.String())
	}
	delete(r.rows, docID)
	return nil
}

func (r *DocumentRepo[T]) List(_ context.Context, filter documents.ListFilter) (domain.ListResult[T], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	var matched []T
	for _, doc := range r.rows {
		if filter.Status != nil && doc.GetStatus() != *filter.Status {
			continue
		}
		if filter.DateFrom != nil && doc.GetDate().Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && doc.GetDate().After(*filter.DateTo) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(doc.GetNumber()), search) {
			continue
		}
		if filter.WarehouseID != nil && !touches(doc, *filter.WarehouseID) {
			continue
		}
		matched = append(matched, r.clone(doc))
	}
	// newest first, like the database listing
	sort.Slice(matched, func(i, j int) bool {
		di, dj := matched[i].GetDate(), matched[j].GetDate()
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return matched[i].GetNumber() > matched[j].GetNumber()
	})
	return paginate(matched, filter.ListFilter), nil
}

func (r *DocumentRepo[T]) Statuses(_ context.Context, ids []id.ID) (map[id.ID]entity.Status, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[id.ID]entity.Status, len(ids))
	for _, key := range ids {
		if doc, ok := r.rows[key]; ok {
			out[key] = doc.GetStatus()
		}
	}
	return out, nil
}

func touches(doc documents.Document, warehouseID id.ID) bool {
	for _, k := range doc.BalanceKeys() {
		if k.WarehouseID == warehouseID {
			return true
		}
	}
	return false
}

func NewPurchaseRepo(store *Store) *DocumentRepo[*purchase.Purchase] {
	return newDocumentRepo(store, "purchase", func(p *purchase.Purchase) *purchase.Purchase {
		c := *p
		c.Lines = append([]purchase.Line(nil), p.Lines...)
		c.Expenses = append([]purchase.Expense(nil), p.Expenses...)
		return &c
	})
}

func NewTransferRepo(store *Store) *DocumentRepo[*transfer.Transfer] {
	return newDocumentRepo(store, "transfer", func(t *transfer.Transfer) *transfer.Transfer {
		c := *t
		c.Lines = append([]transfer.Line(nil), t.Lines...)
		return &c
	})
}

func NewAdjustmentRepo(store *Store) *DocumentRepo[*adjustment.Adjustment] {
	return newDocumentRepo(store, "adjustment", func(a *adjustment.Adjustment) *adjustment.Adjustment {
		c := *a
		c.Lines = append([]adjustment.Line(nil), a.Lines...)
		return &c
	})
}

func NewSaleRepo(store *Store) *DocumentRepo[*sale.Sale] {
	return newDocumentRepo(store, "sale", func(s *sale.Sale) *sale.Sale {
		c := *s
		c.Lines = append([]sale.Line(nil), s.Lines...)
		return &c
	})
}

func NewProductionRepo(store *Store) *DocumentRepo[*production.Order] {
	return newDocumentRepo(store, "production order", func(o *production.Order) *production.Order {
		c := *o
		c.Lines = append([]production.Line(nil), o.Lines...)
		c.Stages = append([]production.Stage(nil), o.Stages...)
		return &c
	})
}

var (
	_ purchase.Repository   = (*DocumentRepo[*purchase.Purchase])(nil)
	_ transfer.Repository   = (*DocumentRepo[*transfer.Transfer])(nil)
	_ adjustment.Repository = (*DocumentRepo[*adjustment.Adjustment])(nil)
	_ sale.Repository       = (*DocumentRepo[*sale.Sale])(nil)
	_ production.Repository = (*DocumentRepo[*production.Order])(nil)
)

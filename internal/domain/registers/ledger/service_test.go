package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/core/types"
)

type fakeRepo struct {
	entries []entity.MovementEntry
}

func (r *fakeRepo) Upsert(_ context.Context, entries []entity.MovementEntry) error {
	for _, e := range entries {
		replaced := false
		for i := range r.entries {
			if r.entries[i].Ref() == e.Ref() && r.entries[i].Key() == e.Key() {
				r.entries[i] = e
				replaced = true
			}
		}
		if !replaced {
			r.entries = append(r.entries, e)
		}
	}
	return nil
}

func (r *fakeRepo) List(_ context.Context, wh, it id.ID) ([]entity.MovementEntry, error) {
	var out []entity.MovementEntry
	for _, e := range r.entries {
		if e.WarehouseID == wh && e.ItemID == it {
			out = append(out, e)
		}
	}
	SortByTime(out)
	return out, nil
}

func (r *fakeRepo) ListAll(context.Context) ([]entity.MovementEntry, error) { return r.entries, nil }

func (r *fakeRepo) ListByDocument(_ context.Context, ref entity.DocumentRef) ([]entity.MovementEntry, error) {
	var out []entity.MovementEntry
	for _, e := range r.entries {
		if e.Ref() == ref {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeRepo) DeleteByDocument(_ context.Context, ref entity.DocumentRef) (int64, error) {
	kept := r.entries[:0]
	var n int64
	for _, e := range r.entries {
		if e.Ref() == ref {
			n++
			continue
		}
		kept = append(kept, e)
	}
	r.entries = kept
	return n, nil
}

type fakeStatuses map[entity.DocumentRef]entity.Status

func (f fakeStatuses) Statuses(_ context.Context, t entity.DocumentType, ids []id.ID) (map[id.ID]entity.Status, error) {
	out := make(map[id.ID]entity.Status)
	for _, docID := range ids {
		if st, ok := f[entity.DocumentRef{Type: t, ID: docID}]; ok {
			out[docID] = st
		}
	}
	return out, nil
}

func entry(t entity.DocumentType, doc, wh, it id.ID, delta int64, at time.Time) entity.MovementEntry {
	return entity.MovementEntry{
		ID: id.New(), WarehouseID: wh, ItemID: it, QuantityDelta: types.NewQuantity(delta),
		DocumentType: t, DocumentID: doc, RecordedAt: at,
	}
}

func TestAppend_CollapsesDuplicateKeys(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, fakeStatuses{})
	wh, it, doc := id.New(), id.New(), id.New()
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	require.NoError(t, svc.Append(context.Background(), []entity.MovementEntry{
		entry(entity.DocumentTypeProduction, doc, wh, it, -3, now),
		entry(entity.DocumentTypeProduction, doc, wh, it, -2, now),
	}))

	require.Len(t, repo.entries, 1)
	assert.Equal(t, types.NewQuantity(-5), repo.entries[0].QuantityDelta)
}

func TestAppend_ReconfirmReplacesEntry(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, fakeStatuses{})
	wh, it, doc := id.New(), id.New(), id.New()
	now := time.Now()

	require.NoError(t, svc.Append(context.Background(), []entity.MovementEntry{entry(entity.DocumentTypePurchase, doc, wh, it, 10, now)}))
	require.NoError(t, svc.Append(context.Background(), []entity.MovementEntry{entry(entity.DocumentTypePurchase, doc, wh, it, 12, now)}))

	require.Len(t, repo.entries, 1)
	assert.Equal(t, types.NewQuantity(12), repo.entries[0].QuantityDelta)
}

func TestSum_CountsOnlyAppliedDocuments(t *testing.T) {
	wh, it := id.New(), id.New()
	purchase, adjustment, reverted, deleted := id.New(), id.New(), id.New(), id.New()
	now := time.Now()

	repo := &fakeRepo{entries: []entity.MovementEntry{
		entry(entity.DocumentTypePurchase, purchase, wh, it, 10, now),
		entry(entity.DocumentTypeAdjustment, adjustment, wh, it, -2, now.Add(time.Minute)),
		entry(entity.DocumentTypeAdjustment, reverted, wh, it, 50, now.Add(2*time.Minute)),
		entry(entity.DocumentTypeProduction, deleted, wh, it, 7, now.Add(3*time.Minute)),
	}}
	statuses := fakeStatuses{
		{Type: entity.DocumentTypePurchase, ID: purchase}:     entity.StatusConfirmed,
		{Type: entity.DocumentTypeAdjustment, ID: adjustment}: entity.StatusConfirmed,
		{Type: entity.DocumentTypeAdjustment, ID: reverted}:   entity.StatusDraft,
	}
	svc := NewService(repo, statuses)

	sum, err := svc.Sum(context.Background(), wh, it)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(8), sum)

	_, orphans, err := svc.Applied(context.Background(), repo.entries)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, deleted, orphans[0].DocumentID)

	// history keeps the reverted adjustment
	history, err := svc.List(context.Background(), wh, it)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestAppend_DropsKeysNoLongerTouched(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, fakeStatuses{})
	wh, sugar, flour, doc := id.New(), id.New(), id.New(), id.New()
	now := time.Now()

	require.NoError(t, svc.Append(context.Background(), []entity.MovementEntry{
		entry(entity.DocumentTypePurchase, doc, wh, sugar, 10, now),
		entry(entity.DocumentTypePurchase, doc, wh, flour, 5, now),
	}))
	// edited after revert: flour line removed
	require.NoError(t, svc.Append(context.Background(), []entity.MovementEntry{
		entry(entity.DocumentTypePurchase, doc, wh, sugar, 8, now),
	}))

	require.Len(t, repo.entries, 1)
	assert.Equal(t, sugar, repo.entries[0].ItemID)
}

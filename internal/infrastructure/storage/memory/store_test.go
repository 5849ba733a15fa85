package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"konditer/internal/core/apperror"
	"konditer/internal/core/clock"
	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/core/numerator"
	"konditer/internal/core/types"
	"konditer/internal/domain"
	"konditer/internal/domain/catalogs/item"
)

func TestRunInTransaction_RollsBackEveryTable(t *testing.T) {
	store := NewStore()
	balances := NewBalanceRepo(store)
	items := NewItemRepo(store)
	ctx := context.Background()
	key := entity.BalanceKey{WarehouseID: id.New(), ItemID: id.New()}

	boom := errors.New("boom")
	err := store.RunInTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, balances.Save(ctx, entity.Balance{WarehouseID: key.WarehouseID, ItemID: key.ItemID, Quantity: types.NewQuantity(3)}))
		require.NoError(t, items.Create(ctx, item.NewItem("X", "X", item.KindRawMaterial, "pcs")))
		// nested calls join the outer transaction
		return store.RunInTransaction(ctx, func(context.Context) error { return boom })
	})
	require.ErrorIs(t, err, boom)

	_, found, err := balances.Get(ctx, key.WarehouseID, key.ItemID)
	require.NoError(t, err)
	assert.False(t, found)
	list, err := items.List(ctx, defaultFilter())
	require.NoError(t, err)
	assert.Zero(t, list.TotalCount)
}

func TestCatalog_OptimisticLocking(t *testing.T) {
	store := NewStore()
	items := NewItemRepo(store)
	ctx := context.Background()

	it := item.NewItem("FLOUR", "Flour", item.KindRawMaterial, "kg")
	require.NoError(t, items.Create(ctx, it))

	a, err := items.GetByID(ctx, it.ID)
	require.NoError(t, err)
	b, err := items.GetByID(ctx, it.ID)
	require.NoError(t, err)

	a.Name = "Wheat flour"
	require.NoError(t, items.Update(ctx, a))
	assert.Equal(t, 2, a.Version)

	b.Name = "Rye flour"
	err = items.Update(ctx, b)
	assert.True(t, apperror.HasCode(err, apperror.CodeConcurrentModification))

	dup := item.NewItem("FLOUR", "Other", item.KindRawMaterial, "kg")
	assert.True(t, apperror.HasCode(items.Create(ctx, dup), apperror.CodeDuplicate))
}

func TestNumerator_SequencePerDay(t *testing.T) {
	store := NewStore()
	n := NewNumerator(store)
	ctx := context.Background()
	cfg := numerator.ForDocument(entity.DocumentTypePurchase)
	day := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)

	first, err := n.GetNextNumber(ctx, cfg, day)
	require.NoError(t, err)
	second, err := n.GetNextNumber(ctx, cfg, day)
	require.NoError(t, err)
	next, err := n.GetNextNumber(ctx, cfg, day.AddDate(0, 0, 1))
	require.NoError(t, err)

	assert.Equal(t, "P-20261015-0001", first)
	assert.Equal(t, "P-20261015-0002", second)
	assert.Equal(t, "P-20261016-0001", next)
}

func TestDeduper_Expires(t *testing.T) {
	clk := clock.NewFixed(time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC))
	d := NewDeduper(clk)
	ctx := context.Background()

	ok, err := d.Acquire(ctx, "k", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = d.Acquire(ctx, "k", time.Hour)
	assert.False(t, ok)

	clk.Advance(time.Hour)
	ok, _ = d.Acquire(ctx, "k", time.Hour)
	assert.True(t, ok)
}

func defaultFilter() domain.ListFilter {
	f := domain.DefaultListFilter()
	f.IncludeInactive = true
	return f
}

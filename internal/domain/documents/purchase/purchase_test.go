package purchase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"konditer/internal/app/apptest"
	"konditer/internal/core/apperror"
	"konditer/internal/core/entity"
	"konditer/internal/core/types"
	"konditer/internal/domain/catalogs/item"
	"konditer/internal/domain/documents/purchase"
	"konditer/internal/domain/documents/sale"
	"konditer/internal/domain/events"
)

func TestConfirm_MovingAverage(t *testing.T) {
	f := apptest.New(t)
	wh := f.Warehouse(t, "MAIN")
	flour := f.Item(t, "FLOUR", item.KindRawMaterial)

	f.Receive(t, wh, flour, 100, "10")
	f.Receive(t, wh, flour, 50, "16")

	b := f.Balance(t, wh, flour)
	assert.Equal(t, types.NewQuantity(150), b.Quantity)
	apptest.EqualMoney(t, "12", b.UnitCost)
	assert.Equal(t, types.NewQuantity(150), f.LedgerSum(t, wh, flour))
}

func TestConfirm_LandedCostSpreadsExpenses(t *testing.T) {
	f := apptest.New(t)
	ctx := apptest.Admin()
	wh := f.Warehouse(t, "MAIN")
	sugar := f.Item(t, "SUGAR", item.KindRawMaterial)
	butter := f.Item(t, "BUTTER", item.KindRawMaterial)

	p := purchase.NewPurchase(f.Clock.Now(), "admin", wh)
	p.AddLine(sugar, types.NewQuantity(10), types.MustMoney("100"))
	p.AddLine(butter, types.NewQuantity(20), types.MustMoney("50"))
	p.AddExpense("delivery", types.MustMoney("200"))
	require.NoError(t, f.Purchases.Create(ctx, p))
	require.NoError(t, f.Purchases.Confirm(ctx, p.ID))

	apptest.EqualMoney(t, "110", f.Balance(t, wh, sugar).UnitCost)
	apptest.EqualMoney(t, "55", f.Balance(t, wh, butter).UnitCost)

	stored, err := f.Purchases.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusConfirmed, stored.Status)
	assert.NotEmpty(t, stored.Number)
	apptest.EqualMoney(t, "2000", stored.TotalAmount)
	apptest.EqualMoney(t, "200", stored.TotalExpenses)
}

func TestRevert_RestoresSnapshot(t *testing.T) {
	f := apptest.New(t)
	ctx := apptest.Admin()
	wh := f.Warehouse(t, "MAIN")
	flour := f.Item(t, "FLOUR", item.KindRawMaterial)

	f.Receive(t, wh, flour, 100, "10")
	second := f.Receive(t, wh, flour, 50, "16")

	require.NoError(t, f.Purchases.Revert(ctx, second.ID))

	b := f.Balance(t, wh, flour)
	assert.Equal(t, types.NewQuantity(100), b.Quantity)
	apptest.EqualMoney(t, "10", b.UnitCost)
	assert.Equal(t, types.NewQuantity(100), f.LedgerSum(t, wh, flour))

	err := f.Purchases.Revert(ctx, second.ID)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeStateConflict))
}

func TestRevert_AfterConsumptionIsIrreversible(t *testing.T) {
	f := apptest.New(t)
	ctx := apptest.Admin()
	wh := f.Warehouse(t, "MAIN")
	flour := f.Item(t, "FLOUR", item.KindRawMaterial)

	p := f.Receive(t, wh, flour, 10, "5")

	s := sale.NewSale(f.Clock.Now(), "admin", wh)
	s.AddLine(flour, types.NewQuantity(8), types.MustMoney("9"))
	require.NoError(t, f.Sales.Create(ctx, s))
	require.NoError(t, f.Sales.Confirm(ctx, s.ID))

	err := f.Purchases.Revert(ctx, p.ID)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeIrreversible))

	b := f.Balance(t, wh, flour)
	assert.Equal(t, types.NewQuantity(2), b.Quantity)
	stored, err := f.Purchases.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusConfirmed, stored.Status)
}

func TestRevert_InverseAverageWhenBalanceMovedOn(t *testing.T) {
	f := apptest.New(t)
	ctx := apptest.Admin()
	wh := f.Warehouse(t, "MAIN")
	flour := f.Item(t, "FLOUR", item.KindRawMaterial)

	first := f.Receive(t, wh, flour, 100, "10")
	f.Receive(t, wh, flour, 100, "20")

	// 200 @ 15; removing the first receipt leaves 100 @ 20
	require.NoError(t, f.Purchases.Revert(ctx, first.ID))

	b := f.Balance(t, wh, flour)
	assert.Equal(t, types.NewQuantity(100), b.Quantity)
	apptest.EqualMoney(t, "20", b.UnitCost)
}

func TestConfirm_RejectsInactiveWarehouseWithoutSideEffects(t *testing.T) {
	f := apptest.New(t)
	ctx := apptest.Admin()
	wh := f.Warehouse(t, "MAIN")
	flour := f.Item(t, "FLOUR", item.KindRawMaterial)

	p := purchase.NewPurchase(f.Clock.Now(), "admin", wh)
	p.AddLine(flour, types.NewQuantity(5), types.MustMoney("3"))
	require.NoError(t, f.Purchases.Create(ctx, p))

	w, err := f.Warehouses.GetByID(ctx, wh)
	require.NoError(t, err)
	w.IsActive = false
	require.NoError(t, f.Warehouses.Update(ctx, w))

	err = f.Purchases.Confirm(ctx, p.ID)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeReferential))
	assert.True(t, f.Balance(t, wh, flour).Quantity.IsZero())
	assert.True(t, f.LedgerSum(t, wh, flour).IsZero())
}

func TestConfirm_PublishesEventsInTransaction(t *testing.T) {
	f := apptest.New(t)
	wh := f.Warehouse(t, "MAIN")
	flour := f.Item(t, "FLOUR", item.KindRawMaterial)
	f.Memory.Outbox.Drain()

	f.Receive(t, wh, flour, 1, "1")

	var kinds []string
	for _, ev := range f.Memory.Outbox.Events() {
		kinds = append(kinds, ev.Type)
	}
	assert.ElementsMatch(t, []string{events.TypeDocumentConfirmed, events.TypeLowStockCheckRequested}, kinds)
}

func TestConfirm_Twice(t *testing.T) {
	f := apptest.New(t)
	ctx := apptest.Admin()
	wh := f.Warehouse(t, "MAIN")
	flour := f.Item(t, "FLOUR", item.KindRawMaterial)

	p := f.Receive(t, wh, flour, 7, "2")
	err := f.Purchases.Confirm(ctx, p.ID)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeStateConflict))
	assert.Equal(t, types.NewQuantity(7), f.Balance(t, wh, flour).Quantity)
}

func TestDelete_AfterRevertDropsLedgerRows(t *testing.T) {
	f := apptest.New(t)
	ctx := apptest.Admin()
	wh := f.Warehouse(t, "MAIN")
	flour := f.Item(t, "FLOUR", item.KindRawMaterial)

	p := f.Receive(t, wh, flour, 10, "5")
	require.NoError(t, f.Purchases.Revert(ctx, p.ID))
	require.NoError(t, f.Purchases.Delete(ctx, p.ID))

	entries, err := f.Ledger.ListByDocument(ctx, entity.DocumentRef{Type: entity.DocumentTypePurchase, ID: p.ID})
	require.NoError(t, err)
	assert.Empty(t, entries)

	summary, err := f.Reconcile.RecomputeBalances(ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.Orphaned)
	assert.True(t, f.Balance(t, wh, flour).Quantity.IsZero())
}

package adjustment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"konditer/internal/app/apptest"
	"konditer/internal/core/apperror"
	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/core/types"
	"konditer/internal/domain/catalogs/item"
	"konditer/internal/domain/documents/adjustment"
	"konditer/internal/domain/documents/sale"
)

func TestConfirm_SetsCountedQuantity(t *testing.T) {
	f := apptest.New(t)
	ctx := apptest.Admin()
	wh := f.Warehouse(t, "MAIN")
	eggs := f.Item(t, "EGGS", item.KindRawMaterial)
	f.Receive(t, wh, eggs, 30, "4")

	adj := adjustment.NewAdjustment(f.Clock.Now(), "admin", wh)
	adj.Reason = "stocktake"
	adj.AddLine(eggs, types.NewQuantity(27), nil)
	require.NoError(t, f.Adjustments.Create(ctx, adj))
	require.NoError(t, f.Adjustments.Confirm(ctx, adj.ID))

	b := f.Balance(t, wh, eggs)
	assert.Equal(t, types.NewQuantity(27), b.Quantity)
	apptest.EqualMoney(t, "4", b.UnitCost)
	assert.Equal(t, types.NewQuantity(27), f.LedgerSum(t, wh, eggs))
}

func TestRevert_RestoresAndStopsCounting(t *testing.T) {
	f := apptest.New(t)
	ctx := apptest.Admin()
	wh := f.Warehouse(t, "MAIN")
	eggs := f.Item(t, "EGGS", item.KindRawMaterial)
	f.Receive(t, wh, eggs, 30, "4")

	cost := types.MustMoney("6")
	adj := adjustment.NewAdjustment(f.Clock.Now(), "admin", wh)
	adj.AddLine(eggs, types.NewQuantity(40), &cost)
	require.NoError(t, f.Adjustments.Create(ctx, adj))
	require.NoError(t, f.Adjustments.Confirm(ctx, adj.ID))
	apptest.EqualMoney(t, "6", f.Balance(t, wh, eggs).UnitCost)

	require.NoError(t, f.Adjustments.Revert(ctx, adj.ID))

	b := f.Balance(t, wh, eggs)
	assert.Equal(t, types.NewQuantity(30), b.Quantity)
	apptest.EqualMoney(t, "4", b.UnitCost)
	assert.Equal(t, types.NewQuantity(30), f.LedgerSum(t, wh, eggs))
}

func sell(t *testing.T, f *apptest.Fixture, wh, itemID id.ID, qty int64) {
	t.Helper()
	ctx := apptest.Admin()
	s := sale.NewSale(f.Clock.Now(), "admin", wh)
	s.AddLine(itemID, types.NewQuantity(qty), types.MustMoney("10"))
	require.NoError(t, f.Sales.Create(ctx, s))
	require.NoError(t, f.Sales.Confirm(ctx, s.ID))
}

func TestRevert_KeepsLaterMovements(t *testing.T) {
	f := apptest.New(t)
	ctx := apptest.Admin()
	wh := f.Warehouse(t, "MAIN")
	eggs := f.Item(t, "EGGS", item.KindRawMaterial)
	f.Receive(t, wh, eggs, 10, "5")

	adj := adjustment.NewAdjustment(f.Clock.Now(), "admin", wh)
	adj.AddLine(eggs, types.NewQuantity(3), nil)
	require.NoError(t, f.Adjustments.Create(ctx, adj))
	require.NoError(t, f.Adjustments.Confirm(ctx, adj.ID))
	sell(t, f, wh, eggs, 2)

	require.NoError(t, f.Adjustments.Revert(ctx, adj.ID))

	b := f.Balance(t, wh, eggs)
	assert.Equal(t, types.NewQuantity(8), b.Quantity)
	apptest.EqualMoney(t, "5", b.UnitCost)
	assert.Equal(t, types.NewQuantity(8), f.LedgerSum(t, wh, eggs))

	summary, err := f.Reconcile.RecomputeBalances(ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.Updated)
}

func TestRevert_IrreversibleAfterConsumption(t *testing.T) {
	f := apptest.New(t)
	ctx := apptest.Admin()
	wh := f.Warehouse(t, "MAIN")
	eggs := f.Item(t, "EGGS", item.KindRawMaterial)
	f.Receive(t, wh, eggs, 10, "5")

	adj := adjustment.NewAdjustment(f.Clock.Now(), "admin", wh)
	adj.AddLine(eggs, types.NewQuantity(20), nil)
	require.NoError(t, f.Adjustments.Create(ctx, adj))
	require.NoError(t, f.Adjustments.Confirm(ctx, adj.ID))
	sell(t, f, wh, eggs, 15)

	err := f.Adjustments.Revert(ctx, adj.ID)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeIrreversible))

	assert.Equal(t, types.NewQuantity(5), f.Balance(t, wh, eggs).Quantity)
	stored, err := f.Adjustments.GetByID(ctx, adj.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusConfirmed, stored.Status)
}

func TestCreate_DuplicateItemRejected(t *testing.T) {
	f := apptest.New(t)
	wh := f.Warehouse(t, "MAIN")
	eggs := f.Item(t, "EGGS", item.KindRawMaterial)

	adj := adjustment.NewAdjustment(f.Clock.Now(), "admin", wh)
	adj.AddLine(eggs, types.NewQuantity(1), nil)
	adj.AddLine(eggs, types.NewQuantity(2), nil)
	err := f.Adjustments.Create(apptest.Admin(), adj)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

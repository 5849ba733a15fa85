package sale_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"konditer/internal/app/apptest"
	"konditer/internal/core/apperror"
	"konditer/internal/core/entity"
	"konditer/internal/core/types"
	"konditer/internal/domain/catalogs/item"
	"konditer/internal/domain/documents/sale"
)

func TestConfirm_ConsumesAtBalanceCost(t *testing.T) {
	f := apptest.New(t)
	ctx := apptest.Admin()
	wh := f.Warehouse(t, "SHOP")
	cake := f.Item(t, "CAKE", item.KindFinished)
	f.Receive(t, wh, cake, 5, "120")

	s := sale.NewSale(f.Clock.Now(), "admin", wh)
	s.CustomerName = "Cafe"
	s.AddLine(cake, types.NewQuantity(2), types.MustMoney("300"))
	require.NoError(t, f.Sales.Create(ctx, s))
	require.NoError(t, f.Sales.Confirm(ctx, s.ID))

	b := f.Balance(t, wh, cake)
	assert.Equal(t, types.NewQuantity(3), b.Quantity)
	apptest.EqualMoney(t, "120", b.UnitCost)

	stored, err := f.Sales.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusConfirmed, stored.Status)
	apptest.EqualMoney(t, "120", stored.Lines[0].UnitCost)
	apptest.EqualMoney(t, "600", stored.TotalAmount)
}

func TestConfirm_Shortage(t *testing.T) {
	f := apptest.New(t)
	ctx := apptest.Admin()
	wh := f.Warehouse(t, "SHOP")
	cake := f.Item(t, "CAKE", item.KindFinished)
	f.Receive(t, wh, cake, 1, "120")

	s := sale.NewSale(f.Clock.Now(), "admin", wh)
	s.AddLine(cake, types.NewQuantity(2), types.MustMoney("300"))
	require.NoError(t, f.Sales.Create(ctx, s))

	err := f.Sales.Confirm(ctx, s.ID)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeShortage))
	assert.Equal(t, types.NewQuantity(1), f.Balance(t, wh, cake).Quantity)
}

func TestRevert_NotSupported(t *testing.T) {
	f := apptest.New(t)
	ctx := apptest.Admin()
	wh := f.Warehouse(t, "SHOP")
	cake := f.Item(t, "CAKE", item.KindFinished)
	f.Receive(t, wh, cake, 1, "120")

	s := sale.NewSale(f.Clock.Now(), "admin", wh)
	s.AddLine(cake, types.NewQuantity(1), types.MustMoney("300"))
	require.NoError(t, f.Sales.Create(ctx, s))
	require.NoError(t, f.Sales.Confirm(ctx, s.ID))

	err := f.Sales.Revert(ctx, s.ID)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeBusinessRule))
}

func TestCancelAndDelete(t *testing.T) {
	f := apptest.New(t)
	ctx := apptest.Admin()
	wh := f.Warehouse(t, "SHOP")
	cake := f.Item(t, "CAKE", item.KindFinished)

	s := sale.NewSale(f.Clock.Now(), "admin", wh)
	s.AddLine(cake, types.NewQuantity(1), types.MustMoney("300"))
	require.NoError(t, f.Sales.Create(ctx, s))
	require.NoError(t, f.Sales.Cancel(ctx, s.ID))
	require.NoError(t, f.Sales.Cancel(ctx, s.ID))

	err := f.Sales.Confirm(ctx, s.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeStateConflict))

	require.NoError(t, f.Sales.Delete(ctx, s.ID))
	_, err = f.Sales.GetByID(ctx, s.ID)
	assert.True(t, apperror.IsNotFound(err))
}

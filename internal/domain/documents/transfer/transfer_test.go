package transfer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"konditer/internal/app/apptest"
	"konditer/internal/core/apperror"
	"konditer/internal/core/entity"
	"konditer/internal/core/types"
	"konditer/internal/domain/catalogs/item"
	"konditer/internal/domain/documents/transfer"
)

func TestConfirmAndRevert(t *testing.T) {
	f := apptest.New(t)
	ctx := apptest.Admin()
	a := f.Warehouse(t, "A")
	b := f.Warehouse(t, "B")
	cocoa := f.Item(t, "COCOA", item.KindRawMaterial)
	f.Receive(t, a, cocoa, 10, "5")

	tr := transfer.NewTransfer(f.Clock.Now(), "admin", a, b)
	tr.AddLine(cocoa, types.NewQuantity(4))
	require.NoError(t, f.Transfers.Create(ctx, tr))
	require.NoError(t, f.Transfers.Confirm(ctx, tr.ID))

	src, dst := f.Balance(t, a, cocoa), f.Balance(t, b, cocoa)
	assert.Equal(t, types.NewQuantity(6), src.Quantity)
	assert.Equal(t, types.NewQuantity(4), dst.Quantity)
	apptest.EqualMoney(t, "5", dst.UnitCost)
	assert.Equal(t, types.NewQuantity(6), f.LedgerSum(t, a, cocoa))
	assert.Equal(t, types.NewQuantity(4), f.LedgerSum(t, b, cocoa))

	require.NoError(t, f.Transfers.Revert(ctx, tr.ID))

	assert.Equal(t, types.NewQuantity(10), f.Balance(t, a, cocoa).Quantity)
	assert.True(t, f.Balance(t, b, cocoa).Quantity.IsZero())
	assert.Equal(t, types.NewQuantity(10), f.LedgerSum(t, a, cocoa))
	assert.True(t, f.LedgerSum(t, b, cocoa).IsZero())

	stored, err := f.Transfers.GetByID(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusDraft, stored.Status)
}

func TestConfirm_ShortageLeavesNoPartialState(t *testing.T) {
	f := apptest.New(t)
	ctx := apptest.Admin()
	a := f.Warehouse(t, "A")
	b := f.Warehouse(t, "B")
	cocoa := f.Item(t, "COCOA", item.KindRawMaterial)
	milk := f.Item(t, "MILK", item.KindRawMaterial)
	f.Receive(t, a, cocoa, 10, "5")
	f.Receive(t, a, milk, 1, "2")

	tr := transfer.NewTransfer(f.Clock.Now(), "admin", a, b)
	tr.AddLine(cocoa, types.NewQuantity(4))
	tr.AddLine(milk, types.NewQuantity(3))
	require.NoError(t, f.Transfers.Create(ctx, tr))

	err := f.Transfers.Confirm(ctx, tr.ID)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeShortage, appErr.Code)
	assert.Equal(t, 1, appErr.Details["line"])

	assert.Equal(t, types.NewQuantity(10), f.Balance(t, a, cocoa).Quantity)
	assert.True(t, f.Balance(t, b, cocoa).Quantity.IsZero())
	entries, err := f.Ledger.List(ctx, b, cocoa)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestConfirm_SameWarehouseRejected(t *testing.T) {
	f := apptest.New(t)
	a := f.Warehouse(t, "A")
	cocoa := f.Item(t, "COCOA", item.KindRawMaterial)

	tr := transfer.NewTransfer(f.Clock.Now(), "admin", a, a)
	tr.AddLine(cocoa, types.NewQuantity(1))
	err := f.Transfers.Create(apptest.Admin(), tr)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestRevert_DestinationConsumed(t *testing.T) {
	f := apptest.New(t)
	ctx := apptest.Admin()
	a := f.Warehouse(t, "A")
	b := f.Warehouse(t, "B")
	cocoa := f.Item(t, "COCOA", item.KindRawMaterial)
	f.Receive(t, a, cocoa, 10, "5")

	tr := transfer.NewTransfer(f.Clock.Now(), "admin", a, b)
	tr.AddLine(cocoa, types.NewQuantity(4))
	require.NoError(t, f.Transfers.Create(ctx, tr))
	require.NoError(t, f.Transfers.Confirm(ctx, tr.ID))

	back := transfer.NewTransfer(f.Clock.Now(), "admin", b, a)
	back.AddLine(cocoa, types.NewQuantity(3))
	require.NoError(t, f.Transfers.Create(ctx, back))
	require.NoError(t, f.Transfers.Confirm(ctx, back.ID))

	err := f.Transfers.Revert(ctx, tr.ID)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeIrreversible))
	assert.Equal(t, types.NewQuantity(1), f.Balance(t, b, cocoa).Quantity)
}

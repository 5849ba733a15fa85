package reconcile_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"konditer/internal/app/apptest"
	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/core/types"
	"konditer/internal/domain/audit"
	"konditer/internal/domain/catalogs/item"
	"konditer/internal/domain/reconcile"
)

func TestRecomputeBalances(t *testing.T) {
	f := apptest.New(t)
	ctx := context.Background()
	wh := f.Warehouse(t, "MAIN")
	flour := f.Item(t, "FLOUR", item.KindRawMaterial)
	sugar := f.Item(t, "SUGAR", item.KindRawMaterial)
	salt := f.Item(t, "SALT", item.KindRawMaterial)

	f.Receive(t, wh, flour, 40, "2")
	f.Receive(t, wh, sugar, 10, "3")

	// drift: a balance edited behind the ledger's back, and one with no movements
	drifted := f.Balance(t, wh, flour)
	drifted.Quantity = types.NewQuantity(35)
	require.NoError(t, f.Memory.Balances.Save(ctx, drifted))
	require.NoError(t, f.Memory.Balances.Save(ctx, entity.Balance{
		WarehouseID: wh, ItemID: salt, Quantity: types.NewQuantity(5), UnitCost: types.MustMoney("1"),
	}))

	// an entry whose document no longer exists
	require.NoError(t, f.Memory.Ledger.Upsert(ctx, []entity.MovementEntry{{
		ID: id.New(), WarehouseID: wh, ItemID: sugar, QuantityDelta: types.NewQuantity(100),
		DocumentType: entity.DocumentTypePurchase, DocumentID: id.New(), RecordedAt: f.Clock.Now(),
	}}))

	summary, err := f.Reconcile.RecomputeBalances(ctx)
	require.NoError(t, err)
	assert.Equal(t, reconcile.Summary{Updated: 2, Created: 0, Unchanged: 1, Orphaned: 1}, summary)

	assert.Equal(t, types.NewQuantity(40), f.Balance(t, wh, flour).Quantity)
	apptest.EqualMoney(t, "2", f.Balance(t, wh, flour).UnitCost)
	assert.Equal(t, types.NewQuantity(10), f.Balance(t, wh, sugar).Quantity)
	assert.True(t, f.Balance(t, wh, salt).Quantity.IsZero())
	apptest.EqualMoney(t, "1", f.Balance(t, wh, salt).UnitCost)

	again, err := f.Reconcile.RecomputeBalances(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Updated)
	assert.Equal(t, 0, again.Created)
	assert.Equal(t, 3, again.Unchanged)

	history, err := f.Memory.History.History(ctx, "balances", id.Nil, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, audit.ActionRecompute, history[0].Action)
	assert.Equal(t, "system", history[0].Actor)
}

func TestRecomputeBalances_IgnoresRevertedDocuments(t *testing.T) {
	f := apptest.New(t)
	ctx := apptest.Admin()
	wh := f.Warehouse(t, "MAIN")
	flour := f.Item(t, "FLOUR", item.KindRawMaterial)

	f.Receive(t, wh, flour, 40, "2")
	p := f.Receive(t, wh, flour, 10, "2")
	require.NoError(t, f.Purchases.Revert(ctx, p.ID))

	summary, err := f.Reconcile.RecomputeBalances(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Unchanged)
	assert.Equal(t, types.NewQuantity(40), f.Balance(t, wh, flour).Quantity)
}

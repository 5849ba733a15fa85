package lowstock_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"konditer/internal/app"
	"konditer/internal/app/apptest"
	"konditer/internal/core/types"
	"konditer/internal/domain/catalogs/item"
	"konditer/internal/domain/lowstock"
)

type recorder struct {
	mu     sync.Mutex
	alerts []lowstock.Alert
}

func (r *recorder) Notify(_ context.Context, a lowstock.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return nil
}

func TestChecker_AlertsOncePerWindow(t *testing.T) {
	rec := &recorder{}
	f := apptest.New(t, func(o *app.Options) { o.Notifier = rec })
	ctx := context.Background()
	wh := f.Warehouse(t, "MAIN")
	flour := f.Item(t, "FLOUR", item.KindRawMaterial, func(i *item.Item) {
		i.MinStock = types.NewQuantity(10)
	})
	sugar := f.Item(t, "SUGAR", item.KindRawMaterial)
	f.Receive(t, wh, flour, 4, "2")
	f.Receive(t, wh, sugar, 1, "2")

	sent, err := f.LowStock.Check(ctx, &wh)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, rec.alerts, 1)
	assert.Equal(t, flour, rec.alerts[0].ItemID)
	assert.Equal(t, "FLOUR", rec.alerts[0].ItemCode)
	assert.Equal(t, types.NewQuantity(4), rec.alerts[0].Quantity)

	sent, err = f.LowStock.Check(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, sent)

	f.Clock.Advance(lowstock.SuppressFor + time.Minute)
	sent, err = f.LowStock.Check(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestChecker_NoAlertAboveMinimum(t *testing.T) {
	rec := &recorder{}
	f := apptest.New(t, func(o *app.Options) { o.Notifier = rec })
	wh := f.Warehouse(t, "MAIN")
	flour := f.Item(t, "FLOUR", item.KindRawMaterial, func(i *item.Item) {
		i.MinStock = types.NewQuantity(10)
	})
	f.Receive(t, wh, flour, 10, "2")

	sent, err := f.LowStock.Check(context.Background(), &wh)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, rec.alerts)
}

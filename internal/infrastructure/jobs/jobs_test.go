package jobs_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"konditer/internal/app"
	"konditer/internal/app/apptest"
	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/core/types"
	"konditer/internal/domain/catalogs/item"
	"konditer/internal/domain/events"
	"konditer/internal/domain/lowstock"
	"konditer/internal/domain/reconcile"
	"konditer/internal/infrastructure/jobs"
	"konditer/internal/infrastructure/storage/postgres"
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

type fakeEnqueuer struct {
	got []events.LowStockCheckRequested
	err error
}

func (f *fakeEnqueuer) EnqueueLowStockCheck(_ context.Context, p events.LowStockCheckRequested) error {
	f.got = append(f.got, p)
	return f.err
}

type reconcileSpy struct {
	summary reconcile.Summary
	err     error
	calls   int
}

func (s *reconcileSpy) ObserveReconcile(summary reconcile.Summary, err error) {
	s.summary, s.err = summary, err
	s.calls++
}

func lowFlour(t *testing.T, rec *recorder) (*apptest.Fixture, id.ID, id.ID) {
	t.Helper()
	f := apptest.New(t, func(o *app.Options) { o.Notifier = rec })
	wh := f.Warehouse(t, "MAIN")
	flour := f.Item(t, "FLOUR", item.KindRawMaterial, func(i *item.Item) {
		i.MinStock = types.NewQuantity(10)
	})
	f.Receive(t, wh, flour, 3, "1.50")
	return f, wh, flour
}

func TestHandleLowStockCheck(t *testing.T) {
	rec := &recorder{}
	f, wh, _ := lowFlour(t, rec)
	h := &jobs.Handlers{LowStock: f.LowStock, Reconcile: f.Reconcile}

	task, err := jobs.NewLowStockCheckTask(events.LowStockCheckRequested{
		WarehouseID:  &wh,
		DocumentType: entity.DocumentTypePurchase,
		DocumentID:   id.New(),
		RequestedAt:  f.Clock.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, jobs.TaskLowStockCheck, task.Type())

	require.NoError(t, h.HandleLowStockCheck(context.Background(), task))
	require.Len(t, rec.alerts, 1)
	assert.Equal(t, "FLOUR", rec.alerts[0].ItemCode)
}

func TestHandlers_MalformedPayloadSkipsRetry(t *testing.T) {
	f := apptest.New(t)
	h := &jobs.Handlers{LowStock: f.LowStock, Reconcile: f.Reconcile}

	err := h.HandleLowStockCheck(context.Background(), asynq.NewTask(jobs.TaskLowStockCheck, []byte("{")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	err = h.HandleReconcile(context.Background(), asynq.NewTask(jobs.TaskReconcile, []byte("nope")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandleReconcile_RepairsDrift(t *testing.T) {
	rec := &recorder{}
	f, wh, flour := lowFlour(t, rec)
	spy := &reconcileSpy{}
	h := &jobs.Handlers{LowStock: f.LowStock, Reconcile: f.Reconcile, Metrics: spy}

	drifted := f.Balance(t, wh, flour)
	drifted.Quantity = types.NewQuantity(99)
	require.NoError(t, f.Memory.Balances.Save(context.Background(), drifted))

	task, err := jobs.NewReconcileTask(f.Clock.Now())
	require.NoError(t, err)
	require.NoError(t, h.HandleReconcile(context.Background(), task))

	assert.Equal(t, types.NewQuantity(3), f.Balance(t, wh, flour).Quantity)
	assert.Equal(t, 1, spy.calls)
	assert.NoError(t, spy.err)
	assert.Equal(t, 1, spy.summary.Updated)
}

func TestHandlers_TaskHandlers(t *testing.T) {
	h := &jobs.Handlers{}
	registered := map[string]bool{}
	for _, th := range h.TaskHandlers() {
		registered[th.Type] = th.Handler != nil
	}
	assert.Equal(t, map[string]bool{jobs.TaskLowStockCheck: true, jobs.TaskReconcile: true}, registered)
}

func TestDispatcher_RoutesLowStockEvents(t *testing.T) {
	enq := &fakeEnqueuer{}
	d := jobs.NewDispatcher(enq)
	wh := id.New()
	payload, err := json.Marshal(events.LowStockCheckRequested{WarehouseID: &wh, DocumentNumber: "PU-000001"})
	require.NoError(t, err)

	require.NoError(t, d.Handle(context.Background(), &postgres.OutboxMessage{
		EventType: events.TypeLowStockCheckRequested,
		Payload:   payload,
	}))
	require.NoError(t, d.Dispatch(context.Background(), events.TypeDocumentConfirmed, []byte(`{}`)))

	require.Len(t, enq.got, 1)
	assert.Equal(t, wh, *enq.got[0].WarehouseID)
	assert.Equal(t, "PU-000001", enq.got[0].DocumentNumber)

	assert.Error(t, d.Dispatch(context.Background(), events.TypeLowStockCheckRequested, []byte("{")))

	enq.err = errors.New("redis down")
	assert.Error(t, d.Dispatch(context.Background(), events.TypeLowStockCheckRequested, payload))
}

func TestDrainMemory_RunsChecksInline(t *testing.T) {
	rec := &recorder{}
	f, _, _ := lowFlour(t, rec)

	handled := jobs.DrainMemory(context.Background(), f.Memory.Outbox, jobs.NewDispatcher(jobs.Inline{Checker: f.LowStock}))
	assert.Positive(t, handled)
	assert.Len(t, rec.alerts, 1)
	assert.Empty(t, f.Memory.Outbox.Events())

	assert.Zero(t, jobs.DrainMemory(context.Background(), f.Memory.Outbox, jobs.NewDispatcher(jobs.Inline{Checker: f.LowStock})))
}

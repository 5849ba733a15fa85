package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"konditer/internal/domain/events"
	"konditer/internal/infrastructure/storage/memory"
	"konditer/internal/infrastructure/storage/postgres"
	"konditer/pkg/logger"
)

// Dispatcher turns relayed outbox messages into work.
type Dispatcher struct {
	enqueuer Enqueuer
}

var _ postgres.OutboxHandler = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher feeding enqueuer.
func NewDispatcher(enqueuer Enqueuer) *Dispatcher {
	return &Dispatcher{enqueuer: enqueuer}
}

// Handle implements postgres.OutboxHandler.
func (d *Dispatcher) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	return d.Dispatch(ctx, msg.EventType, msg.Payload)
}

// Dispatch routes one event. Events without a consumer are logged and dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, eventType string, payload []byte) error {
	switch eventType {
	case events.TypeLowStockCheckRequested:
		var p events.LowStockCheckRequested
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("decode %s: %w", eventType, err)
		}
		return d.enqueuer.EnqueueLowStockCheck(ctx, p)
	default:
		logger.Debug(ctx, "outbox event has no consumer", "event_type", eventType)
		return nil
	}
}

// DrainMemory dispatches and forgets every event in an in-memory outbox.
// Failed events are logged; the memory outbox has no retry.
func DrainMemory(ctx context.Context, outbox *memory.Outbox, d *Dispatcher) int {
	handled := 0
	for _, ev := range outbox.Drain() {
		payload, err := json.Marshal(ev.Payload)
		if err == nil {
			err = d.Dispatch(ctx, ev.Type, payload)
		}
		if err != nil {
			logger.Warn(ctx, "outbox event failed", "event_type", ev.Type, "error", err)
			continue
		}
		handled++
	}
	return handled
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"konditer/internal/core/clock"
	"konditer/internal/core/id"
	"konditer/internal/domain/events"
	"konditer/pkg/logger"
)

// OutboxStatus represents the state of an outbox message.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// maxOutboxRetries is the attempt count after which a message is parked as failed.
const maxOutboxRetries = 5

// OutboxMessage represents a message in the transactional outbox.
type OutboxMessage struct {
	ID            id.ID        `db:"id"`
	AggregateType string       `db:"aggregate_type"`
	AggregateID   id.ID        `db:"aggregate_id"`
	EventType     string       `db:"event_type"`
	Payload       []byte       `db:"payload"`
	Status        OutboxStatus `db:"status"`
	RetryCount    int          `db:"retry_count"`
	LastError     *string      `db:"last_error"`
	NextRetryAt   *time.Time   `db:"next_retry_at"`
	CreatedAt     time.Time    `db:"created_at"`
	PublishedAt   *time.Time   `db:"published_at"`
}

// OutboxPublisher writes domain events to sys_outbox inside the current transaction.
type OutboxPublisher struct {
	txManager *TxManager
	clock     clock.Clock
}

var _ events.Publisher = (*OutboxPublisher)(nil)

// NewOutboxPublisher creates a new outbox publisher.
func NewOutboxPublisher(txManager *TxManager, clk clock.Clock) *OutboxPublisher {
	return &OutboxPublisher{txManager: txManager, clock: clk}
}

// Publish queues every event in one round-trip. It must run inside a transaction.
func (p *OutboxPublisher) Publish(ctx context.Context, evs ...events.Event) error {
	if len(evs) == 0 {
		return nil
	}
	tx := p.txManager.GetTx(ctx)
	if tx == nil {
		return fmt.Errorf("outbox publish requires transaction context")
	}

	batch := &pgx.Batch{}
	now := p.clock.Now()
	for _, ev := range evs {
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", ev.Type, err)
		}
		batch.Queue(`
			INSERT INTO sys_outbox (id, aggregate_type, aggregate_id, event_type, payload, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, id.New(), ev.AggregateType, ev.AggregateID, ev.Type, payload, OutboxStatusPending, now)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()
	for range evs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert outbox message: %w", err)
		}
	}
	return nil
}

// OutboxHandler processes outbox messages.
type OutboxHandler interface {
	Handle(ctx context.Context, msg *OutboxMessage) error
}

// OutboxRelay moves pending messages to a handler. The worker runs it on a ticker.
type OutboxRelay struct {
	txManager *TxManager
	batchSize int
	handler   OutboxHandler
	clock     clock.Clock
}

// NewOutboxRelay creates a new outbox relay.
func NewOutboxRelay(txManager *TxManager, batchSize int, handler OutboxHandler, clk clock.Clock) *OutboxRelay {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxRelay{
		txManager: txManager,
		batchSize: batchSize,
		handler:   handler,
		clock:     clk,
	}
}

// ProcessBatch locks a batch of due messages, hands each to the handler and records
// the outcome. Rows stay locked until the batch transaction ends, so concurrent
// relays skip them. Returns the number of messages handled successfully.
func (r *OutboxRelay) ProcessBatch(ctx context.Context) (int, error) {
	processed := 0
	err := r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		q := r.txManager.GetQuerier(ctx)

		var messages []*OutboxMessage
		if err := pgxscan.Select(ctx, q, &messages, `
			SELECT id, aggregate_type, aggregate_id, event_type, payload, status,
			       retry_count, last_error, next_retry_at, created_at, published_at
			FROM sys_outbox
			WHERE status = $1
			  AND (next_retry_at IS NULL OR next_retry_at <= $2)
			ORDER BY created_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		`, OutboxStatusPending, r.clock.Now(), r.batchSize); err != nil {
			return fmt.Errorf("fetch outbox messages: %w", err)
		}

		for _, msg := range messages {
			if err := r.processMessage(ctx, q, msg); err != nil {
				logger.Warn(ctx, "outbox message failed",
					"message_id", msg.ID, "event_type", msg.EventType, "error", err)
				continue
			}
			processed++
		}
		return nil
	})
	return processed, err
}

func (r *OutboxRelay) processMessage(ctx context.Context, q Querier, msg *OutboxMessage) error {
	now := r.clock.Now()
	if err := r.handler.Handle(ctx, msg); err != nil {
		// linear backoff: 1m, 2m, 3m...
		nextRetry := now.Add(time.Duration(msg.RetryCount+1) * time.Minute)
		status := OutboxStatusPending
		if msg.RetryCount+1 >= maxOutboxRetries {
			status = OutboxStatusFailed
		}
		if _, updateErr := q.Exec(ctx, `
			UPDATE sys_outbox
			SET retry_count = retry_count + 1, last_error = $1, next_retry_at = $2, status = $3
			WHERE id = $4
		`, err.Error(), nextRetry, status, msg.ID); updateErr != nil {
			return fmt.Errorf("update failed message: %w", updateErr)
		}
		return err
	}

	_, err := q.Exec(ctx, `
		UPDATE sys_outbox SET status = $1, published_at = $2 WHERE id = $3
	`, OutboxStatusPublished, now, msg.ID)
	return err
}

// PurgePublished deletes published messages older than retention.
func (r *OutboxRelay) PurgePublished(ctx context.Context, retention time.Duration) (int64, error) {
	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, `
		DELETE FROM sys_outbox WHERE status = $1 AND published_at < $2
	`, OutboxStatusPublished, r.clock.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("purge outbox: %w", err)
	}
	return tag.RowsAffected(), nil
}

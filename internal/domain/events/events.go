// Package events defines the domain events the inventory core emits.
package events

import (
	"context"
	"time"

	"konditer/internal/core/entity"
	"konditer/internal/core/id"
)

// Event types
const (
	TypeLowStockCheckRequested = "LowStockCheckRequested"
	TypeDocumentConfirmed      = "DocumentConfirmed"
	TypeDocumentReverted       = "DocumentReverted"
)

// Event is one message destined for the outbox.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	Type          string
	Payload       any
}

// Publisher records events inside the caller's transaction, so an event exists
// only if the state change that produced it committed.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// LowStockCheckRequested asks the low-stock consumer to compare balances of a
// warehouse (all warehouses when WarehouseID is nil) with item minimums.
type LowStockCheckRequested struct {
	WarehouseID    *id.ID              `json:"warehouseId,omitempty"`
	DocumentType   entity.DocumentType `json:"documentType"`
	DocumentID     id.ID               `json:"documentId"`
	DocumentNumber string              `json:"documentNumber"`
	RequestedAt    time.Time           `json:"requestedAt"`
}

// DocumentTransition is the payload of confirm and revert notifications.
type DocumentTransition struct {
	DocumentType   entity.DocumentType `json:"documentType"`
	DocumentID     id.ID               `json:"documentId"`
	DocumentNumber string              `json:"documentNumber"`
	Status         entity.Status       `json:"status"`
	Actor          string              `json:"actor,omitempty"`
	At             time.Time           `json:"at"`
}

// NewLowStockCheck wraps a LowStockCheckRequested payload into an Event.
func NewLowStockCheck(p LowStockCheckRequested) Event {
	aggregate := p.DocumentID
	return Event{
		AggregateType: string(p.DocumentType),
		AggregateID:   aggregate,
		Type:          TypeLowStockCheckRequested,
		Payload:       p,
	}
}

// NewTransition wraps a document transition into an Event of the given type.
func NewTransition(eventType string, p DocumentTransition) Event {
	return Event{
		AggregateType: string(p.DocumentType),
		AggregateID:   p.DocumentID,
		Type:          eventType,
		Payload:       p,
	}
}

// Package audit defines the audit trail written alongside every stock-changing
// operation.
package audit

import (
	"context"
	"time"

	"konditer/internal/core/id"
)

// Action is the audited operation.
type Action string

const (
	ActionCreate        Action = "create"
	ActionUpdate        Action = "update"
	ActionConfirm       Action = "confirm"
	ActionRevert        Action = "revert"
	ActionCancel        Action = "cancel"
	ActionCompleteStage Action = "complete_stage"
	ActionDelete        Action = "delete"
	ActionRecompute     Action = "recompute"
)

// Record is one audit entry. Changes is serialized as JSON by the recorder.
type Record struct {
	EntityType string
	EntityID   id.ID
	Action     Action
	Actor      string
	Changes    any
	At         time.Time
}

// Recorder persists audit records in the caller's transaction.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// Entry is a stored audit record as read back for history views.
type Entry struct {
	ID         id.ID     `json:"id"`
	EntityType string    `json:"entityType"`
	EntityID   id.ID     `json:"entityId"`
	Action     Action    `json:"action"`
	Actor      string    `json:"actor"`
	Changes    []byte    `json:"changes"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Reader returns the audit history of one entity, newest first.
type Reader interface {
	History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]Entry, error)
}

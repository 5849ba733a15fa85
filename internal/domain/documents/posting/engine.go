package posting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"konditer/internal/core/apperror"
	"konditer/internal/core/clock"
	appctx "konditer/internal/core/context"
	"konditer/internal/core/entity"
	"konditer/internal/core/tx"
	"konditer/internal/domain/audit"
	"konditer/internal/domain/events"
	"konditer/internal/domain/registers/ledger"
	"konditer/internal/domain/registers/stock"
	"konditer/pkg/logger"
)

// ErrUnchanged is returned by Transition.Apply when the document is already in
// the requested state. Run treats it as success and writes nothing.
var ErrUnchanged = errors.New("posting: document unchanged")

// Transition describes one state change of one document.
type Transition struct {
	Operation audit.Action

	// Load reads the document and locks its row for the transaction.
	Load func(ctx context.Context) (Document, error)

	// Apply checks the current status and performs the change.
	Apply func(ctx context.Context, doc Document, s *Session) error

	// Save persists the document after Apply.
	Save func(ctx context.Context) error

	// RecordMovements appends the session's entries to the ledger.
	RecordMovements bool

	// CheckLowStock publishes LowStockCheckRequested for every warehouse the
	// session wrote to.
	CheckLowStock bool
}

// Engine runs document transitions.
type Engine struct {
	txm       tx.Manager
	stock     *stock.Service
	ledger    *ledger.Service
	refs      ReferenceChecker
	publisher events.Publisher
	auditor   audit.Recorder
	clock     clock.Clock
	observer  Observer
}

// Config wires an Engine.
type Config struct {
	TxManager  tx.Manager
	Stock      *stock.Service
	Ledger     *ledger.Service
	References ReferenceChecker
	Publisher  events.Publisher
	Auditor    audit.Recorder
	Clock      clock.Clock
	Observer   Observer
}

// NewEngine creates a posting engine.
func NewEngine(cfg Config) *Engine {
	e := &Engine{
		txm:       cfg.TxManager,
		stock:     cfg.Stock,
		ledger:    cfg.Ledger,
		refs:      cfg.References,
		publisher: cfg.Publisher,
		auditor:   cfg.Auditor,
		clock:     cfg.Clock,
		observer:  cfg.Observer,
	}
	if e.observer == nil {
		e.observer = nopObserver{}
	}
	if e.clock == nil {
		e.clock = clock.System{}
	}
	return e
}

// Clock returns the engine time source.
func (e *Engine) Clock() clock.Clock { return e.clock }

// Stock returns the balance store the engine writes to.
func (e *Engine) Stock() *stock.Service { return e.stock }

// Ledger returns the movement ledger.
func (e *Engine) Ledger() *ledger.Service { return e.ledger }

// TxManager returns the transaction manager the engine runs in.
func (e *Engine) TxManager() tx.Manager { return e.txm }

// Confirm moves a draft document to its applied status. Nothing is written
// unless every line applies.
func (e *Engine) Confirm(ctx context.Context, load func(ctx context.Context) (Postable, error), save func(ctx context.Context) error) error {
	return e.Run(ctx, Transition{
		Operation: audit.ActionConfirm,
		Load: func(ctx context.Context) (Document, error) {
			return load(ctx)
		},
		Apply: func(ctx context.Context, d Document, s *Session) error {
			doc := d.(Postable)
			if doc.GetStatus() != entity.StatusDraft {
				return apperror.NewStateConflict(string(doc.DocumentType()), doc.GetID(), doc.GetStatus().String(), "confirm")
			}
			if err := e.Prepare(ctx, doc); err != nil {
				return err
			}
			if err := doc.Post(ctx, s); err != nil {
				return err
			}
			doc.MarkApplied(doc.AppliedStatus(), s.Now(), s.Actor())
			s.Emit(events.TypeDocumentConfirmed)
			return nil
		},
		Save:            save,
		RecordMovements: true,
		CheckLowStock:   true,
	})
}

// Revert returns a confirmed document to draft, undoing its balance changes.
// Its movement entries stay in the ledger but stop counting.
func (e *Engine) Revert(ctx context.Context, load func(ctx context.Context) (Unpostable, error), save func(ctx context.Context) error) error {
	return e.Run(ctx, Transition{
		Operation: audit.ActionRevert,
		Load: func(ctx context.Context) (Document, error) {
			return load(ctx)
		},
		Apply: func(ctx context.Context, d Document, s *Session) error {
			doc := d.(Unpostable)
			if doc.GetStatus() != doc.AppliedStatus() {
				return apperror.NewStateConflict(string(doc.DocumentType()), doc.GetID(), doc.GetStatus().String(), "revert")
			}
			if err := e.stock.Lock(ctx, doc.BalanceKeys()); err != nil {
				return err
			}
			if err := doc.Unpost(ctx, s); err != nil {
				return err
			}
			doc.MarkDraft(s.Now(), s.Actor())
			s.Emit(events.TypeDocumentReverted)
			return nil
		},
		Save:          save,
		CheckLowStock: true,
	})
}

// Cancel abandons a document that has not been applied. from lists the
// statuses cancel is allowed in; draft when empty.
func (e *Engine) Cancel(ctx context.Context, load func(ctx context.Context) (Cancellable, error), save func(ctx context.Context) error, from ...entity.Status) error {
	if len(from) == 0 {
		from = []entity.Status{entity.StatusDraft}
	}
	return e.Run(ctx, Transition{
		Operation: audit.ActionCancel,
		Load: func(ctx context.Context) (Document, error) {
			return load(ctx)
		},
		Apply: func(ctx context.Context, d Document, s *Session) error {
			doc := d.(Cancellable)
			if doc.GetStatus() == entity.StatusCancelled {
				return ErrUnchanged
			}
			for _, st := range from {
				if doc.GetStatus() == st {
					doc.MarkCancelled(s.Now(), s.Actor())
					return nil
				}
			}
			return apperror.NewStateConflict(string(doc.DocumentType()), doc.GetID(), doc.GetStatus().String(), "cancel")
		},
		Save: save,
	})
}

// Prepare validates a document and its references and locks every balance
// it declares, in key order.
func (e *Engine) Prepare(ctx context.Context, doc Postable) error {
	if err := doc.Validate(ctx); err != nil {
		return err
	}
	if e.refs != nil {
		if err := e.refs.CheckReferences(ctx, doc.References()); err != nil {
			return err
		}
	}
	return e.stock.Lock(ctx, doc.BalanceKeys())
}

// Run executes t in one transaction. Any error rolls back every write.
func (e *Engine) Run(ctx context.Context, t Transition) error {
	started := time.Now()
	actor := appctx.GetUserID(ctx)
	docType := "unknown"

	var doc Document
	err := e.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		doc, err = t.Load(ctx)
		if err != nil {
			return err
		}
		docType = string(doc.DocumentType())
		before := doc.GetStatus()

		s := newSession(e.stock, doc, actor, e.clock.Now())
		if err := t.Apply(ctx, doc, s); err != nil {
			return err
		}

		if t.RecordMovements {
			if err := e.ledger.Append(ctx, s.Entries()); err != nil {
				return err
			}
		}
		if t.Save != nil {
			if err := t.Save(ctx); err != nil {
				return fmt.Errorf("save %s: %w", docType, err)
			}
		}
		if err := e.record(ctx, t, doc, before, s); err != nil {
			return err
		}
		return e.publish(ctx, t, doc, s)
	})

	outcome := OutcomeSuccess
	switch {
	case errors.Is(err, ErrUnchanged):
		err = nil
	case err != nil:
		outcome = OutcomeError
		if _, ok := apperror.AsAppError(err); ok {
			outcome = OutcomeRejected
		}
	}
	e.observer.ObserveTransition(docType, string(t.Operation), outcome, time.Since(started))

	if err != nil {
		return err
	}
	if doc != nil {
		logger.Info(ctx, "document transition",
			"operation", t.Operation,
			"document_type", docType,
			"document_id", doc.GetID(),
			"number", doc.GetNumber(),
			"status", doc.GetStatus())
	}
	return nil
}

func (e *Engine) record(ctx context.Context, t Transition, doc Document, before entity.Status, s *Session) error {
	if e.auditor == nil {
		return nil
	}
	changes := map[string]any{
		"status": map[string]entity.Status{"from": before, "to": doc.GetStatus()},
	}
	if entries := s.Entries(); len(entries) > 0 {
		changes["movements"] = entries
	}
	err := e.auditor.Record(ctx, audit.Record{
		EntityType: string(doc.DocumentType()),
		EntityID:   doc.GetID(),
		Action:     t.Operation,
		Actor:      s.Actor(),
		Changes:    changes,
		At:         s.Now(),
	})
	if err != nil {
		return fmt.Errorf("record audit: %w", err)
	}
	return nil
}

func (e *Engine) publish(ctx context.Context, t Transition, doc Document, s *Session) error {
	if e.publisher == nil {
		return nil
	}
	var out []events.Event
	for _, eventType := range s.emitted {
		out = append(out, events.NewTransition(eventType, events.DocumentTransition{
			DocumentType:   doc.DocumentType(),
			DocumentID:     doc.GetID(),
			DocumentNumber: doc.GetNumber(),
			Status:         doc.GetStatus(),
			Actor:          s.Actor(),
			At:             s.Now(),
		}))
	}
	if t.CheckLowStock {
		for _, wh := range s.Warehouses() {
			wh := wh
			out = append(out, events.NewLowStockCheck(events.LowStockCheckRequested{
				WarehouseID:    &wh,
				DocumentType:   doc.DocumentType(),
				DocumentID:     doc.GetID(),
				DocumentNumber: doc.GetNumber(),
				RequestedAt:    s.Now(),
			}))
		}
	}
	if len(out) == 0 {
		return nil
	}
	if err := e.publisher.Publish(ctx, out...); err != nil {
		return fmt.Errorf("publish events: %w", err)
	}
	return nil
}

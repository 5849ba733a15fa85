package production

import (
	"context"
	"fmt"
	"time"

	"konditer/internal/core/apperror"
	appctx "konditer/internal/core/context"
	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/core/numerator"
	"konditer/internal/core/security"
	"konditer/internal/core/types"
	"konditer/internal/domain"
	"konditer/internal/domain/audit"
	"konditer/internal/domain/catalogs/recipe"
	"konditer/internal/domain/costing"
	"konditer/internal/domain/documents"
	"konditer/internal/domain/documents/posting"
	"konditer/internal/domain/events"
)

// Repository persists production orders with lines and stage progress.
type Repository = documents.Repository[*Order]

// RecipeReader loads recipes for new orders.
type RecipeReader interface {
	GetByID(ctx context.Context, id id.ID) (*recipe.Recipe, error)
}

// CreateInput describes a new order.
type CreateInput struct {
	RecipeID          id.ID
	SourceWarehouseID id.ID
	OutputWarehouseID id.ID
	Quantity          types.Quantity

	// MaxStage overrides the recipe stage count when positive
	MaxStage int

	Date    time.Time
	Comment string
}

// Service runs the production workflow.
type Service struct {
	docs    *documents.Service[*Order]
	repo    Repository
	recipes RecipeReader
	costs   *costing.Engine
	engine  *posting.Engine
	auditor audit.Recorder
}

// NewService creates a production service.
func NewService(
	repo Repository,
	recipes RecipeReader,
	costs *costing.Engine,
	engine *posting.Engine,
	gen numerator.Generator,
	auditor audit.Recorder,
) *Service {
	return &Service{
		docs:    documents.NewService[*Order](entity.DocumentTypeProduction, repo, engine, gen, auditor),
		repo:    repo,
		recipes: recipes,
		costs:   costs,
		engine:  engine,
		auditor: auditor,
	}
}

// Hooks returns the hook registry of production orders.
func (s *Service) Hooks() *domain.HookRegistry[*Order] {
	return s.docs.Hooks()
}

// Create materializes lines and stages from the recipe and stores a draft order.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Order, error) {
	r, err := s.recipes.GetByID(ctx, in.RecipeID)
	if apperror.IsNotFound(err) {
		return nil, apperror.NewReferential(posting.EntityRecipe, in.RecipeID.String(), "does not exist").
			WithDetail("field", "recipeId")
	}
	if err != nil {
		return nil, fmt.Errorf("load recipe: %w", err)
	}
	if !r.IsActive {
		return nil, apperror.NewReferential(posting.EntityRecipe, in.RecipeID.String(), "is inactive").
			WithDetail("field", "recipeId")
	}
	if in.MaxStage < 0 {
		return nil, apperror.NewValidation("max stage must not be negative").WithDetail("field", "maxStage")
	}

	o := NewOrder(s.engine.Clock().Now(), appctx.GetUserID(ctx), r,
		in.SourceWarehouseID, in.OutputWarehouseID, in.Quantity, in.MaxStage)
	if !in.Date.IsZero() {
		o.Date = in.Date
	}
	o.Comment = in.Comment

	if err := s.docs.Create(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// GetByID returns an order with lines and stages.
func (s *Service) GetByID(ctx context.Context, orderID id.ID) (*Order, error) {
	return s.docs.GetByID(ctx, orderID)
}

// List returns orders matching filter.
func (s *Service) List(ctx context.Context, filter documents.ListFilter) (domain.ListResult[*Order], error) {
	return s.docs.List(ctx, filter)
}

// Statuses implements ledger.StatusSource.
func (s *Service) Statuses(ctx context.Context, ids []id.ID) (map[id.ID]entity.Status, error) {
	return s.docs.Statuses(ctx, ids)
}

// UpdateLines replaces the required inputs. Only allowed before the first
// stage completes.
func (s *Service) UpdateLines(ctx context.Context, orderID id.ID, lines []Line) (*Order, error) {
	var o *Order
	err := s.engine.TxManager().RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.repo.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status != entity.StatusDraft || o.CurrentStage != 1 {
			return apperror.NewStateConflict(string(entity.DocumentTypeProduction), orderID, o.Status.String(), "edit lines")
		}
		o.SetLines(lines)
		if err := o.Validate(ctx); err != nil {
			return err
		}
		o.Touch(s.engine.Clock().Now(), appctx.GetUserID(ctx))
		if err := s.repo.Update(ctx, o); err != nil {
			return fmt.Errorf("update production order: %w", err)
		}
		return s.record(ctx, o.ID, audit.ActionUpdate, o.Lines)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// CompleteStage completes stage k, which must be the current stage. The final
// stage consumes inputs, produces the output and completes the order.
// Completing a stage of an already completed order changes nothing.
func (s *Service) CompleteStage(ctx context.Context, orderID id.ID, k int, machine, operator string) (*Order, error) {
	var o *Order
	err := s.engine.Run(ctx, posting.Transition{
		Operation: audit.ActionCompleteStage,
		Load: func(ctx context.Context) (posting.Document, error) {
			var err error
			o, err = s.repo.GetForUpdate(ctx, orderID)
			return o, err
		},
		Apply: func(ctx context.Context, _ posting.Document, sess *posting.Session) error {
			switch o.Status {
			case entity.StatusCompleted:
				return posting.ErrUnchanged
			case entity.StatusDraft, entity.StatusInProgress:
			default:
				return apperror.NewStateConflict(string(entity.DocumentTypeProduction), orderID, o.Status.String(), "complete stage")
			}
			if k < 1 || k > o.MaxStage {
				return apperror.NewValidation("stage out of range").
					WithDetail("stage", k).
					WithDetail("maxStage", o.MaxStage)
			}
			if k != o.CurrentStage {
				return apperror.NewStateConflict(string(entity.DocumentTypeProduction), orderID, o.Status.String(),
					fmt.Sprintf("complete stage %d", k)).
					WithDetail("currentStage", o.CurrentStage)
			}

			o.advance(k, sess.Now(), machine, operator)
			if k < o.MaxStage {
				o.Status = entity.StatusInProgress
				o.Touch(sess.Now(), sess.Actor())
				return nil
			}
			return s.complete(ctx, o, sess)
		},
		Save: func(ctx context.Context) error {
			return s.repo.Update(ctx, o)
		},
		RecordMovements: true,
		CheckLowStock:   true,
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) complete(ctx context.Context, o *Order, sess *posting.Session) error {
	if err := s.engine.Prepare(ctx, o); err != nil {
		return err
	}
	for i := range o.Lines {
		cost, err := s.costs.UnitCost(ctx, o.SourceWarehouseID, o.Lines[i].ItemID)
		if err != nil {
			return fmt.Errorf("cost line %d: %w", i, err)
		}
		o.Lines[i].UnitCost = cost
	}
	if err := o.Post(ctx, sess); err != nil {
		return err
	}
	o.MarkApplied(entity.StatusCompleted, sess.Now(), sess.Actor())
	sess.Emit(events.TypeDocumentConfirmed)
	return nil
}

// Revert returns a completed order to draft: the output is removed, the
// consumed inputs come back and stage progress restarts.
func (s *Service) Revert(ctx context.Context, orderID id.ID) error {
	if err := appctx.Require(ctx, security.CapProductionRevert); err != nil {
		return err
	}
	var o *Order
	return s.engine.Revert(ctx,
		func(ctx context.Context) (posting.Unpostable, error) {
			var err error
			o, err = s.repo.GetForUpdate(ctx, orderID)
			return o, err
		},
		func(ctx context.Context) error {
			return s.repo.Update(ctx, o)
		},
	)
}

// Cancel abandons an order that has not completed.
func (s *Service) Cancel(ctx context.Context, orderID id.ID) error {
	var o *Order
	return s.engine.Cancel(ctx,
		func(ctx context.Context) (posting.Cancellable, error) {
			var err error
			o, err = s.repo.GetForUpdate(ctx, orderID)
			return o, err
		},
		func(ctx context.Context) error {
			return s.repo.Update(ctx, o)
		},
		entity.StatusDraft, entity.StatusInProgress,
	)
}

// Delete removes an order. Anything past draft needs the production delete
// capability. A completed order has every movement it wrote subtracted from
// its balance (never below zero); the ledger rows of the order are removed in
// every case.
func (s *Service) Delete(ctx context.Context, orderID id.ID) error {
	var o *Order
	return s.engine.Run(ctx, posting.Transition{
		Operation: audit.ActionDelete,
		Load: func(ctx context.Context) (posting.Document, error) {
			var err error
			o, err = s.repo.GetForUpdate(ctx, orderID)
			return o, err
		},
		Apply: func(ctx context.Context, _ posting.Document, sess *posting.Session) error {
			if o.Status != entity.StatusDraft {
				if err := appctx.Require(ctx, security.CapProductionDelete); err != nil {
					return err
				}
			}
			if o.Status == entity.StatusCompleted {
				return s.rollbackMovements(ctx, o, sess)
			}
			ref := entity.DocumentRef{Type: entity.DocumentTypeProduction, ID: o.ID}
			if _, err := s.engine.Ledger().DeleteByDocument(ctx, ref); err != nil {
				return fmt.Errorf("delete order movements: %w", err)
			}
			return nil
		},
		Save: func(ctx context.Context) error {
			return s.repo.Delete(ctx, orderID)
		},
		CheckLowStock: true,
	})
}

func (s *Service) rollbackMovements(ctx context.Context, o *Order, sess *posting.Session) error {
	ref := entity.DocumentRef{Type: entity.DocumentTypeProduction, ID: o.ID}
	ledger := s.engine.Ledger()
	entries, err := ledger.ListByDocument(ctx, ref)
	if err != nil {
		return fmt.Errorf("list order movements: %w", err)
	}

	keys := make([]entity.BalanceKey, len(entries))
	for i, e := range entries {
		keys[i] = e.Key()
	}
	if err := s.engine.Stock().Lock(ctx, keys); err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := sess.Adjust(ctx, e.WarehouseID, e.ItemID, e.QuantityDelta.Neg()); err != nil {
			return err
		}
	}
	if _, err := ledger.DeleteByDocument(ctx, ref); err != nil {
		return fmt.Errorf("delete order movements: %w", err)
	}
	return nil
}

func (s *Service) record(ctx context.Context, orderID id.ID, action audit.Action, changes any) error {
	if s.auditor == nil {
		return nil
	}
	return s.auditor.Record(ctx, audit.Record{
		EntityType: string(entity.DocumentTypeProduction),
		EntityID:   orderID,
		Action:     action,
		Actor:      appctx.GetUserID(ctx),
		Changes:    changes,
		At:         s.engine.Clock().Now(),
	})
}

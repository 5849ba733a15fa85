package documents

import (
	"context"
	"fmt"

	"konditer/internal/core/apperror"
	appctx "konditer/internal/core/context"
	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/core/numerator"
	"konditer/internal/domain"
	"konditer/internal/domain/audit"
	"konditer/internal/domain/documents/posting"
	"konditer/pkg/logger"
)

// Service implements the operations every document type shares.
type Service[T Document] struct {
	repo      Repository[T]
	engine    *posting.Engine
	numerator numerator.Generator
	auditor   audit.Recorder
	docType   entity.DocumentType
	hooks     *domain.HookRegistry[T]
}

// NewService creates a document service for docType.
func NewService[T Document](
	docType entity.DocumentType,
	repo Repository[T],
	engine *posting.Engine,
	gen numerator.Generator,
	auditor audit.Recorder,
) *Service[T] {
	return &Service[T]{
		repo:      repo,
		engine:    engine,
		numerator: gen,
		auditor:   auditor,
		docType:   docType,
		hooks:     domain.NewHookRegistry[T](),
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service[T]) Hooks() *domain.HookRegistry[T] {
	return s.hooks
}

// Engine returns the posting engine documents are transitioned by.
func (s *Service[T]) Engine() *posting.Engine {
	return s.engine
}

// Create assigns a number and inserts a draft document.
func (s *Service[T]) Create(ctx context.Context, doc T) error {
	if doc.GetStatus() != entity.StatusDraft {
		return apperror.NewValidation("new documents must be drafts").WithDetail("status", doc.GetStatus())
	}
	if err := doc.Validate(ctx); err != nil {
		return err
	}

	err := s.engine.TxManager().RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.hooks.Run(ctx, domain.BeforeCreate, doc); err != nil {
			return err
		}
		if doc.GetNumber() == "" {
			number, err := s.numerator.GetNextNumber(ctx, numerator.ForDocument(s.docType), doc.GetDate())
			if err != nil {
				return fmt.Errorf("generate number: %w", err)
			}
			doc.SetNumber(number)
		}
		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create %s: %w", s.docType, err)
		}
		return s.audit(ctx, doc.GetID(), audit.ActionCreate, doc)
	})
	if err != nil {
		return err
	}

	s.afterSave(ctx, doc)
	logger.Info(ctx, "document created",
		"document_type", s.docType,
		"id", doc.GetID(),
		"number", doc.GetNumber())
	return nil
}

// GetByID returns a document with its lines.
func (s *Service[T]) GetByID(ctx context.Context, docID id.ID) (T, error) {
	return s.repo.GetByID(ctx, docID)
}

// List returns documents matching filter.
func (s *Service[T]) List(ctx context.Context, filter ListFilter) (domain.ListResult[T], error) {
	return s.repo.List(ctx, filter)
}

// Update replaces a draft document's header and lines.
func (s *Service[T]) Update(ctx context.Context, doc T) error {
	if err := doc.Validate(ctx); err != nil {
		return err
	}
	err := s.engine.TxManager().RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetForUpdate(ctx, doc.GetID())
		if err != nil {
			return err
		}
		if err := current.CanModify(); err != nil {
			return err
		}
		if err := s.hooks.Run(ctx, domain.BeforeUpdate, doc); err != nil {
			return err
		}
		doc.Touch(s.engine.Clock().Now(), appctx.GetUserID(ctx))
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update %s: %w", s.docType, err)
		}
		return s.audit(ctx, doc.GetID(), audit.ActionUpdate, doc)
	})
	if err != nil {
		return err
	}
	s.afterSave(ctx, doc)
	return nil
}

// Delete removes a draft or cancelled document. Applied documents must be
// reverted first; rows a reverted confirmation left in the ledger go with it.
func (s *Service[T]) Delete(ctx context.Context, docID id.ID) error {
	return s.engine.TxManager().RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.repo.GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		if st := doc.GetStatus(); st != entity.StatusDraft && st != entity.StatusCancelled {
			return apperror.NewStateConflict(string(s.docType), docID, st.String(), "delete")
		}
		ref := entity.DocumentRef{Type: s.docType, ID: docID}
		if _, err := s.engine.Ledger().DeleteByDocument(ctx, ref); err != nil {
			return fmt.Errorf("delete %s movements: %w", s.docType, err)
		}
		if err := s.repo.Delete(ctx, docID); err != nil {
			return fmt.Errorf("delete %s: %w", s.docType, err)
		}
		return s.audit(ctx, docID, audit.ActionDelete, map[string]any{"number": doc.GetNumber()})
	})
}

// Confirm applies a draft document to balances and the ledger.
func (s *Service[T]) Confirm(ctx context.Context, docID id.ID) error {
	var doc T
	return s.engine.Confirm(ctx,
		func(ctx context.Context) (posting.Postable, error) {
			var err error
			doc, err = s.repo.GetForUpdate(ctx, docID)
			return doc, err
		},
		func(ctx context.Context) error {
			return s.repo.Update(ctx, doc)
		},
	)
}

// Revert undoes a confirmation. Document types without an inverse reject it.
func (s *Service[T]) Revert(ctx context.Context, docID id.ID) error {
	var doc T
	return s.engine.Revert(ctx,
		func(ctx context.Context) (posting.Unpostable, error) {
			var err error
			doc, err = s.repo.GetForUpdate(ctx, docID)
			if err != nil {
				return nil, err
			}
			u, ok := any(doc).(posting.Unpostable)
			if !ok {
				return nil, apperror.NewBusinessRule(fmt.Sprintf("%s documents cannot be reverted", s.docType)).
					WithDetail("id", docID)
			}
			return u, nil
		},
		func(ctx context.Context) error {
			return s.repo.Update(ctx, doc)
		},
	)
}

// Cancel abandons a draft document.
func (s *Service[T]) Cancel(ctx context.Context, docID id.ID) error {
	var doc T
	return s.engine.Cancel(ctx,
		func(ctx context.Context) (posting.Cancellable, error) {
			var err error
			doc, err = s.repo.GetForUpdate(ctx, docID)
			return doc, err
		},
		func(ctx context.Context) error {
			return s.repo.Update(ctx, doc)
		},
	)
}

// Statuses implements ledger.StatusSource.
func (s *Service[T]) Statuses(ctx context.Context, ids []id.ID) (map[id.ID]entity.Status, error) {
	return s.repo.Statuses(ctx, ids)
}

func (s *Service[T]) audit(ctx context.Context, docID id.ID, action audit.Action, changes any) error {
	if s.auditor == nil {
		return nil
	}
	err := s.auditor.Record(ctx, audit.Record{
		EntityType: string(s.docType),
		EntityID:   docID,
		Action:     action,
		Actor:      appctx.GetUserID(ctx),
		Changes:    changes,
		At:         s.engine.Clock().Now(),
	})
	if err != nil {
		return fmt.Errorf("record audit: %w", err)
	}
	return nil
}

func (s *Service[T]) afterSave(ctx context.Context, doc T) {
	if err := s.hooks.Run(ctx, domain.AfterSave, doc); err != nil {
		logger.Warn(ctx, "after-save hook failed", "document_type", s.docType, "error", err)
	}
}

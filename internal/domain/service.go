package domain

import (
	"context"
	"fmt"

	"konditer/internal/core/apperror"
	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/core/tx"
	"konditer/pkg/logger"
)

// CatalogService implements create/read/update for catalog entities. Concrete
// catalogs embed it and register hooks for their own rules.
type CatalogService[T entity.Validatable] struct {
	repo       CatalogRepository[T]
	txManager  tx.Manager
	hooks      *HookRegistry[T]
	entityName string
}

// NewCatalogService creates a new catalog service.
func NewCatalogService[T entity.Validatable](repo CatalogRepository[T], txm tx.Manager, entityName string) *CatalogService[T] {
	return &CatalogService[T]{
		repo:       repo,
		txManager:  txm,
		hooks:      NewHookRegistry[T](),
		entityName: entityName,
	}
}

// Hooks returns the hook registry for external registration.
func (s *CatalogService[T]) Hooks() *HookRegistry[T] {
	return s.hooks
}

func (s *CatalogService[T]) normalizeGetErr(err error, key any) error {
	if apperror.IsNotFound(err) {
		return apperror.NewNotFound(s.entityName, key)
	}
	if _, ok := apperror.AsAppError(err); ok {
		return err
	}
	return apperror.NewInternal(err).WithDetail("entity", s.entityName).WithDetail("id", key)
}

// Create validates and inserts entity. Before-create hooks run inside the transaction.
func (s *CatalogService[T]) Create(ctx context.Context, e T) error {
	if err := e.Validate(ctx); err != nil {
		return err
	}
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.hooks.Run(ctx, BeforeCreate, e); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, e); err != nil {
			return fmt.Errorf("create %s: %w", s.entityName, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.afterSave(ctx, e)
	return nil
}

// Update validates and stores entity.
func (s *CatalogService[T]) Update(ctx context.Context, e T) error {
	if err := e.Validate(ctx); err != nil {
		return err
	}
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.hooks.Run(ctx, BeforeUpdate, e); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, e); err != nil {
			return fmt.Errorf("update %s: %w", s.entityName, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.afterSave(ctx, e)
	return nil
}

func (s *CatalogService[T]) afterSave(ctx context.Context, e T) {
	if err := s.hooks.Run(ctx, AfterSave, e); err != nil {
		logger.Warn(ctx, "after-save hook failed", "entity", s.entityName, "error", err)
	}
}

// GetByID retrieves entity by ID.
func (s *CatalogService[T]) GetByID(ctx context.Context, entityID id.ID) (T, error) {
	e, err := s.repo.GetByID(ctx, entityID)
	if err != nil {
		return e, s.normalizeGetErr(err, entityID.String())
	}
	return e, nil
}

// List retrieves entities with filtering.
func (s *CatalogService[T]) List(ctx context.Context, filter ListFilter) (ListResult[T], error) {
	return s.repo.List(ctx, filter)
}

package recipe

import (
	"context"
	"fmt"

	"konditer/internal/core/apperror"
	"konditer/internal/core/id"
	"konditer/internal/core/tx"
	"konditer/internal/domain"
	"konditer/internal/domain/catalogs/item"
)

// Service saves recipes after checking references and the recipe graph.
type Service struct {
	*domain.CatalogService[*Recipe]
	repo  Repository
	items item.Repository
}

// NewService creates a new Recipe service.
func NewService(repo Repository, items item.Repository, txm tx.Manager) *Service {
	svc := &Service{
		CatalogService: domain.NewCatalogService[*Recipe](repo, txm, "recipe"),
		repo:           repo,
		items:          items,
	}
	svc.Hooks().On(domain.BeforeCreate, svc.prepare)
	svc.Hooks().On(domain.BeforeUpdate, svc.prepare)
	return svc
}

// prepare runs inside the save transaction.
func (s *Service) prepare(ctx context.Context, r *Recipe) error {
	r.normalize()
	if err := s.checkReferences(ctx, r); err != nil {
		return err
	}
	if !r.IsActive {
		return nil
	}
	active, err := s.repo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active recipes: %w", err)
	}
	return ValidateAcyclic(r, active)
}

func (s *Service) checkReferences(ctx context.Context, r *Recipe) error {
	ids := make([]id.ID, 0, len(r.Items)+1)
	ids = append(ids, r.OutputItemID)
	for _, line := range r.Items {
		ids = append(ids, line.ItemID)
	}
	found, err := s.items.GetMany(ctx, ids)
	if err != nil {
		return fmt.Errorf("load recipe items: %w", err)
	}
	if it, ok := found[r.OutputItemID]; !ok || !it.IsActive {
		return apperror.NewReferential("item", r.OutputItemID.String(), "is missing or inactive").
			WithDetail("field", "outputItemId")
	}
	for i, line := range r.Items {
		if it, ok := found[line.ItemID]; !ok || !it.IsActive {
			return apperror.NewReferential("item", line.ItemID.String(), "is missing or inactive").WithLine(i)
		}
	}
	return nil
}

// ActiveForItem returns the active recipe producing itemID.
func (s *Service) ActiveForItem(ctx context.Context, itemID id.ID) (*Recipe, error) {
	return s.repo.GetActiveByOutputItem(ctx, itemID)
}

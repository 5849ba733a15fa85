package purchase

import (
	"context"

	"konditer/internal/core/entity"
	"konditer/internal/core/numerator"
	"konditer/internal/domain"
	"konditer/internal/domain/audit"
	"konditer/internal/domain/documents"
	"konditer/internal/domain/documents/posting"
)

// Repository persists purchases with lines and expenses.
type Repository = documents.Repository[*Purchase]

// Service provides business operations for purchases.
type Service struct {
	*documents.Service[*Purchase]
}

// NewService creates a new purchase service.
func NewService(repo Repository, engine *posting.Engine, gen numerator.Generator, auditor audit.Recorder) *Service {
	svc := &Service{
		Service: documents.NewService[*Purchase](entity.DocumentTypePurchase, repo, engine, gen, auditor),
	}
	svc.Hooks().On(domain.BeforeCreate, recalculate)
	svc.Hooks().On(domain.BeforeUpdate, recalculate)
	return svc
}

// recalculate keeps stored totals and landed costs in line with the lines.
func recalculate(_ context.Context, p *Purchase) error {
	p.Recalculate()
	return nil
}

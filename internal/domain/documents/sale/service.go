package sale

import (
	"konditer/internal/core/entity"
	"konditer/internal/core/numerator"
	"konditer/internal/domain/audit"
	"konditer/internal/domain/documents"
	"konditer/internal/domain/documents/posting"
)

// Repository persists sales with lines.
type Repository = documents.Repository[*Sale]

// Service provides business operations for sales. Revert is rejected.
type Service struct {
	*documents.Service[*Sale]
}

// NewService creates a new sale service.
func NewService(repo Repository, engine *posting.Engine, gen numerator.Generator, auditor audit.Recorder) *Service {
	return &Service{
		Service: documents.NewService[*Sale](entity.DocumentTypeSale, repo, engine, gen, auditor),
	}
}

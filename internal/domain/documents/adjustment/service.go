package adjustment

import (
	"konditer/internal/core/entity"
	"konditer/internal/core/numerator"
	"konditer/internal/domain/audit"
	"konditer/internal/domain/documents"
	"konditer/internal/domain/documents/posting"
)

// Repository persists adjustments with lines.
type Repository = documents.Repository[*Adjustment]

// Service provides business operations for stock adjustments.
type Service struct {
	*documents.Service[*Adjustment]
}

// NewService creates a new adjustment service.
func NewService(repo Repository, engine *posting.Engine, gen numerator.Generator, auditor audit.Recorder) *Service {
	return &Service{
		Service: documents.NewService[*Adjustment](entity.DocumentTypeAdjustment, repo, engine, gen, auditor),
	}
}

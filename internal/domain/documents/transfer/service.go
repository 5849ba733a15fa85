package transfer

import (
	"konditer/internal/core/entity"
	"konditer/internal/core/numerator"
	"konditer/internal/domain/audit"
	"konditer/internal/domain/documents"
	"konditer/internal/domain/documents/posting"
)

// Repository persists transfers with lines.
type Repository = documents.Repository[*Transfer]

// Service provides business operations for transfers.
type Service struct {
	*documents.Service[*Transfer]
}

// NewService creates a new transfer service.
func NewService(repo Repository, engine *posting.Engine, gen numerator.Generator, auditor audit.Recorder) *Service {
	return &Service{
		Service: documents.NewService[*Transfer](entity.DocumentTypeTransfer, repo, engine, gen, auditor),
	}
}

package item

import (
	"konditer/internal/core/tx"
	"konditer/internal/domain"
)

// Service provides business logic for the Item catalog.
type Service struct {
	*domain.CatalogService[*Item]
	repo Repository
}

// NewService creates a new Item service.
func NewService(repo Repository, txm tx.Manager) *Service {
	return &Service{
		CatalogService: domain.NewCatalogService[*Item](repo, txm, "item"),
		repo:           repo,
	}
}

package warehouse

import (
	"konditer/internal/core/tx"
	"konditer/internal/domain"
)

// Service provides business logic for Warehouse catalog.
type Service struct {
	*domain.CatalogService[*Warehouse]
}

// NewService creates a new Warehouse service.
func NewService(repo Repository, txm tx.Manager) *Service {
	return &Service{
		CatalogService: domain.NewCatalogService[*Warehouse](repo, txm, "warehouse"),
	}
}

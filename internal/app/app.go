// Package app wires repositories into domain services. Both the API server and
// the worker build their object graph here so the two never disagree on how a
// document is posted.
package app

import (
	"time"

	"konditer/internal/core/clock"
	"konditer/internal/core/entity"
	"konditer/internal/core/numerator"
	"konditer/internal/core/tx"
	"konditer/internal/domain/audit"
	"konditer/internal/domain/catalogs/item"
	"konditer/internal/domain/catalogs/recipe"
	"konditer/internal/domain/catalogs/warehouse"
	"konditer/internal/domain/costing"
	"konditer/internal/domain/documents/adjustment"
	"konditer/internal/domain/documents/posting"
	"konditer/internal/domain/documents/production"
	"konditer/internal/domain/documents/purchase"
	"konditer/internal/domain/documents/sale"
	"konditer/internal/domain/documents/transfer"
	"konditer/internal/domain/events"
	"konditer/internal/domain/lowstock"
	"konditer/internal/domain/reconcile"
	"konditer/internal/domain/registers/ledger"
	"konditer/internal/domain/registers/stock"
	"konditer/internal/infrastructure/storage/memory"
)

// Backend is a storage implementation of every repository.
type Backend struct {
	TxManager tx.SerializableManager
	Numerator numerator.Generator
	Publisher events.Publisher
	Auditor   audit.Recorder
	History   audit.Reader

	Balances stock.Repository
	Ledger   ledger.Repository

	Items      item.Repository
	Warehouses warehouse.Repository
	Recipes    recipe.Repository

	Purchases   purchase.Repository
	Transfers   transfer.Repository
	Adjustments adjustment.Repository
	Sales       sale.Repository
	Production  production.Repository
}

// Options carries the non-storage collaborators.
type Options struct {
	Clock    clock.Clock
	Observer posting.Observer

	// LowStockRule is a CEL expression; empty means lowstock.DefaultRule.
	LowStockRule string
	// LowStockSuppressFor overrides lowstock.SuppressFor when positive.
	LowStockSuppressFor time.Duration
	Deduper             lowstock.Deduper
	Notifier            lowstock.Notifier
}

// Services is the wired domain layer.
type Services struct {
	Backend Backend
	Clock   clock.Clock

	Items      *item.Service
	Warehouses *warehouse.Service
	Recipes    *recipe.Service

	Stock   *stock.Service
	Ledger  *ledger.Service
	Costing *costing.Engine
	Posting *posting.Engine

	Purchases   *purchase.Service
	Transfers   *transfer.Service
	Adjustments *adjustment.Service
	Sales       *sale.Service
	Production  *production.Service

	Reconcile *reconcile.Service
	LowStock  *lowstock.Checker
}

// New builds the service graph on top of b.
func New(b Backend, opts Options) (*Services, error) {
	clk := opts.Clock
	if clk == nil {
		clk = clock.System{}
	}
	expr := opts.LowStockRule
	if expr == "" {
		expr = lowstock.DefaultRule
	}
	rule, err := lowstock.NewRule(expr)
	if err != nil {
		return nil, err
	}
	dedup := opts.Deduper
	if dedup == nil {
		dedup = memory.NewDeduper(clk)
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = lowstock.LogNotifier{}
	}

	statuses := ledger.NewStatusRegistry()
	st := stock.NewService(b.Balances, clk)
	led := ledger.NewService(b.Ledger, statuses)

	engine := posting.NewEngine(posting.Config{
		TxManager:  b.TxManager,
		Stock:      st,
		Ledger:     led,
		References: posting.NewCatalogReferences(b.Items, b.Warehouses),
		Publisher:  b.Publisher,
		Auditor:    b.Auditor,
		Clock:      clk,
		Observer:   opts.Observer,
	})
	costs := costing.NewEngine(st, b.Items, b.Recipes)

	s := &Services{
		Backend:     b,
		Clock:       clk,
		Items:       item.NewService(b.Items, b.TxManager),
		Warehouses:  warehouse.NewService(b.Warehouses, b.TxManager),
		Recipes:     recipe.NewService(b.Recipes, b.Items, b.TxManager),
		Stock:       st,
		Ledger:      led,
		Costing:     costs,
		Posting:     engine,
		Purchases:   purchase.NewService(b.Purchases, engine, b.Numerator, b.Auditor),
		Transfers:   transfer.NewService(b.Transfers, engine, b.Numerator, b.Auditor),
		Adjustments: adjustment.NewService(b.Adjustments, engine, b.Numerator, b.Auditor),
		Sales:       sale.NewService(b.Sales, engine, b.Numerator, b.Auditor),
		Production:  production.NewService(b.Production, b.Recipes, costs, engine, b.Numerator, b.Auditor),
		Reconcile:   reconcile.NewService(b.TxManager, st, b.Ledger, led, b.Auditor, clk),
		LowStock:    lowstock.NewChecker(st, b.Items, rule, dedup, notifier, clk),
	}

	s.LowStock.SuppressAlertsFor(opts.LowStockSuppressFor)

	statuses.Register(entity.DocumentTypePurchase, s.Purchases)
	statuses.Register(entity.DocumentTypeTransfer, s.Transfers)
	statuses.Register(entity.DocumentTypeAdjustment, s.Adjustments)
	statuses.Register(entity.DocumentTypeSale, s.Sales)
	statuses.Register(entity.DocumentTypeProduction, s.Production)

	return s, nil
}

// Package item provides the Item catalog: raw materials, semi-finished goods and
// finished products.
package item

import (
	"context"

	"konditer/internal/core/apperror"
	"konditer/internal/core/entity"
	"konditer/internal/core/types"
)

// Kind discriminates how an item is produced and costed.
type Kind string

const (
	KindRawMaterial  Kind = "raw_material"
	KindSemiFinished Kind = "semi_finished"
	KindFinished     Kind = "finished"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindRawMaterial, KindSemiFinished, KindFinished:
		return true
	}
	return false
}

// Item is a stock-keeping unit.
type Item struct {
	entity.BaseCatalog

	Kind Kind   `db:"kind" json:"kind"`
	Unit string `db:"unit" json:"unit"`

	// PurchasePrice is the static cost used when no balance exists yet
	PurchasePrice types.Money `db:"purchase_price" json:"purchasePrice"`

	// MinStock is the low-stock threshold per warehouse
	MinStock types.Quantity `db:"min_stock" json:"minStock"`
}

// NewItem creates an active item.
func NewItem(code, name string, kind Kind, unit string) *Item {
	return &Item{
		BaseCatalog: entity.NewBaseCatalog(code, name),
		Kind:        kind,
		Unit:        unit,
	}
}

// Validate implements entity.Validatable.
func (i *Item) Validate(ctx context.Context) error {
	if err := i.BaseCatalog.Validate(ctx); err != nil {
		return err
	}
	if !i.Kind.Valid() {
		return apperror.NewValidation("invalid item kind").
			WithDetail("field", "kind").
			WithDetail("value", string(i.Kind))
	}
	if i.PurchasePrice.IsNegative() {
		return apperror.NewValidation("purchase price must not be negative").WithDetail("field", "purchasePrice")
	}
	if i.MinStock.IsNegative() {
		return apperror.NewValidation("minimum stock must not be negative").WithDetail("field", "minStock")
	}
	return nil
}

package costing

import (
	"context"
	"fmt"

	"konditer/internal/core/apperror"
	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/core/types"
	"konditer/internal/domain/catalogs/item"
	"konditer/internal/domain/catalogs/recipe"
)

// BalanceReader reads the current balance of a key; a missing balance is
// returned as a zero value.
type BalanceReader interface {
	Get(ctx context.Context, warehouseID, itemID id.ID) (entity.Balance, error)
}

// ItemReader loads catalog items.
type ItemReader interface {
	GetByID(ctx context.Context, id id.ID) (*item.Item, error)
}

// RecipeReader finds the active recipe of an output item.
type RecipeReader interface {
	GetActiveByOutputItem(ctx context.Context, itemID id.ID) (*recipe.Recipe, error)
}

// Engine evaluates unit costs at the moment they are requested.
type Engine struct {
	balances BalanceReader
	items    ItemReader
	recipes  RecipeReader
}

// NewEngine creates a costing engine.
func NewEngine(balances BalanceReader, items ItemReader, recipes RecipeReader) *Engine {
	return &Engine{balances: balances, items: items, recipes: recipes}
}

// DirectCost is the balance unit cost of the item in the warehouse, or the
// item's purchase price while no costed balance exists.
func (e *Engine) DirectCost(ctx context.Context, warehouseID, itemID id.ID) (types.Money, error) {
	b, err := e.balances.Get(ctx, warehouseID, itemID)
	if err != nil {
		return types.Zero(), err
	}
	if b.UnitCost.IsPositive() {
		return b.UnitCost, nil
	}
	it, err := e.items.GetByID(ctx, itemID)
	if err != nil {
		return types.Zero(), fmt.Errorf("load item %s: %w", itemID, err)
	}
	return it.PurchasePrice, nil
}

// UnitCost returns the recursive recipe cost for semi-finished items that
// have an active recipe and the direct cost for everything else.
func (e *Engine) UnitCost(ctx context.Context, warehouseID, itemID id.ID) (types.Money, error) {
	return e.unitCost(ctx, warehouseID, itemID, nil)
}

// RecipeCost is the material cost of one output unit of r.
func (e *Engine) RecipeCost(ctx context.Context, warehouseID id.ID, r *recipe.Recipe) (types.Money, error) {
	return e.recipeCost(ctx, warehouseID, r, []id.ID{r.OutputItemID})
}

func (e *Engine) unitCost(ctx context.Context, warehouseID, itemID id.ID, path []id.ID) (types.Money, error) {
	it, err := e.items.GetByID(ctx, itemID)
	if err != nil {
		return types.Zero(), fmt.Errorf("load item %s: %w", itemID, err)
	}
	if it.Kind != item.KindSemiFinished {
		return e.DirectCost(ctx, warehouseID, itemID)
	}

	r, err := e.recipes.GetActiveByOutputItem(ctx, itemID)
	if apperror.IsNotFound(err) {
		return e.DirectCost(ctx, warehouseID, itemID)
	}
	if err != nil {
		return types.Zero(), fmt.Errorf("load recipe of %s: %w", itemID, err)
	}

	for _, seen := range path {
		if seen == itemID {
			return types.Zero(), apperror.NewRecipeCycle(pathStrings(append(path, itemID)))
		}
	}
	return e.recipeCost(ctx, warehouseID, r, append(path, itemID))
}

func (e *Engine) recipeCost(ctx context.Context, warehouseID id.ID, r *recipe.Recipe, path []id.ID) (types.Money, error) {
	if !r.OutputQuantity.IsPositive() {
		return types.Zero(), apperror.NewValidation("recipe output quantity must be positive").
			WithDetail("recipe_id", r.ID)
	}
	total := types.Zero()
	for _, line := range r.Items {
		for _, seen := range path {
			if seen == line.ItemID {
				return types.Zero(), apperror.NewRecipeCycle(pathStrings(append(path, line.ItemID)))
			}
		}
		cost, err := e.unitCost(ctx, warehouseID, line.ItemID, path)
		if err != nil {
			return types.Zero(), err
		}
		total = total.Add(types.Amount(cost, line.Quantity))
	}
	return total.Div(r.OutputQuantity.Decimal()).Round(types.CostPrecision), nil
}

// Consumption is an input actually taken by a production order.
type Consumption struct {
	ItemID   id.ID
	Quantity types.Quantity
	UnitCost types.Money
}

// ProductionCost returns the total material cost of the consumed inputs and
// the per-unit cost of outputQty produced units.
func ProductionCost(consumed []Consumption, outputQty types.Quantity) (total, perUnit types.Money) {
	total = types.Zero()
	for _, c := range consumed {
		total = total.Add(types.Amount(c.UnitCost, c.Quantity))
	}
	if !outputQty.IsPositive() {
		return total, types.Zero()
	}
	return total, total.Div(outputQty.Decimal()).Round(types.CostPrecision)
}

func pathStrings(path []id.ID) []string {
	out := make([]string, len(path))
	for i, p := range path {
		out[i] = p.String()
	}
	return out
}

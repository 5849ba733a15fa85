package costing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"konditer/internal/core/apperror"
	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/core/types"
	"konditer/internal/domain/catalogs/item"
	"konditer/internal/domain/catalogs/recipe"
)

type fakeCatalog struct {
	balances map[entity.BalanceKey]entity.Balance
	items    map[id.ID]*item.Item
	recipes  map[id.ID]*recipe.Recipe
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		balances: make(map[entity.BalanceKey]entity.Balance),
		items:    make(map[id.ID]*item.Item),
		recipes:  make(map[id.ID]*recipe.Recipe),
	}
}

func (f *fakeCatalog) Get(_ context.Context, wh, it id.ID) (entity.Balance, error) {
	k := entity.BalanceKey{WarehouseID: wh, ItemID: it}
	if b, ok := f.balances[k]; ok {
		return b, nil
	}
	return entity.Balance{WarehouseID: wh, ItemID: it, UnitCost: types.Zero()}, nil
}

func (f *fakeCatalog) GetByID(_ context.Context, itemID id.ID) (*item.Item, error) {
	if it, ok := f.items[itemID]; ok {
		return it, nil
	}
	return nil, apperror.NewNotFound("item", itemID)
}

func (f *fakeCatalog) GetActiveByOutputItem(_ context.Context, itemID id.ID) (*recipe.Recipe, error) {
	if r, ok := f.recipes[itemID]; ok {
		return r, nil
	}
	return nil, apperror.NewNotFound("recipe", itemID)
}

func (f *fakeCatalog) addItem(kind item.Kind, price string) id.ID {
	it := item.NewItem("C", "item", kind, "kg")
	it.PurchasePrice = types.MustMoney(price)
	f.items[it.ID] = it
	return it.ID
}

func (f *fakeCatalog) setBalance(wh, it id.ID, qty int64, cost string) {
	f.balances[entity.BalanceKey{WarehouseID: wh, ItemID: it}] = entity.Balance{
		WarehouseID: wh, ItemID: it, Quantity: types.NewQuantity(qty), UnitCost: types.MustMoney(cost),
	}
}

func TestDirectCost_FallsBackToPurchasePrice(t *testing.T) {
	f := newFakeCatalog()
	wh := id.New()
	sugar := f.addItem(item.KindRawMaterial, "3.5")
	e := NewEngine(f, f, f)

	cost, err := e.DirectCost(context.Background(), wh, sugar)
	require.NoError(t, err)
	assert.True(t, cost.Equal(types.MustMoney("3.5")))

	f.setBalance(wh, sugar, 10, "4")
	cost, err = e.DirectCost(context.Background(), wh, sugar)
	require.NoError(t, err)
	assert.True(t, cost.Equal(types.MustMoney("4")))
}

func TestRecipeCost_RecursesIntoSemiFinished(t *testing.T) {
	f := newFakeCatalog()
	wh := id.New()
	flour := f.addItem(item.KindRawMaterial, "1")
	cream := f.addItem(item.KindSemiFinished, "0")
	cake := f.addItem(item.KindFinished, "0")

	// 5 flour at 1 per batch of 1 cream: cream costs 5
	creamRecipe := recipe.NewRecipe("R1", "cream", cream, types.NewQuantity(1))
	creamRecipe.AddItem(flour, types.NewQuantity(5))
	f.recipes[cream] = creamRecipe

	cakeRecipe := recipe.NewRecipe("R2", "cake", cake, types.NewQuantity(1))
	cakeRecipe.AddItem(cream, types.NewQuantity(2))
	f.recipes[cake] = cakeRecipe

	e := NewEngine(f, f, f)
	cost, err := e.RecipeCost(context.Background(), wh, cakeRecipe)
	require.NoError(t, err)
	assert.True(t, cost.Equal(types.MustMoney("10")), "got %s", cost)
}

func TestRecipeCost_DividesByOutputQuantity(t *testing.T) {
	f := newFakeCatalog()
	wh := id.New()
	eggs := f.addItem(item.KindRawMaterial, "2")
	dough := f.addItem(item.KindSemiFinished, "0")

	r := recipe.NewRecipe("R", "dough", dough, types.NewQuantity(4))
	r.AddItem(eggs, types.NewQuantity(6))
	f.recipes[dough] = r

	cost, err := NewEngine(f, f, f).UnitCost(context.Background(), wh, dough)
	require.NoError(t, err)
	assert.True(t, cost.Equal(types.MustMoney("3")), "got %s", cost)
}

func TestUnitCost_SemiFinishedWithoutRecipeUsesDirectCost(t *testing.T) {
	f := newFakeCatalog()
	wh := id.New()
	glaze := f.addItem(item.KindSemiFinished, "7")

	cost, err := NewEngine(f, f, f).UnitCost(context.Background(), wh, glaze)
	require.NoError(t, err)
	assert.True(t, cost.Equal(types.MustMoney("7")))
}

func TestUnitCost_CycleIsReported(t *testing.T) {
	f := newFakeCatalog()
	wh := id.New()
	a := f.addItem(item.KindSemiFinished, "0")
	b := f.addItem(item.KindSemiFinished, "0")

	ra := recipe.NewRecipe("A", "a", a, types.NewQuantity(1))
	ra.AddItem(b, types.NewQuantity(1))
	rb := recipe.NewRecipe("B", "b", b, types.NewQuantity(1))
	rb.AddItem(a, types.NewQuantity(1))
	f.recipes[a] = ra
	f.recipes[b] = rb

	_, err := NewEngine(f, f, f).UnitCost(context.Background(), wh, a)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeRecipeCycle))
}

func TestProductionCost(t *testing.T) {
	total, perUnit := ProductionCost([]Consumption{
		{ItemID: id.New(), Quantity: types.NewQuantity(18), UnitCost: types.MustMoney("2")},
		{ItemID: id.New(), Quantity: types.MustQuantity("0.5"), UnitCost: types.MustMoney("10")},
	}, types.NewQuantity(4))

	assert.True(t, total.Equal(types.MustMoney("41")), "total %s", total)
	assert.True(t, perUnit.Equal(types.MustMoney("10.25")), "per unit %s", perUnit)
}

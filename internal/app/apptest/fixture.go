// Package apptest builds a fully wired in-memory service graph for tests.
package apptest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"konditer/internal/app"
	"konditer/internal/core/clock"
	appctx "konditer/internal/core/context"
	"konditer/internal/core/entity"
	"konditer/internal/core/id"
	"konditer/internal/core/security"
	"konditer/internal/core/types"
	"konditer/internal/domain/catalogs/item"
	"konditer/internal/domain/catalogs/recipe"
	"konditer/internal/domain/catalogs/warehouse"
	"konditer/internal/domain/documents/purchase"
)

// Epoch is the fixed start time of every fixture clock.
var Epoch = time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)

// Fixture is a service graph over a fresh in-memory backend.
type Fixture struct {
	*app.Services
	Memory *app.MemoryBackend
	Clock  *clock.Fixed
}

// New creates a fixture. opts may adjust the options before wiring.
func New(t testing.TB, opts ...func(*app.Options)) *Fixture {
	t.Helper()
	clk := clock.NewFixed(Epoch)
	mem := app.NewMemoryBackend(clk)
	o := app.Options{Clock: clk, Deduper: mem.Deduper}
	for _, fn := range opts {
		fn(&o)
	}
	svc, err := app.New(mem.Backend, o)
	require.NoError(t, err)
	return &Fixture{Services: svc, Memory: mem, Clock: clk}
}

// As returns a context acting as a user with the given roles.
func As(userID string, roles ...string) context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID:       userID,
		Roles:        roles,
		Capabilities: security.Resolve(roles),
	})
}

// Admin is a context holding every capability.
func Admin() context.Context {
	return As("admin", security.RoleAdmin)
}

// Manager is a context without administrative capabilities.
func Manager() context.Context {
	return As("manager", security.RoleManager)
}

// Warehouse creates an active warehouse.
func (f *Fixture) Warehouse(t testing.TB, code string) id.ID {
	t.Helper()
	w := warehouse.NewWarehouse(code, "Warehouse "+code)
	require.NoError(t, f.Warehouses.Create(Admin(), w))
	return w.ID
}

// Item creates an active item.
func (f *Fixture) Item(t testing.TB, code string, kind item.Kind, configure ...func(*item.Item)) id.ID {
	t.Helper()
	it := item.NewItem(code, "Item "+code, kind, "kg")
	for _, fn := range configure {
		fn(it)
	}
	require.NoError(t, f.Items.Create(Admin(), it))
	return it.ID
}

// Recipe creates an active recipe yielding outputQty per batch from inputs
// (item id to quantity per batch, in order).
func (f *Fixture) Recipe(t testing.TB, code string, output id.ID, outputQty types.Quantity, inputs ...Input) *recipe.Recipe {
	t.Helper()
	r := recipe.NewRecipe(code, "Recipe "+code, output, outputQty)
	for _, in := range inputs {
		r.AddItem(in.ItemID, in.Quantity)
	}
	require.NoError(t, f.Recipes.Create(Admin(), r))
	return r
}

// Input is one recipe input.
type Input struct {
	ItemID   id.ID
	Quantity types.Quantity
}

// Receive confirms a purchase of qty units of itemID at price.
func (f *Fixture) Receive(t testing.TB, wh, itemID id.ID, qty int64, price string) *purchase.Purchase {
	t.Helper()
	ctx := Admin()
	p := purchase.NewPurchase(f.Clock.Now(), "admin", wh)
	p.AddLine(itemID, types.NewQuantity(qty), types.MustMoney(price))
	require.NoError(t, f.Purchases.Create(ctx, p))
	require.NoError(t, f.Purchases.Confirm(ctx, p.ID))
	return p
}

// Balance returns the current balance of a key.
func (f *Fixture) Balance(t testing.TB, wh, itemID id.ID) entity.Balance {
	t.Helper()
	b, err := f.Stock.Get(context.Background(), wh, itemID)
	require.NoError(t, err)
	return b
}

// LedgerSum returns the applied ledger total of a key.
func (f *Fixture) LedgerSum(t testing.TB, wh, itemID id.ID) types.Quantity {
	t.Helper()
	sum, err := f.Ledger.Sum(context.Background(), wh, itemID)
	require.NoError(t, err)
	return sum
}

// EqualMoney asserts that got equals the decimal in want.
func EqualMoney(t testing.TB, want string, got types.Money, msgAndArgs ...any) {
	t.Helper()
	require.Truef(t, types.MustMoney(want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}

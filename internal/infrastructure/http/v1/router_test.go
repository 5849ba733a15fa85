package v1_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"konditer/internal/app/apptest"
	"konditer/internal/core/id"
	"konditer/internal/core/idempotency"
	"konditer/internal/core/security"
	"konditer/internal/core/types"
	"konditer/internal/domain/auth"
	"konditer/internal/domain/catalogs/item"
	"konditer/internal/infrastructure/cache"
	v1 "konditer/internal/infrastructure/http/v1"
	"konditer/internal/infrastructure/http/v1/middleware"
	"konditer/internal/infrastructure/observability"
	"konditer/pkg/logger"
)

const maintenanceKey = "let-me-in"

type apiEnv struct {
	f      *apptest.Fixture
	router *gin.Engine
	tokens *auth.JWTService
}

func newAPI(t *testing.T, store idempotency.Store) *apiEnv {
	t.Helper()
	f := apptest.New(t)
	tokens := auth.NewJWTService(auth.DefaultJWTConfig("test-secret"), f.Clock)

	hash, err := auth.HashMaintenanceKey(maintenanceKey)
	require.NoError(t, err)
	key, err := auth.NewMaintenanceKey(hash)
	require.NoError(t, err)

	router := v1.NewRouter(v1.RouterConfig{
		Services:       f.Services,
		Logger:         logger.NewNop(),
		Tokens:         tokens,
		MaintenanceKey: key,
		Idempotency:    store,
		Metrics:        observability.NewMetrics(),
	})
	return &apiEnv{f: f, router: router, tokens: tokens}
}

func (e *apiEnv) token(t *testing.T, roles ...string) string {
	t.Helper()
	tok, _, err := e.tokens.GenerateAccessToken("user-1", "user@example.com", roles)
	require.NoError(t, err)
	return tok
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func purchaseBody(wh, itemID id.ID, qty, price string) map[string]any {
	return map[string]any{
		"warehouseId": wh,
		"lines": []map[string]any{
			{"itemId": itemID, "quantity": qty, "price": price},
		},
	}
}

func TestRouter_Health(t *testing.T) {
	e := newAPI(t, nil)

	w := e.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "konditer_http_requests_total")
}

func TestRouter_RequiresToken(t *testing.T) {
	e := newAPI(t, nil)

	w := e.do(t, http.MethodGet, "/api/v1/items", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodGet, "/api/v1/items", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_ForbidsMissingCapability(t *testing.T) {
	e := newAPI(t, nil)
	viewer := e.token(t, security.RoleViewer)

	w := e.do(t, http.MethodGet, "/api/v1/items", viewer, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodPost, "/api/v1/items", viewer, map[string]any{
		"code": "FLOUR", "name": "Flour", "kind": "raw_material", "unit": "kg",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", decode(t, w)["code"])
}

func TestRouter_CatalogCRUD(t *testing.T) {
	e := newAPI(t, nil)
	admin := e.token(t, security.RoleAdmin)

	w := e.do(t, http.MethodPost, "/api/v1/items", admin, map[string]any{
		"code": "SUGAR", "name": "Sugar", "kind": "raw_material", "unit": "kg", "minStock": "5",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	itemID := created["id"].(string)

	w = e.do(t, http.MethodPut, "/api/v1/items/"+itemID, admin, map[string]any{
		"code": "SUGAR", "name": "Cane sugar", "kind": "raw_material", "unit": "kg",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodGet, "/api/v1/items/"+itemID, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Cane sugar", decode(t, w)["name"])

	w = e.do(t, http.MethodGet, "/api/v1/items/not-a-uuid", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodGet, "/api/v1/items/"+id.New().String(), admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_PurchaseLifecycle(t *testing.T) {
	e := newAPI(t, nil)
	admin := e.token(t, security.RoleAdmin)
	wh := e.f.Warehouse(t, "MAIN")
	flour := e.f.Item(t, "FLOUR", item.KindRawMaterial)

	w := e.do(t, http.MethodPost, "/api/v1/purchases", admin, purchaseBody(wh, flour, "10", "2.50"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	doc := decode(t, w)
	assert.Equal(t, "draft", doc["status"])
	docID := doc["id"].(string)

	w = e.do(t, http.MethodPost, "/api/v1/purchases/"+docID+"/confirm", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "confirmed", decode(t, w)["status"])

	b := e.f.Balance(t, wh, flour)
	assert.Equal(t, types.NewQuantity(10), b.Quantity)
	apptest.EqualMoney(t, "2.50", b.UnitCost)

	w = e.do(t, http.MethodGet, "/api/v1/stock/movements?warehouseId="+wh.String()+"&itemId="+flour.String(), admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode(t, w)["items"], 1)

	w = e.do(t, http.MethodGet, "/api/v1/stock/documents/purchase/"+docID+"/movements", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode(t, w)["items"], 1)

	// confirmed documents are not editable
	w = e.do(t, http.MethodPut, "/api/v1/purchases/"+docID, admin, purchaseBody(wh, flour, "12", "2.50"))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodPost, "/api/v1/purchases/"+docID+"/revert", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "draft", decode(t, w)["status"])
	assert.True(t, e.f.Balance(t, wh, flour).Quantity.IsZero())

	w = e.do(t, http.MethodGet, "/api/v1/purchases/"+docID+"/history", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["items"])

	w = e.do(t, http.MethodDelete, "/api/v1/purchases/"+docID, admin, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRouter_SaleShortage(t *testing.T) {
	e := newAPI(t, nil)
	admin := e.token(t, security.RoleAdmin)
	wh := e.f.Warehouse(t, "SHOP")
	cake := e.f.Item(t, "CAKE", item.KindFinished)
	e.f.Receive(t, wh, cake, 2, "10")

	w := e.do(t, http.MethodPost, "/api/v1/sales", admin, map[string]any{
		"warehouseId": wh,
		"lines":       []map[string]any{{"itemId": cake, "quantity": 3, "price": "25"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	docID := decode(t, w)["id"].(string)

	w = e.do(t, http.MethodPost, "/api/v1/sales/"+docID+"/confirm", admin, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	body := decode(t, w)
	assert.Equal(t, "SHORTAGE", body["code"])
	assert.Equal(t, types.NewQuantity(2), e.f.Balance(t, wh, cake).Quantity)
}

func TestRouter_ProductionStages(t *testing.T) {
	e := newAPI(t, nil)
	admin := e.token(t, security.RoleAdmin)
	wh := e.f.Warehouse(t, "KITCHEN")
	flour := e.f.Item(t, "FLOUR", item.KindRawMaterial)
	cake := e.f.Item(t, "CAKE", item.KindFinished)
	e.f.Receive(t, wh, flour, 10, "2")
	r := e.f.Recipe(t, "R-CAKE", cake, types.NewQuantity(1), apptest.Input{ItemID: flour, Quantity: types.NewQuantity(2)})

	w := e.do(t, http.MethodGet, "/api/v1/recipes/"+r.ID.String()+"/cost?warehouseId="+wh.String(), admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	unitCost, ok := decode(t, w)["unitCost"].(string)
	require.True(t, ok)
	apptest.EqualMoney(t, "4", types.MustMoney(unitCost))

	w = e.do(t, http.MethodPost, "/api/v1/production", admin, map[string]any{
		"recipeId":          r.ID,
		"sourceWarehouseId": wh,
		"outputWarehouseId": wh,
		"quantity":          3,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	orderID := decode(t, w)["id"].(string)

	// stages must be completed in order
	w = e.do(t, http.MethodPost, "/api/v1/production/"+orderID+"/stages/2/complete", admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodPost, "/api/v1/production/"+orderID+"/stages/1/complete", admin,
		map[string]any{"machine": "mixer-1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "in_progress", decode(t, w)["status"])

	w = e.do(t, http.MethodPost, "/api/v1/production/"+orderID+"/stages/2/complete", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "completed", decode(t, w)["status"])

	assert.Equal(t, types.NewQuantity(4), e.f.Balance(t, wh, flour).Quantity)
	assert.Equal(t, types.NewQuantity(3), e.f.Balance(t, wh, cake).Quantity)

	w = e.do(t, http.MethodPost, "/api/v1/production/"+orderID+"/stages/abc/complete", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// managers may not hard-delete orders
	manager := e.token(t, security.RoleManager)
	w = e.do(t, http.MethodDelete, "/api/v1/production/"+orderID, manager, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_AdminRecompute(t *testing.T) {
	e := newAPI(t, nil)
	admin := e.token(t, security.RoleAdmin)
	wh := e.f.Warehouse(t, "MAIN")
	flour := e.f.Item(t, "FLOUR", item.KindRawMaterial)
	e.f.Receive(t, wh, flour, 5, "1")

	w := e.do(t, http.MethodPost, "/api/v1/admin/recompute-balances", admin, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPost, "/api/v1/admin/recompute-balances", e.token(t, security.RoleManager), nil,
		middleware.HeaderMaintenanceKey, maintenanceKey)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPost, "/api/v1/admin/recompute-balances", admin, nil,
		middleware.HeaderMaintenanceKey, maintenanceKey)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.EqualValues(t, 1, body["unchanged"])

	w = e.do(t, http.MethodPost, "/api/v1/admin/low-stock/check", admin, nil,
		middleware.HeaderMaintenanceKey, maintenanceKey)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRouter_IdempotentReplay(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	e := newAPI(t, cache.NewIdempotencyStore(client, idempotency.DefaultTTL))
	admin := e.token(t, security.RoleAdmin)
	wh := e.f.Warehouse(t, "MAIN")
	flour := e.f.Item(t, "FLOUR", item.KindRawMaterial)
	body := purchaseBody(wh, flour, "1", "1")

	first := e.do(t, http.MethodPost, "/api/v1/purchases", admin, body, middleware.HeaderIdempotencyKey, "req-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	second := e.do(t, http.MethodPost, "/api/v1/purchases", admin, body, middleware.HeaderIdempotencyKey, "req-1")
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replay"))
	assert.Equal(t, decode(t, first)["id"], decode(t, second)["id"])

	w := e.do(t, http.MethodGet, "/api/v1/purchases", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["items"], 1)

	other := purchaseBody(wh, flour, "2", "1")
	w = e.do(t, http.MethodPost, "/api/v1/purchases", admin, other, middleware.HeaderIdempotencyKey, "req-1")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

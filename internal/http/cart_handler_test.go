package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/badge"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/fjod/go_cart/storefront/internal/storage"
	"github.com/fjod/go_cart/storefront/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type CatalogMock struct {
	mu       sync.Mutex
	products []domain.Product
	err      error
}

func (c *CatalogMock) FetchProducts(context.Context) ([]domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return append([]domain.Product(nil), c.products...), nil
}

func (c *CatalogMock) Product(_ context.Context, id int64) (domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return domain.Product{}, c.err
	}
	for _, p := range c.products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, fmt.Errorf("product %d: %w", id, catalog.ErrProductNotFound)
}

func (c *CatalogMock) AddProduct(_ context.Context, p domain.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	for _, existing := range c.products {
		if existing.ID == p.ID {
			return catalog.ErrDuplicateProduct
		}
	}
	c.products = append(c.products, p)
	return nil
}

type testAPI struct {
	handler  http.Handler
	storage  *storage.MemoryStorage
	catalog  *CatalogMock
	sessions *session.Manager
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	mem := storage.NewMemoryStorage()
	sessions := session.NewManager(mem, nil)
	t.Cleanup(func() { _ = sessions.Close(context.Background()) })

	cat := &CatalogMock{products: []domain.Product{
		{ID: 1, Name: "Shirt", Price: 12000, ImageURL: "https://example.com/1.png"},
		{ID: 2, Name: "Pants", Price: 1234567},
	}}

	return &testAPI{
		handler: NewRouter(RouterConfig{
			Sessions:       sessions,
			Catalog:        cat,
			Metrics:        metrics.NewServerMetrics("test"),
			RequestTimeout: 5 * time.Second,
		}),
		storage:  mem,
		catalog:  cat,
		sessions: sessions,
	}
}

func (a *testAPI) do(t *testing.T, method, path, sessionID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if sessionID != "" {
		req.Header.Set(SessionHeader, sessionID)
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v))
	return v
}

func TestGetCart_Empty(t *testing.T) {
	api := newTestAPI(t)

	rr := api.do(t, http.MethodGet, "/api/v1/cart", "s1", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "s1", rr.Header().Get(SessionHeader))
	res := decode[CartResponse](t, rr)
	assert.Empty(t, res.Items)
	assert.Equal(t, 0, res.TotalQuantity)
}

func TestSession_GeneratedWhenMissing(t *testing.T) {
	api := newTestAPI(t)

	rr := api.do(t, http.MethodGet, "/api/v1/cart", "", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(SessionHeader))
}

func TestAddItem_ThenSteppers(t *testing.T) {
	api := newTestAPI(t)

	rr := api.do(t, http.MethodPost, "/api/v1/cart/items/1", "s1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	res := decode[LineItemResponse](t, rr)
	assert.Equal(t, 1, res.Quantity)
	assert.Equal(t, cart.StateActive, res.State)
	assert.Equal(t, cart.AffordanceStepper, res.Affordance)
	assert.Equal(t, cart.PhaseEntering, res.Phase)
	assert.Equal(t, badge.View{Count: "1", Total: 1, Visible: true, Phase: cart.PhaseEntering}, res.Badge)

	rr = api.do(t, http.MethodPost, "/api/v1/cart/items/1/increment", "s1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 2, decode[LineItemResponse](t, rr).Quantity)

	rr = api.do(t, http.MethodPost, "/api/v1/cart/items/1/decrement", "s1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = api.do(t, http.MethodPost, "/api/v1/cart/items/1/decrement", "s1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	res = decode[LineItemResponse](t, rr)
	assert.Equal(t, 0, res.Quantity)
	assert.Equal(t, cart.AffordanceAdd, res.Affordance)
	assert.False(t, res.Badge.Visible)

	rr = api.do(t, http.MethodGet, "/api/v1/cart", "s1", nil)
	assert.Empty(t, decode[CartResponse](t, rr).Items)
}

func TestUpdateQuantity(t *testing.T) {
	api := newTestAPI(t)

	rr := api.do(t, http.MethodPut, "/api/v1/cart/items/1", "s1", map[string]int{"quantity": 2})
	require.Equal(t, http.StatusOK, rr.Code)
	rr = api.do(t, http.MethodPut, "/api/v1/cart/items/2", "s1", map[string]int{"quantity": 3})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = api.do(t, http.MethodGet, "/api/v1/cart", "s1", nil)
	res := decode[CartResponse](t, rr)
	require.Len(t, res.Items, 2)
	assert.Equal(t, int64(1), res.Items[0].Product.ID)
	assert.Equal(t, int64(2), res.Items[1].Product.ID)
	assert.Equal(t, 5, res.TotalQuantity)

	rr = api.do(t, http.MethodPut, "/api/v1/cart/items/1", "s1", map[string]int{"quantity": 0})
	require.Equal(t, http.StatusOK, rr.Code)
	rr = api.do(t, http.MethodGet, "/api/v1/cart", "s1", nil)
	res = decode[CartResponse](t, rr)
	require.Len(t, res.Items, 1)
	assert.Equal(t, int64(2), res.Items[0].Product.ID)
}

func TestUpdateQuantity_Invalid(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name string
		path string
		body interface{}
		code string
	}{
		{"negative", "/api/v1/cart/items/1", map[string]int{"quantity": -1}, "invalid_quantity"},
		{"too large", "/api/v1/cart/items/1", map[string]int{"quantity": 100}, "invalid_quantity"},
		{"missing", "/api/v1/cart/items/1", map[string]string{}, "invalid_quantity"},
		{"bad id", "/api/v1/cart/items/abc", map[string]int{"quantity": 1}, "invalid_product_id"},
		{"zero id", "/api/v1/cart/items/0", map[string]int{"quantity": 1}, "invalid_product_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := api.do(t, http.MethodPut, tt.path, "s1", tt.body)
			require.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, tt.code, decode[ErrorResponse](t, rr).Code)
		})
	}

	rr := api.do(t, http.MethodGet, "/api/v1/cart", "s1", nil)
	assert.Empty(t, decode[CartResponse](t, rr).Items)
}

func TestUnknownProduct(t *testing.T) {
	api := newTestAPI(t)

	rr := api.do(t, http.MethodPost, "/api/v1/cart/items/42", "s1", nil)

	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", decode[ErrorResponse](t, rr).Code)
}

func TestRemoveItem_Idempotent(t *testing.T) {
	api := newTestAPI(t)

	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/api/v1/cart/items/1", "s1", nil).Code)
	require.Equal(t, http.StatusOK, api.do(t, http.MethodDelete, "/api/v1/cart/items/1", "s1", nil).Code)

	rr := api.do(t, http.MethodDelete, "/api/v1/cart/items/1", "s1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, decode[LineItemResponse](t, rr).Quantity)
}

func TestBadge_ClampsDisplay(t *testing.T) {
	api := newTestAPI(t)

	require.Equal(t, http.StatusOK, api.do(t, http.MethodPut, "/api/v1/cart/items/1", "s1", map[string]int{"quantity": 99}).Code)
	require.Equal(t, http.StatusOK, api.do(t, http.MethodPut, "/api/v1/cart/items/2", "s1", map[string]int{"quantity": 51}).Code)

	rr := api.do(t, http.MethodGet, "/api/v1/cart/badge", "s1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	view := decode[badge.View](t, rr)
	assert.Equal(t, "99", view.Count)
	assert.Equal(t, 150, view.Total)
	assert.True(t, view.Visible)
}

func TestSessionsAreIsolated(t *testing.T) {
	api := newTestAPI(t)

	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/api/v1/cart/items/1", "alice", nil).Code)

	rr := api.do(t, http.MethodGet, "/api/v1/cart", "bob", nil)
	assert.Empty(t, decode[CartResponse](t, rr).Items)
}

func TestCartIsRestoredFromStorage(t *testing.T) {
	api := newTestAPI(t)
	require.NoError(t, api.storage.Save(context.Background(), storage.CartKey("s1"), []domain.CartItem{
		{Product: domain.Product{ID: 2, Name: "Pants", Price: 1234567}, Quantity: 4},
	}))

	rr := api.do(t, http.MethodGet, "/api/v1/cart/badge", "s1", nil)
	assert.Equal(t, "4", decode[badge.View](t, rr).Count)

	rr = api.do(t, http.MethodPost, "/api/v1/cart/items/2/increment", "s1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 5, decode[LineItemResponse](t, rr).Quantity)
}

func TestClearCart(t *testing.T) {
	api := newTestAPI(t)

	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/api/v1/cart/items/1", "s1", nil).Code)
	require.Equal(t, http.StatusOK, api.do(t, http.MethodPut, "/api/v1/cart/items/2", "s1", map[string]int{"quantity": 3}).Code)

	rr := api.do(t, http.MethodDelete, "/api/v1/cart", "s1", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = api.do(t, http.MethodGet, "/api/v1/cart/badge", "s1", nil)
	view := decode[badge.View](t, rr)
	assert.Equal(t, 0, view.Total)
	assert.False(t, view.Visible)
}

func TestHealthAndMetrics(t *testing.T) {
	api := newTestAPI(t)

	rr := api.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rr)["status"])

	api.do(t, http.MethodGet, "/api/v1/cart", "s1", nil)
	rr = api.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "storefront_test_http_requests_total")
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/mini-store/internal/domain/auth"
	"github.com/xenking/mini-store/internal/domain/cart"
	"github.com/xenking/mini-store/internal/domain/order"
	"github.com/xenking/mini-store/internal/domain/product"
	"github.com/xenking/mini-store/internal/domain/user"
)

// --- In-memory repositories ---

type memProducts struct {
	byID map[string]*product.Product
}

func newMemProducts(products ...product.Product) *memProducts {
	byID := make(map[string]*product.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return &memProducts{byID: byID}
}

func (m *memProducts) Create(_ context.Context, p *product.Product) error {
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *memProducts) Update(_ context.Context, p *product.Product) error {
	if _, ok := m.byID[p.ID]; !ok {
		return product.ErrNotFound
	}
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *memProducts) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return product.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memProducts) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProducts) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memProducts) List(_ context.Context) ([]product.Product, error) {
	out := make([]product.Product, 0, len(m.byID))
	for _, p := range m.byID {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memProducts) Search(_ context.Context, query string, limit int64) ([]product.Product, error) {
	var out []product.Product
	for _, p := range m.byID {
		if int64(len(out)) >= limit {
			break
		}
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(query)) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memProducts) AdjustStock(_ context.Context, id string, delta int64) error {
	p, ok := m.byID[id]
	if !ok {
		return product.ErrNotFound
	}
	if p.Stock+delta < 0 {
		return product.ErrInsufficientStock
	}
	p.Stock += delta
	return nil
}

type memCarts struct {
	byUser map[string]*cart.Cart
}

func newMemCarts() *memCarts {
	return &memCarts{byUser: make(map[string]*cart.Cart)}
}

func (m *memCarts) FindByUser(_ context.Context, userID string) (*cart.Cart, error) {
	c, ok := m.byUser[userID]
	if !ok {
		return nil, cart.ErrNotFound
	}
	cp := *c
	cp.Items = append([]cart.LineItem(nil), c.Items...)
	return &cp, nil
}

func (m *memCarts) Create(_ context.Context, c *cart.Cart) error {
	if _, ok := m.byUser[c.UserID]; ok {
		return cart.ErrAlreadyExists
	}
	cp := *c
	m.byUser[c.UserID] = &cp
	return nil
}

func (m *memCarts) Update(_ context.Context, c *cart.Cart) error {
	stored, ok := m.byUser[c.UserID]
	if !ok || stored.Version != c.Version {
		return cart.ErrVersionConflict
	}
	cp := *c
	cp.Version++
	cp.Items = append([]cart.LineItem(nil), c.Items...)
	m.byUser[c.UserID] = &cp
	return nil
}

type memOrders struct {
	byID map[string]*order.Order
}

func newMemOrders() *memOrders {
	return &memOrders{byID: make(map[string]*order.Order)}
}

func (m *memOrders) Create(_ context.Context, o *order.Order) error {
	cp := *o
	m.byID[o.ID] = &cp
	return nil
}

func (m *memOrders) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) GetByIDForUser(_ context.Context, id, userID string) (*order.Order, error) {
	o, ok := m.byID[id]
	if !ok || o.UserID != userID {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) Update(_ context.Context, o *order.Order) error {
	if _, ok := m.byID[o.ID]; !ok {
		return order.ErrNotFound
	}
	cp := *o
	m.byID[o.ID] = &cp
	return nil
}

func (m *memOrders) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return order.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memOrders) ListByUser(_ context.Context, userID string) ([]order.Order, error) {
	var out []order.Order
	for _, o := range m.byID {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memOrders) ListAll(_ context.Context) ([]order.Order, error) {
	var out []order.Order
	for _, o := range m.byID {
		out = append(out, *o)
	}
	return out, nil
}

type memUsers struct {
	byID map[string]*user.User
}

func newMemUsers(users ...user.User) *memUsers {
	byID := make(map[string]*user.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}
	return &memUsers{byID: byID}
}

func (m *memUsers) GetByID(_ context.Context, id string) (*user.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) Update(_ context.Context, u *user.User) error {
	if _, ok := m.byID[u.ID]; !ok {
		return user.ErrNotFound
	}
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) List(_ context.Context, page, limit int64) ([]user.User, int64, error) {
	var out []user.User
	for _, u := range m.byID {
		out = append(out, *u)
	}
	total := int64(len(out))
	start := (page - 1) * limit
	if start >= total {
		return []user.User{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

func (m *memUsers) AddWishlist(_ context.Context, userID, productID string) error {
	u, ok := m.byID[userID]
	if !ok {
		return user.ErrNotFound
	}
	for _, id := range u.Wishlist {
		if id == productID {
			return nil
		}
	}
	u.Wishlist = append(u.Wishlist, productID)
	return nil
}

func (m *memUsers) RemoveWishlist(_ context.Context, userID, productID string) error {
	u, ok := m.byID[userID]
	if !ok {
		return user.ErrNotFound
	}
	for i, id := range u.Wishlist {
		if id == productID {
			u.Wishlist = append(u.Wishlist[:i], u.Wishlist[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memUsers) AddAddress(_ context.Context, userID string, addr user.Address) error {
	u, ok := m.byID[userID]
	if !ok {
		return user.ErrNotFound
	}
	u.Addresses = append(u.Addresses, addr)
	return nil
}

func (m *memUsers) RemoveAddress(_ context.Context, userID string, index int) error {
	u, ok := m.byID[userID]
	if !ok {
		return user.ErrNotFound
	}
	if index < 0 || index >= len(u.Addresses) {
		return user.ErrNotFound
	}
	u.Addresses = append(u.Addresses[:index], u.Addresses[index+1:]...)
	return nil
}

func (m *memUsers) SetBlocked(_ context.Context, userID string, blocked bool) error {
	u, ok := m.byID[userID]
	if !ok {
		return user.ErrNotFound
	}
	u.IsBlocked = blocked
	return nil
}

// --- Test harness ---

var testSecret = []byte("test-secret")

type testEnv struct {
	mux      *http.ServeMux
	products *memProducts
	carts    *memCarts
	orders   *memOrders
	users    *memUsers
}

func newTestEnv(t *testing.T, products ...product.Product) *testEnv {
	t.Helper()

	prodRepo := newMemProducts(products...)
	cartRepo := newMemCarts()
	orderRepo := newMemOrders()
	userRepo := newMemUsers(
		user.User{ID: "u1", Name: "Alice", Email: "alice@example.com", Role: auth.RoleUser},
		user.User{ID: "u2", Name: "Bob", Email: "bob@example.com", Role: auth.RoleUser, IsBlocked: true},
		user.User{ID: "admin1", Name: "Root", Email: "root@example.com", Role: auth.RoleAdmin},
	)

	productSvc := product.NewService(prodRepo)
	cartSvc := cart.NewService(cartRepo, prodRepo)
	orderSvc := order.NewService(orderRepo, prodRepo, order.CartClearerFunc(func(ctx context.Context, userID string) error {
		_, err := cartSvc.Clear(ctx, userID)
		return err
	}))
	userSvc := user.NewService(userRepo, prodRepo)

	h := NewHandler(productSvc, cartSvc, orderSvc, userSvc, auth.NewTokenVerifier(testSecret), userRepo)
	mux := http.NewServeMux()
	h.Routes(mux)

	return &testEnv{
		mux:      mux,
		products: prodRepo,
		carts:    cartRepo,
		orders:   orderRepo,
		users:    userRepo,
	}
}

func tokenFor(userID string, role auth.Role) string {
	return auth.SignToken(testSecret, auth.Claims{UserID: userID, Role: role}, time.Now().Add(time.Hour))
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, req)
	return w
}

func testProduct(id, name string, price int64, discount, stock int64) product.Product {
	p := product.Product{
		ID:       id,
		Name:     name,
		Category: "test",
		Price:    decimal.NewFromInt(price),
		Discount: discount,
		Stock:    stock,
		Image:    "img.jpg",
		IsActive: true,
	}
	p.Derive()
	return p
}

// --- Tests ---

func TestListProducts(t *testing.T) {
	env := newTestEnv(t,
		testProduct("p1", "Widget", 100, 0, 5),
		testProduct("p2", "Gadget", 200, 10, 5),
	)

	w := env.do(t, http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got []productResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Len(t, got, 2)
}

func TestGetProduct_NotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/products/missing", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	var body errorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, http.StatusNotFound, body.Code)
	assert.Equal(t, "product not found", body.Message)
}

func TestSearchProducts_EmptyQuery(t *testing.T) {
	env := newTestEnv(t, testProduct("p1", "Widget", 100, 0, 5))

	w := env.do(t, http.MethodGet, "/api/products/search?q=", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]\n", w.Body.String())
}

func TestAuthentication_MissingToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthentication_TamperedToken(t *testing.T) {
	env := newTestEnv(t)

	token := tokenFor("u1", auth.RoleUser) + "x"
	w := env.do(t, http.MethodGet, "/api/cart", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthentication_BlockedUser(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/cart", tokenFor("u2", auth.RoleUser), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateProduct_NonAdminForbidden(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/products", tokenFor("u1", auth.RoleUser), createProductRequest{
		Name: "Widget", Category: "tools", Price: 100, Stock: 5, Image: "img.jpg",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateProduct_TokenRoleCannotEscalate(t *testing.T) {
	// The stored role wins: a user token claiming admin still gets 403.
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/products", tokenFor("u1", auth.RoleAdmin), createProductRequest{
		Name: "Widget", Category: "tools", Price: 100, Stock: 5, Image: "img.jpg",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateProduct_Admin(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/products", tokenFor("admin1", auth.RoleAdmin), createProductRequest{
		Name: "Widget", Category: "tools", Price: 100, Discount: 10, Stock: 5, Image: "img.jpg",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var got productResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "Widget", got.Name)
	assert.InDelta(t, 90, got.SellingPrice, 0.001)
	assert.True(t, got.IsActive)
}

func TestCreateProduct_ValidationError(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/products", tokenFor("admin1", auth.RoleAdmin), createProductRequest{
		Name: "Widget", Category: "tools", Price: 100, Discount: 95, Stock: 5, Image: "img.jpg",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body errorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "discount", body.Field)
}

func TestGetCart_CreatesEmpty(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/cart", tokenFor("u1", auth.RoleUser), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got cartResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "u1", got.UserID)
	assert.Empty(t, got.Items)
	assert.Zero(t, got.TotalItems)
}

func TestUpsertCartItem(t *testing.T) {
	env := newTestEnv(t, testProduct("p1", "Widget", 100, 0, 5))
	token := tokenFor("u1", auth.RoleUser)

	w := env.do(t, http.MethodPost, "/api/cart/items", token, upsertCartItemRequest{
		ProductID: "p1", Quantity: 2,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var got cartResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	require.Len(t, got.Items, 1)
	assert.Equal(t, int64(2), got.Items[0].Quantity)
	assert.InDelta(t, 200, got.TotalPrice, 0.001)
}

func TestUpsertCartItem_DeltaOutOfRange(t *testing.T) {
	env := newTestEnv(t, testProduct("p1", "Widget", 100, 0, 5))

	w := env.do(t, http.MethodPost, "/api/cart/items", tokenFor("u1", auth.RoleUser), upsertCartItemRequest{
		ProductID: "p1", Quantity: 11,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpsertCartItem_NegativeDeltaRemovesLine(t *testing.T) {
	env := newTestEnv(t, testProduct("p1", "Widget", 100, 0, 5))
	token := tokenFor("u1", auth.RoleUser)

	env.do(t, http.MethodPost, "/api/cart/items", token, upsertCartItemRequest{ProductID: "p1", Quantity: 3})
	w := env.do(t, http.MethodPost, "/api/cart/items", token, upsertCartItemRequest{ProductID: "p1", Quantity: -5})
	require.Equal(t, http.StatusOK, w.Code)

	var got cartResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Empty(t, got.Items)
}

func TestCreateOrder(t *testing.T) {
	env := newTestEnv(t, testProduct("p1", "Widget", 100, 0, 5))
	token := tokenFor("u1", auth.RoleUser)

	// Fill the cart first so checkout clears it.
	env.do(t, http.MethodPost, "/api/cart/items", token, upsertCartItemRequest{ProductID: "p1", Quantity: 2})

	w := env.do(t, http.MethodPost, "/api/orders", token, map[string]any{
		"items": []map[string]any{{"productId": "p1", "quantity": 2}},
		"shippingAddress": shippingAddress{
			Name: "Alice", Phone: "123", Address: "1 Main St",
			City: "Town", State: "TS", Pincode: "00001",
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var got orderResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "Pending", got.Status)
	assert.Equal(t, "COD", got.Payment.Method)
	assert.InDelta(t, 200, got.TotalAmount, 0.001)

	// Stock was claimed and the cart cleared.
	p, err := env.products.GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.Stock)

	cw := env.do(t, http.MethodGet, "/api/cart", token, nil)
	var c cartResponse
	require.NoError(t, json.NewDecoder(cw.Body).Decode(&c))
	assert.Empty(t, c.Items)
}

func TestCreateOrder_OutOfStock(t *testing.T) {
	env := newTestEnv(t, testProduct("p1", "Widget", 100, 0, 1))

	w := env.do(t, http.MethodPost, "/api/orders", tokenFor("u1", auth.RoleUser), map[string]any{
		"items": []map[string]any{{"productId": "p1", "quantity": 2}},
		"shippingAddress": shippingAddress{
			Name: "Alice", Phone: "123", Address: "1 Main St",
			City: "Town", State: "TS", Pincode: "00001",
		},
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateOrder_MissingAddressField(t *testing.T) {
	env := newTestEnv(t, testProduct("p1", "Widget", 100, 0, 5))

	w := env.do(t, http.MethodPost, "/api/orders", tokenFor("u1", auth.RoleUser), map[string]any{
		"items": []map[string]any{{"productId": "p1", "quantity": 1}},
		"shippingAddress": shippingAddress{
			Name: "Alice", Phone: "123", Address: "1 Main St",
			City: "Town", State: "TS",
		},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body errorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "pincode", body.Field)
}

func TestCancelOrder_NotOwnerGets404(t *testing.T) {
	env := newTestEnv(t, testProduct("p1", "Widget", 100, 0, 5))

	w := env.do(t, http.MethodPost, "/api/orders", tokenFor("u1", auth.RoleUser), map[string]any{
		"items": []map[string]any{{"productId": "p1", "quantity": 1}},
		"shippingAddress": shippingAddress{
			Name: "Alice", Phone: "123", Address: "1 Main St",
			City: "Town", State: "TS", Pincode: "00001",
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var placed orderResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&placed))

	// Another user cannot even learn the order exists.
	w = env.do(t, http.MethodPut, "/api/orders/"+placed.ID+"/cancel", tokenFor("admin1", auth.RoleAdmin), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelOrder_ReleasesStock(t *testing.T) {
	env := newTestEnv(t, testProduct("p1", "Widget", 100, 0, 5))
	token := tokenFor("u1", auth.RoleUser)

	w := env.do(t, http.MethodPost, "/api/orders", token, map[string]any{
		"items": []map[string]any{{"productId": "p1", "quantity": 2}},
		"shippingAddress": shippingAddress{
			Name: "Alice", Phone: "123", Address: "1 Main St",
			City: "Town", State: "TS", Pincode: "00001",
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var placed orderResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&placed))

	w = env.do(t, http.MethodPut, "/api/orders/"+placed.ID+"/cancel", token, cancelOrderRequest{Reason: "changed my mind"})
	require.Equal(t, http.StatusOK, w.Code)

	var cancelled orderResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&cancelled))
	assert.Equal(t, "Cancelled", cancelled.Status)
	assert.Equal(t, "changed my mind", cancelled.CancelReason)

	p, err := env.products.GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.Stock)

	// Second cancel is rejected.
	w = env.do(t, http.MethodPut, "/api/orders/"+placed.ID+"/cancel", token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUpdateOrderStatus_InvalidTransition(t *testing.T) {
	env := newTestEnv(t, testProduct("p1", "Widget", 100, 0, 5))
	token := tokenFor("u1", auth.RoleUser)

	w := env.do(t, http.MethodPost, "/api/orders", token, map[string]any{
		"items": []map[string]any{{"productId": "p1", "quantity": 1}},
		"shippingAddress": shippingAddress{
			Name: "Alice", Phone: "123", Address: "1 Main St",
			City: "Town", State: "TS", Pincode: "00001",
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var placed orderResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&placed))

	admin := tokenFor("admin1", auth.RoleAdmin)

	w = env.do(t, http.MethodPut, "/api/orders/"+placed.ID+"/status", admin, updateOrderStatusRequest{Status: "Delivered"})
	require.Equal(t, http.StatusOK, w.Code)

	// Delivered is terminal.
	w = env.do(t, http.MethodPut, "/api/orders/"+placed.ID+"/status", admin, updateOrderStatusRequest{Status: "Processing"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestWishlistRoundTrip(t *testing.T) {
	env := newTestEnv(t, testProduct("p1", "Widget", 100, 0, 5))
	token := tokenFor("u1", auth.RoleUser)

	w := env.do(t, http.MethodPost, "/api/users/me/wishlist", token, wishlistRequest{ProductID: "p1"})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/api/users/me/wishlist", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var products []productResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&products))
	require.Len(t, products, 1)
	assert.Equal(t, "p1", products[0].ID)

	w = env.do(t, http.MethodDelete, "/api/users/me/wishlist/p1", token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestAddToWishlist_UnknownProduct(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/users/me/wishlist", tokenFor("u1", auth.RoleUser), wishlistRequest{ProductID: "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListUsers_NonAdminForbidden(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/users", tokenFor("u1", auth.RoleUser), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListUsers_Admin(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/users?page=1", tokenFor("admin1", auth.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page userPageResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&page))
	assert.Equal(t, int64(3), page.TotalUsers)
	assert.Equal(t, int64(1), page.TotalPages)
}

func TestBlockUser_SelfBlockRejected(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPut, "/api/users/admin1/block", tokenFor("admin1", auth.RoleAdmin), setBlockedRequest{Blocked: true})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBlockUser_TakesEffectImmediately(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPut, "/api/users/u1/block", tokenFor("admin1", auth.RoleAdmin), setBlockedRequest{Blocked: true})
	require.Equal(t, http.StatusNoContent, w.Code)

	// The still-valid token no longer works.
	w = env.do(t, http.MethodGet, "/api/cart", tokenFor("u1", auth.RoleUser), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAddressRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	token := tokenFor("u1", auth.RoleUser)

	addr := addressPayload{
		Name: "Alice", Phone: "123", Address: "1 Main St",
		City: "Town", State: "TS", Pincode: "00001",
	}
	w := env.do(t, http.MethodPost, "/api/users/me/addresses", token, addr)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/api/users/me/addresses", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var addresses []addressPayload
	require.NoError(t, json.NewDecoder(w.Body).Decode(&addresses))
	require.Len(t, addresses, 1)
	assert.Equal(t, addr, addresses[0])

	w = env.do(t, http.MethodDelete, "/api/users/me/addresses/0", token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodDelete, "/api/users/me/addresses/5", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// Package handler exposes the REST API: catalog browsing, cart mutations,
// checkout and order lifecycle, and profile management. Handlers decode
// requests, delegate to the domain services, and map domain errors to the
// JSON error envelope.
package handler

import (
	"net/http"

	"github.com/xenking/mini-store/internal/domain/auth"
	"github.com/xenking/mini-store/internal/domain/cart"
	"github.com/xenking/mini-store/internal/domain/order"
	"github.com/xenking/mini-store/internal/domain/product"
	"github.com/xenking/mini-store/internal/domain/user"
)

// Handler routes API requests to the domain services.
type Handler struct {
	products *product.Service
	carts    *cart.Service
	orders   *order.Service
	users    *user.Service

	verifier auth.Verifier
	accounts user.Repository
}

// NewHandler constructs a Handler with the required domain dependencies.
// accounts backs the per-request block check during authentication.
func NewHandler(
	products *product.Service,
	carts *cart.Service,
	orders *order.Service,
	users *user.Service,
	verifier auth.Verifier,
	accounts user.Repository,
) *Handler {
	return &Handler{
		products: products,
		carts:    carts,
		orders:   orders,
		users:    users,
		verifier: verifier,
		accounts: accounts,
	}
}

// Routes registers every API endpoint on mux. Catalog reads are public;
// everything else requires a bearer token.
func (h *Handler) Routes(mux *http.ServeMux) {
	// Public catalog.
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/search", h.searchProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)

	authed := func(fn http.HandlerFunc) http.Handler {
		return h.authenticate(fn)
	}

	// Catalog management (admin enforced in the service).
	mux.Handle("POST /api/products", authed(h.createProduct))
	mux.Handle("PUT /api/products/{id}", authed(h.updateProduct))
	mux.Handle("DELETE /api/products/{id}", authed(h.deleteProduct))

	// Cart.
	mux.Handle("GET /api/cart", authed(h.getCart))
	mux.Handle("POST /api/cart/items", authed(h.upsertCartItem))
	mux.Handle("DELETE /api/cart/items/{productId}", authed(h.removeCartItem))
	mux.Handle("DELETE /api/cart", authed(h.clearCart))

	// Orders.
	mux.Handle("POST /api/orders", authed(h.createOrder))
	mux.Handle("GET /api/orders/mine", authed(h.listMyOrders))
	mux.Handle("GET /api/orders/all", authed(h.listAllOrders))
	mux.Handle("GET /api/orders/{id}", authed(h.getOrder))
	mux.Handle("PUT /api/orders/{id}/status", authed(h.updateOrderStatus))
	mux.Handle("PUT /api/orders/{id}/cancel", authed(h.cancelOrder))
	mux.Handle("DELETE /api/orders/{id}", authed(h.deleteOrder))

	// Profile, wishlist, addresses.
	mux.Handle("GET /api/users/me", authed(h.getProfile))
	mux.Handle("PUT /api/users/me", authed(h.updateProfile))
	mux.Handle("GET /api/users/me/wishlist", authed(h.getWishlist))
	mux.Handle("POST /api/users/me/wishlist", authed(h.addToWishlist))
	mux.Handle("DELETE /api/users/me/wishlist/{productId}", authed(h.removeFromWishlist))
	mux.Handle("GET /api/users/me/addresses", authed(h.listAddresses))
	mux.Handle("POST /api/users/me/addresses", authed(h.addAddress))
	mux.Handle("DELETE /api/users/me/addresses/{index}", authed(h.removeAddress))

	// Administration.
	mux.Handle("GET /api/users", authed(h.listUsers))
	mux.Handle("PUT /api/users/{id}/block", authed(h.setUserBlocked))
}

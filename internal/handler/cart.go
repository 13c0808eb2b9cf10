package handler

import (
	"net/http"
	"time"

	"github.com/xenking/mini-store/internal/domain/cart"
)

// cartItemResponse is one cart line on the wire.
type cartItemResponse struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Image     string  `json:"image"`
	Quantity  int64   `json:"quantity"`
}

// cartResponse is the wire shape of a cart.
type cartResponse struct {
	ID         string             `json:"id"`
	UserID     string             `json:"userId"`
	Items      []cartItemResponse `json:"items"`
	TotalItems int64              `json:"totalItems"`
	TotalPrice float64            `json:"totalPrice"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

func toCartResponse(c *cart.Cart) cartResponse {
	items := make([]cartItemResponse, len(c.Items))
	for i, it := range c.Items {
		items[i] = cartItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price.InexactFloat64(),
			Image:     it.Image,
			Quantity:  it.Quantity,
		}
	}
	return cartResponse{
		ID:         c.ID,
		UserID:     c.UserID,
		Items:      items,
		TotalItems: c.TotalItems,
		TotalPrice: c.TotalPrice.InexactFloat64(),
		UpdatedAt:  c.UpdatedAt,
	}
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.GetOrCreate(r.Context(), mustClaims(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

// upsertCartItemRequest merges a quantity delta for one product.
type upsertCartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

func (h *Handler) upsertCartItem(w http.ResponseWriter, r *http.Request) {
	var req upsertCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == "" {
		writeErrorMessage(w, http.StatusBadRequest, "productId is required")
		return
	}

	c, err := h.carts.UpsertItem(r.Context(), mustClaims(r).UserID, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.RemoveItem(r.Context(), mustClaims(r).UserID, r.PathValue("productId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Clear(r.Context(), mustClaims(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

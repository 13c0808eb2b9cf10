package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/mini-store/internal/domain/product"
)

// productResponse is the wire shape of a catalog item.
type productResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	Price        float64   `json:"price"`
	Discount     int64     `json:"discount"`
	SellingPrice float64   `json:"sellingPrice"`
	Stock        int64     `json:"stock"`
	Image        string    `json:"image"`
	Description  string    `json:"description,omitempty"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func toProductResponse(p product.Product) productResponse {
	return productResponse{
		ID:           p.ID,
		Name:         p.Name,
		Category:     p.Category,
		Price:        p.Price.InexactFloat64(),
		Discount:     p.Discount,
		SellingPrice: p.SellingPrice.InexactFloat64(),
		Stock:        p.Stock,
		Image:        p.Image,
		Description:  p.Description,
		IsActive:     p.IsActive,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func toProductResponses(products []product.Product) []productResponse {
	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = toProductResponse(p)
	}
	return out
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponses(products))
}

func (h *Handler) searchProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponses(products))
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(*p))
}

// createProductRequest is the admin catalog creation payload.
type createProductRequest struct {
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Discount    int64   `json:"discount"`
	Stock       int64   `json:"stock"`
	Image       string  `json:"image"`
	Description string  `json:"description"`
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.products.Create(r.Context(), mustClaims(r), product.CreateInput{
		Name:        req.Name,
		Category:    req.Category,
		Price:       decimal.NewFromFloat(req.Price),
		Discount:    req.Discount,
		Stock:       req.Stock,
		Image:       req.Image,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResponse(*p))
}

// updateProductRequest is a partial catalog patch; absent fields are left
// unchanged.
type updateProductRequest struct {
	Name        *string  `json:"name"`
	Category    *string  `json:"category"`
	Price       *float64 `json:"price"`
	Discount    *int64   `json:"discount"`
	Stock       *int64   `json:"stock"`
	Image       *string  `json:"image"`
	Description *string  `json:"description"`
	IsActive    *bool    `json:"isActive"`
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req updateProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in := product.UpdateInput{
		Name:        req.Name,
		Category:    req.Category,
		Discount:    req.Discount,
		Stock:       req.Stock,
		Image:       req.Image,
		Description: req.Description,
		IsActive:    req.IsActive,
	}
	if req.Price != nil {
		price := decimal.NewFromFloat(*req.Price)
		in.Price = &price
	}

	p, err := h.products.Update(r.Context(), mustClaims(r), r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(*p))
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), mustClaims(r), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

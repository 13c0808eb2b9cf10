package handler

import (
	"net/http"
	"time"

	"github.com/xenking/mini-store/internal/domain/order"
)

// orderItemResponse is one purchased line on the wire.
type orderItemResponse struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Image     string  `json:"image"`
	Quantity  int64   `json:"quantity"`
}

// shippingAddress is the request and response shape of a destination.
type shippingAddress struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

// paymentResponse is payment info on the wire.
type paymentResponse struct {
	Method        string     `json:"method"`
	TransactionID string     `json:"transactionId,omitempty"`
	Status        string     `json:"status"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
}

// orderResponse is the wire shape of an order.
type orderResponse struct {
	ID              string              `json:"id"`
	UserID          string              `json:"userId"`
	Items           []orderItemResponse `json:"items"`
	TotalItems      int64               `json:"totalItems"`
	TotalAmount     float64             `json:"totalAmount"`
	ShippingAddress shippingAddress     `json:"shippingAddress"`
	Status          string              `json:"status"`
	CancelReason    string              `json:"cancelReason,omitempty"`
	CancelledAt     *time.Time          `json:"cancelledAt,omitempty"`
	Payment         paymentResponse     `json:"payment"`
	DeliveredAt     *time.Time          `json:"deliveredAt,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price.InexactFloat64(),
			Image:     it.Image,
			Quantity:  it.Quantity,
		}
	}
	return orderResponse{
		ID:          o.ID,
		UserID:      o.UserID,
		Items:       items,
		TotalItems:  o.TotalItems,
		TotalAmount: o.TotalAmount.InexactFloat64(),
		ShippingAddress: shippingAddress{
			Name:    o.ShippingAddress.Name,
			Phone:   o.ShippingAddress.Phone,
			Address: o.ShippingAddress.Address,
			City:    o.ShippingAddress.City,
			State:   o.ShippingAddress.State,
			Pincode: o.ShippingAddress.Pincode,
		},
		Status:       string(o.Status),
		CancelReason: o.CancelReason,
		CancelledAt:  o.CancelledAt,
		Payment: paymentResponse{
			Method:        string(o.Payment.Method),
			TransactionID: o.Payment.TransactionID,
			Status:        string(o.Payment.Status),
			PaidAt:        o.Payment.PaidAt,
		},
		DeliveredAt: o.DeliveredAt,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

func toOrderResponses(orders []order.Order) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	return out
}

// createOrderRequest is the checkout payload. Prices are never accepted
// from the client; only product IDs and quantities matter.
type createOrderRequest struct {
	Items []struct {
		ProductID string `json:"productId"`
		Quantity  int64  `json:"quantity"`
	} `json:"items"`
	ShippingAddress shippingAddress `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]order.ItemRequest, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.ItemRequest{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	o, err := h.orders.Create(r.Context(), mustClaims(r).UserID, order.CreateRequest{
		Items: items,
		ShippingAddress: order.ShippingAddress{
			Name:    req.ShippingAddress.Name,
			Phone:   req.ShippingAddress.Phone,
			Address: req.ShippingAddress.Address,
			City:    req.ShippingAddress.City,
			State:   req.ShippingAddress.State,
			Pincode: req.ShippingAddress.Pincode,
		},
		PaymentMethod: order.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) listMyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListMine(r.Context(), mustClaims(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(orders))
}

func (h *Handler) listAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListAll(r.Context(), mustClaims(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponses(orders))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	claims := mustClaims(r)
	id := r.PathValue("id")

	var (
		o   *order.Order
		err error
	)
	if claims.IsAdmin() {
		o, err = h.orders.Get(r.Context(), id)
	} else {
		o, err = h.orders.GetForUser(r.Context(), id, claims.UserID)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// updateOrderStatusRequest moves an order along its lifecycle.
type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateOrderStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), mustClaims(r), r.PathValue("id"), order.Status(req.Status))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// cancelOrderRequest carries the optional cancellation reason.
type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	var req cancelOrderRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	o, err := h.orders.Cancel(r.Context(), mustClaims(r).UserID, r.PathValue("id"), req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Delete(r.Context(), mustClaims(r), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/mini-store/internal/domain/auth"
	"github.com/xenking/mini-store/internal/domain/cart"
	"github.com/xenking/mini-store/internal/domain/order"
	"github.com/xenking/mini-store/internal/domain/product"
	"github.com/xenking/mini-store/internal/domain/user"
)

// maxBodySize caps request bodies; nothing in this API legitimately needs
// more than a megabyte.
const maxBodySize = 1 << 20

// errorResponse is the JSON error envelope shared by all endpoints.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Code: status, Message: message})
}

// decodeJSON reads and unmarshals a request body into dst with a size cap.
func decodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return errors.Wrap(err, "decode body")
	}
	return nil
}

// writeError maps a domain error to the HTTP error envelope. Unknown
// errors become an opaque 500 after being logged; their details stay out
// of the response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		writeErrorMessage(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrForbidden), errors.Is(err, auth.ErrBlocked):
		writeErrorMessage(w, http.StatusForbidden, err.Error())
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, user.ErrNotFound),
		errors.Is(err, cart.ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, cart.ErrDeltaOutOfRange),
		errors.Is(err, order.ErrEmptyItems):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotCancellable),
		errors.Is(err, cart.ErrVersionConflict),
		errors.Is(err, user.ErrSelfBlock):
		writeErrorMessage(w, http.StatusConflict, err.Error())
	default:
		writeTypedError(w, r, err)
	}
}

func writeTypedError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *product.ValidationError
		addressErr    *order.AddressError
		quantityErr   *order.InvalidQuantityError
		paymentErr    *order.InvalidPaymentMethodError
		statusErr     *order.InvalidStatusError
		transitionErr *order.TransitionError
		stockErr      *order.OutOfStockError
	)
	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: validationErr.Error(),
			Field:   validationErr.Field,
		})
	case errors.As(err, &addressErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: addressErr.Error(),
			Field:   addressErr.Field,
		})
	case errors.As(err, &quantityErr),
		errors.As(err, &paymentErr),
		errors.As(err, &statusErr):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &transitionErr),
		errors.As(err, &stockErr):
		writeErrorMessage(w, http.StatusConflict, err.Error())
	default:
		zctx.From(r.Context()).Error("Unhandled error", zap.Error(err))
		writeErrorMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

// Package order implements the order aggregate: immutable purchase
// snapshots, server-computed totals, and the status state machine.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusProcessing Status = "Processing"
	StatusDelivered  Status = "Delivered"
	StatusCancelled  Status = "Cancelled"
)

// Valid reports whether s is one of the four enumerated statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no transition may leave s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransitionTo enforces the state machine:
// Pending → Processing → Delivered, and Pending|Processing → Cancelled.
func (s Status) CanTransitionTo(next Status) bool {
	if s.Terminal() {
		return false
	}
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusDelivered || next == StatusCancelled
	case StatusProcessing:
		return next == StatusDelivered || next == StatusCancelled
	}
	return false
}

// PaymentMethod enumerates accepted payment channels.
type PaymentMethod string

const (
	PaymentCOD      PaymentMethod = "COD"
	PaymentRazorpay PaymentMethod = "Razorpay"
	PaymentStripe   PaymentMethod = "Stripe"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCOD || m == PaymentRazorpay || m == PaymentStripe
}

// PaymentState tracks whether an order has been paid.
type PaymentState string

const (
	PaymentPending PaymentState = "Pending"
	PaymentPaid    PaymentState = "Paid"
	PaymentFailed  PaymentState = "Failed"
)

// Quantity bounds for a single purchased item.
const (
	MinItemQuantity = 1
	MaxItemQuantity = 10
)

var (
	// ErrNotFound is returned when an order does not exist or when the
	// caller does not own it. The two cases are deliberately
	// indistinguishable so existence never leaks to non-owners.
	ErrNotFound = errors.New("order not found")
	// ErrEmptyItems is returned when an order is placed without items.
	ErrEmptyItems = errors.New("order items are required")
	// ErrNotCancellable is returned when cancellation is requested for an
	// order that is no longer pending.
	ErrNotCancellable = errors.New("only pending orders can be cancelled")
)

// InvalidQuantityError indicates an item quantity outside [1, 10].
type InvalidQuantityError struct {
	ProductID string
	Quantity  int64
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity %d for product %s must be between %d and %d",
		e.Quantity, e.ProductID, MinItemQuantity, MaxItemQuantity)
}

// InvalidPaymentMethodError indicates an unknown payment method.
type InvalidPaymentMethodError struct {
	Method PaymentMethod
}

func (e *InvalidPaymentMethodError) Error() string {
	return fmt.Sprintf("invalid payment method %q", e.Method)
}

// InvalidStatusError indicates an unknown status value in a status update.
type InvalidStatusError struct {
	Status Status
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid order status %q", e.Status)
}

// TransitionError indicates a status change the state machine forbids.
type TransitionError struct {
	From, To Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// AddressError indicates a missing shipping address field.
type AddressError struct {
	Field string
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("shipping address %s is required", e.Field)
}

// OutOfStockError indicates a product without enough stock to fulfil the
// requested quantity.
type OutOfStockError struct {
	ProductID string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("product %s is out of stock", e.ProductID)
}

// Item is one purchased product. Name, Price, and Image are copies frozen
// at order-creation time; later catalog edits never alter them.
type Item struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
	Image     string
	Quantity  int64
}

// ShippingAddress is the destination for an order. All fields are required.
type ShippingAddress struct {
	Name    string
	Phone   string
	Address string
	City    string
	State   string
	Pincode string
}

// Validate returns an AddressError for the first missing field.
func (a ShippingAddress) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"name", a.Name},
		{"phone", a.Phone},
		{"address", a.Address},
		{"city", a.City},
		{"state", a.State},
		{"pincode", a.Pincode},
	}
	for _, f := range fields {
		if f.value == "" {
			return &AddressError{Field: f.name}
		}
	}
	return nil
}

// PaymentInfo records how an order is (to be) paid.
type PaymentInfo struct {
	Method        PaymentMethod
	TransactionID string
	Status        PaymentState
	PaidAt        *time.Time
}

// Order is an immutable purchase record. Items and ShippingAddress never
// change after creation; only the status machine and payment info advance.
type Order struct {
	ID              string
	UserID          string
	Items           []Item
	TotalItems      int64
	TotalAmount     decimal.Decimal
	ShippingAddress ShippingAddress
	Status          Status
	CancelReason    string
	CancelledAt     *time.Time
	Payment         PaymentInfo
	DeliveredAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	// GetByID returns an order regardless of owner (admin paths).
	GetByID(ctx context.Context, id string) (*Order, error)
	// GetByIDForUser returns the order only when userID owns it; any other
	// case is ErrNotFound.
	GetByIDForUser(ctx context.Context, id, userID string) (*Order, error)
	Update(ctx context.Context, o *Order) error
	Delete(ctx context.Context, id string) error
	// ListByUser returns userID's orders, newest first.
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// ListAll returns every order, newest first.
	ListAll(ctx context.Context) ([]Order, error)
}

package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/mini-store/internal/domain/auth"
	"github.com/xenking/mini-store/internal/domain/product"
)

// defaultCancelReason is recorded when a user cancels without giving one.
const defaultCancelReason = "No reason provided"

// CartClearer empties a user's cart after a successful checkout.
type CartClearer interface {
	ClearCart(ctx context.Context, userID string) error
}

// CartClearerFunc adapts a function to the CartClearer interface.
type CartClearerFunc func(ctx context.Context, userID string) error

// ClearCart calls f.
func (f CartClearerFunc) ClearCart(ctx context.Context, userID string) error {
	return f(ctx, userID)
}

// ItemRequest is a client-supplied purchase line: product and quantity only.
// Any client-sent price is ignored; totals always come from the catalog.
type ItemRequest struct {
	ProductID string
	Quantity  int64
}

// CreateRequest holds the input for placing an order.
type CreateRequest struct {
	Items           []ItemRequest
	ShippingAddress ShippingAddress
	PaymentMethod   PaymentMethod
}

// Service orchestrates checkout and the order lifecycle.
type Service struct {
	orders   Repository
	products product.Repository
	carts    CartClearer
	now      func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
// carts may be nil when checkout should not touch the cart.
func NewService(orders Repository, products product.Repository, carts CartClearer) *Service {
	return &Service{
		orders:   orders,
		products: products,
		carts:    carts,
		now:      time.Now,
	}
}

// Create validates every item against the live catalog, computes totals from
// authoritative selling prices, decrements stock, and persists a Pending
// order. Validation is all-or-nothing: a single bad item aborts the order
// before anything is written. On success the user's cart is cleared.
func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if err := req.ShippingAddress.Validate(); err != nil {
		return nil, err
	}

	method := req.PaymentMethod
	if method == "" {
		method = PaymentCOD
	}
	if !method.Valid() {
		return nil, &InvalidPaymentMethodError{Method: method}
	}

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity < MinItemQuantity || item.Quantity > MaxItemQuantity {
			return nil, &InvalidQuantityError{ProductID: item.ProductID, Quantity: item.Quantity}
		}
		ids[i] = item.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]*product.Product, len(fetched))
	for i := range fetched {
		byID[fetched[i].ID] = &fetched[i]
	}

	items := make([]Item, len(req.Items))
	for i, reqItem := range req.Items {
		p, ok := byID[reqItem.ProductID]
		if !ok || !p.IsActive {
			return nil, product.ErrNotFound
		}
		items[i] = Item{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.SellingPrice,
			Image:     p.Image,
			Quantity:  reqItem.Quantity,
		}
	}

	if err := s.claimStock(ctx, items); err != nil {
		return nil, err
	}

	now := s.now()
	o := &Order{
		ID:              uuid.New().String(),
		UserID:          userID,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		Status:          StatusPending,
		Payment: PaymentInfo{
			Method: method,
			Status: PaymentPending,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	o.recomputeTotals()

	if err := s.orders.Create(ctx, o); err != nil {
		s.releaseStock(ctx, items)
		return nil, errors.Wrap(err, "create order")
	}

	if s.carts != nil {
		if err := s.carts.ClearCart(ctx, userID); err != nil {
			// The order is already placed; a stale cart is an annoyance,
			// not a correctness problem.
			zctx.From(ctx).Warn("clear cart after checkout",
				zap.String("user_id", userID), zap.Error(err))
		}
	}

	return o, nil
}

// claimStock decrements stock for every item, undoing earlier decrements
// when a later one fails so checkout never consumes stock partially.
func (s *Service) claimStock(ctx context.Context, items []Item) error {
	for i, item := range items {
		err := s.products.AdjustStock(ctx, item.ProductID, -item.Quantity)
		if err == nil {
			continue
		}
		s.releaseStock(ctx, items[:i])
		if errors.Is(err, product.ErrInsufficientStock) {
			return &OutOfStockError{ProductID: item.ProductID}
		}
		if errors.Is(err, product.ErrNotFound) {
			return product.ErrNotFound
		}
		return errors.Wrapf(err, "claim stock for product %s", item.ProductID)
	}
	return nil
}

// releaseStock returns previously claimed stock, best effort.
func (s *Service) releaseStock(ctx context.Context, items []Item) {
	for _, item := range items {
		if err := s.products.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
			zctx.From(ctx).Error("release stock",
				zap.String("product_id", item.ProductID), zap.Error(err))
		}
	}
}

// recomputeTotals derives TotalItems and TotalAmount from the items.
func (o *Order) recomputeTotals() {
	var count int64
	total := decimal.Zero
	for _, item := range o.Items {
		count += item.Quantity
		total = total.Add(item.Price.Mul(decimal.NewFromInt(item.Quantity)))
	}
	o.TotalItems = count
	o.TotalAmount = total
}

// UpdateStatus moves an order to newStatus. Admin only. Transitions out of
// terminal states and any move the state machine forbids are rejected.
// Reaching Delivered stamps DeliveredAt.
func (s *Service) UpdateStatus(ctx context.Context, actor auth.Claims, orderID string, newStatus Status) (*Order, error) {
	if !actor.IsAdmin() {
		return nil, auth.ErrForbidden
	}
	if !newStatus.Valid() {
		return nil, &InvalidStatusError{Status: newStatus}
	}

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransitionTo(newStatus) {
		return nil, &TransitionError{From: o.Status, To: newStatus}
	}

	now := s.now()
	o.Status = newStatus
	o.UpdatedAt = now
	switch newStatus {
	case StatusDelivered:
		o.DeliveredAt = &now
	case StatusCancelled:
		o.CancelledAt = &now
		if o.CancelReason == "" {
			o.CancelReason = defaultCancelReason
		}
		s.releaseStock(ctx, o.Items)
	}

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrapf(err, "update order %s", orderID)
	}
	return o, nil
}

// Cancel lets the owning user cancel a still-pending order. Non-owners get
// ErrNotFound, never a hint that the order exists. Cancelling returns the
// claimed stock to the catalog.
func (s *Service) Cancel(ctx context.Context, userID, orderID, reason string) (*Order, error) {
	o, err := s.orders.GetByIDForUser(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusPending {
		return nil, ErrNotCancellable
	}

	if reason == "" {
		reason = defaultCancelReason
	}
	now := s.now()
	o.Status = StatusCancelled
	o.CancelReason = reason
	o.CancelledAt = &now
	o.UpdatedAt = now

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrapf(err, "cancel order %s", orderID)
	}

	s.releaseStock(ctx, o.Items)
	return o, nil
}

// Delete removes an order permanently. Admin only.
func (s *Service) Delete(ctx context.Context, actor auth.Claims, orderID string) error {
	if !actor.IsAdmin() {
		return auth.ErrForbidden
	}
	return s.orders.Delete(ctx, orderID)
}

// Get returns any order by ID, regardless of owner.
func (s *Service) Get(ctx context.Context, orderID string) (*Order, error) {
	return s.orders.GetByID(ctx, orderID)
}

// GetForUser returns the order only when userID owns it.
func (s *Service) GetForUser(ctx context.Context, orderID, userID string) (*Order, error) {
	return s.orders.GetByIDForUser(ctx, orderID, userID)
}

// ListMine returns the caller's orders, newest first.
func (s *Service) ListMine(ctx context.Context, userID string) ([]Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// ListAll returns every order, newest first. Admin only.
func (s *Service) ListAll(ctx context.Context, actor auth.Claims) ([]Order, error) {
	if !actor.IsAdmin() {
		return nil, auth.ErrForbidden
	}
	return s.orders.ListAll(ctx)
}

package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/mini-store/internal/domain/product"
)

// upsertRetries bounds how many times a mutation is retried after an
// optimistic version conflict before giving up.
const upsertRetries = 3

// Service implements cart operations on top of the cart and product
// repositories.
type Service struct {
	carts    Repository
	products product.Repository
	now      func() time.Time
}

// NewService creates a cart Service with the required dependencies.
func NewService(carts Repository, products product.Repository) *Service {
	return &Service{carts: carts, products: products, now: time.Now}
}

// GetOrCreate returns the user's cart, creating an empty one on first
// access. Idempotent: a concurrent create racing on the unique userID index
// falls back to reading the winner's document.
func (s *Service) GetOrCreate(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.carts.FindByUser(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, errors.Wrap(err, "find cart")
	}

	now := s.now()
	c = &Cart{
		ID:        uuid.New().String(),
		UserID:    userID,
		Items:     []LineItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.Recompute()

	if err := s.carts.Create(ctx, c); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return s.carts.FindByUser(ctx, userID)
		}
		return nil, errors.Wrap(err, "create cart")
	}
	return c, nil
}

// UpsertItem merges a quantity delta for a product into the user's cart.
// The product must exist and be active; the delta must lie in [-5, 10].
// A resulting quantity ≤ 0 removes the line, > 10 is clamped. New lines
// snapshot the product's name, selling price, and image at this instant.
func (s *Service) UpsertItem(ctx context.Context, userID, productID string, delta int64) (*Cart, error) {
	if delta < MinDelta || delta > MaxDelta {
		return nil, ErrDeltaOutOfRange
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, product.ErrNotFound
	}

	snapshot := LineItem{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.SellingPrice,
		Image:     p.Image,
	}

	return s.mutate(ctx, userID, func(c *Cart) {
		c.apply(snapshot, delta)
	})
}

// RemoveItem drops the line for productID. Removing an absent line is a
// no-op, not an error.
func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*Cart, error) {
	return s.mutate(ctx, userID, func(c *Cart) {
		c.removeLine(productID)
	})
}

// Clear empties the cart's line items. The cart document itself persists
// so the unique user association survives across checkouts.
func (s *Service) Clear(ctx context.Context, userID string) (*Cart, error) {
	return s.mutate(ctx, userID, func(c *Cart) {
		c.Items = c.Items[:0]
	})
}

// mutate loads (or lazily creates) the cart, applies fn, recomputes totals,
// and persists under the optimistic version check, retrying a bounded number
// of times when a concurrent writer won the race.
func (s *Service) mutate(ctx context.Context, userID string, fn func(*Cart)) (*Cart, error) {
	for attempt := 0; attempt < upsertRetries; attempt++ {
		c, err := s.GetOrCreate(ctx, userID)
		if err != nil {
			return nil, err
		}

		fn(c)
		c.Recompute()
		c.UpdatedAt = s.now()

		err = s.carts.Update(ctx, c)
		if err == nil {
			c.Version++
			return c, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, errors.Wrap(err, "update cart")
		}
	}
	return nil, ErrVersionConflict
}

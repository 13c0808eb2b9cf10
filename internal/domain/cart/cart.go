// Package cart implements the per-user shopping cart aggregate: line item
// merging, snapshot pricing, quantity bounds, and derived totals.
package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Quantity bounds for a single line item and for an upsert delta.
const (
	MaxItemQuantity = 10
	MinDelta        = -5
	MaxDelta        = 10
)

var (
	// ErrNotFound is returned when no cart document exists for a user.
	ErrNotFound = errors.New("cart not found")
	// ErrAlreadyExists is returned by Create when the user already owns a
	// cart (unique userID index violation).
	ErrAlreadyExists = errors.New("cart already exists")
	// ErrVersionConflict is returned by the repository when an optimistic
	// version check fails during update.
	ErrVersionConflict = errors.New("cart version conflict")
	// ErrDeltaOutOfRange is returned when an upsert quantity delta falls
	// outside [-5, 10].
	ErrDeltaOutOfRange = errors.New("quantity must be between -5 and 10")
)

// LineItem is one product entry in a cart. Name, Price, and Image are
// snapshots taken from the product at the moment the line was created;
// they are the authoritative values for total arithmetic even when the
// catalog changes later.
type LineItem struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
	Image     string
	Quantity  int64
}

// Cart is the single shopping cart owned by a user. Totals are derived from
// the line items on every mutation and are never settable independently.
// Version supports optimistic concurrency control in the repository.
type Cart struct {
	ID         string
	UserID     string
	Items      []LineItem
	TotalItems int64
	TotalPrice decimal.Decimal
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Recompute refreshes TotalItems and TotalPrice from the line items.
func (c *Cart) Recompute() {
	var items int64
	total := decimal.Zero
	for _, it := range c.Items {
		items += it.Quantity
		total = total.Add(it.Price.Mul(decimal.NewFromInt(it.Quantity)))
	}
	c.TotalItems = items
	c.TotalPrice = total
}

// apply merges a quantity delta for productID into the cart. When the line
// exists, the delta is added; a resulting quantity of zero or below removes
// the line, and anything above MaxItemQuantity is clamped. When the line
// does not exist and the delta is positive, a new line is created from the
// snapshot. A zero delta on a missing line is a no-op.
func (c *Cart) apply(snapshot LineItem, delta int64) {
	for i := range c.Items {
		if c.Items[i].ProductID != snapshot.ProductID {
			continue
		}
		q := c.Items[i].Quantity + delta
		switch {
		case q <= 0:
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
		case q > MaxItemQuantity:
			c.Items[i].Quantity = MaxItemQuantity
		default:
			c.Items[i].Quantity = q
		}
		return
	}

	if delta <= 0 {
		return
	}
	if delta > MaxItemQuantity {
		delta = MaxItemQuantity
	}
	snapshot.Quantity = delta
	c.Items = append(c.Items, snapshot)
}

// removeLine drops the line for productID if present. It reports whether a
// line was removed.
func (c *Cart) removeLine(productID string) bool {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true
		}
	}
	return false
}

// Repository defines persistence operations for carts.
type Repository interface {
	// FindByUser returns the cart owned by userID, or ErrNotFound.
	FindByUser(ctx context.Context, userID string) (*Cart, error)
	// Create persists a new cart. The unique index on userID guarantees at
	// most one cart per user.
	Create(ctx context.Context, c *Cart) error
	// Update persists the cart only when the stored version matches
	// c.Version, incrementing it on success. A mismatch yields
	// ErrVersionConflict.
	Update(ctx context.Context, c *Cart) error
}

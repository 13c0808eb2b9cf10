// Package product holds the catalog entity and its business rules: price and
// discount bounds, the derived selling price, and active/inactive lifecycle.
package product

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Discount bounds accepted by the catalog, in percent.
const (
	MinDiscount = 0
	MaxDiscount = 90
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrInactive is returned when an operation requires an active product
	// but the product has been soft-removed.
	ErrInactive = errors.New("product is inactive")
)

// ValidationError indicates an out-of-range or malformed catalog field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Product represents a catalog item available for purchase.
//
// SellingPrice is derived, never set directly: it equals Price reduced by
// Discount percent and rounded to a whole amount, or Price itself when no
// discount applies. Carts and orders snapshot SellingPrice at the moment a
// line item is created, so later catalog edits never rewrite history.
type Product struct {
	ID           string
	Name         string
	Category     string
	Price        decimal.Decimal
	Discount     int64
	SellingPrice decimal.Decimal
	Stock        int64
	Image        string
	Description  string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DeriveSellingPrice computes the effective price for a base price and a
// discount percentage: round(price - price*discount/100) when discount > 0,
// otherwise the price unchanged.
func DeriveSellingPrice(price decimal.Decimal, discount int64) decimal.Decimal {
	if discount <= 0 {
		return price
	}
	cut := price.Mul(decimal.NewFromInt(discount)).Div(decimal.NewFromInt(100))
	return price.Sub(cut).Round(0)
}

// Derive recomputes SellingPrice from the current Price and Discount.
func (p *Product) Derive() {
	p.SellingPrice = DeriveSellingPrice(p.Price, p.Discount)
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	List(ctx context.Context) ([]Product, error)
	Search(ctx context.Context, query string, limit int64) ([]Product, error)
	// AdjustStock changes the stock level by delta. A negative delta only
	// succeeds when the product holds at least -delta units; otherwise
	// ErrInsufficientStock is returned and the document is left untouched.
	AdjustStock(ctx context.Context, id string, delta int64) error
}

// ErrInsufficientStock is returned by AdjustStock when a decrement would
// drive the stock level negative.
var ErrInsufficientStock = errors.New("insufficient stock")

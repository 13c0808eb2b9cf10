package product

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/mini-store/internal/domain/auth"
)

// searchLimit caps the number of results returned by Search.
const searchLimit = 10

// CreateInput holds the fields accepted when adding a catalog item.
type CreateInput struct {
	Name        string
	Category    string
	Price       decimal.Decimal
	Discount    int64
	Stock       int64
	Image       string
	Description string
}

// UpdateInput is a partial patch for an existing product. Nil fields are
// left unchanged.
type UpdateInput struct {
	Name        *string
	Category    *string
	Price       *decimal.Decimal
	Discount    *int64
	Stock       *int64
	Image       *string
	Description *string
	IsActive    *bool
}

// Service encapsulates catalog management. Privileged operations take the
// caller's claims and verify the admin role explicitly.
type Service struct {
	products Repository
	now      func() time.Time
}

// NewService creates a catalog Service backed by the given repository.
func NewService(products Repository) *Service {
	return &Service{products: products, now: time.Now}
}

// Create validates the input, derives the selling price, and persists a new
// active product. Admin only.
func (s *Service) Create(ctx context.Context, actor auth.Claims, in CreateInput) (*Product, error) {
	if !actor.IsAdmin() {
		return nil, auth.ErrForbidden
	}
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	now := s.now()
	p := &Product{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(in.Name),
		Category:    strings.TrimSpace(in.Category),
		Price:       in.Price,
		Discount:    in.Discount,
		Stock:       in.Stock,
		Image:       in.Image,
		Description: strings.TrimSpace(in.Description),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	p.Derive()

	if err := s.products.Create(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create product")
	}
	return p, nil
}

// Update applies a partial patch and re-derives the selling price when the
// price or discount changed. Admin only.
func (s *Service) Update(ctx context.Context, actor auth.Claims, id string, in UpdateInput) (*Product, error) {
	if !actor.IsAdmin() {
		return nil, auth.ErrForbidden
	}

	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
		}
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Category != nil {
		if strings.TrimSpace(*in.Category) == "" {
			return nil, &ValidationError{Field: "category", Reason: "must not be empty"}
		}
		p.Category = strings.TrimSpace(*in.Category)
	}
	if in.Price != nil {
		if in.Price.IsNegative() {
			return nil, &ValidationError{Field: "price", Reason: "must not be negative"}
		}
		p.Price = *in.Price
	}
	if in.Discount != nil {
		if *in.Discount < MinDiscount || *in.Discount > MaxDiscount {
			return nil, &ValidationError{Field: "discount", Reason: "must be between 0 and 90"}
		}
		p.Discount = *in.Discount
	}
	if in.Stock != nil {
		if *in.Stock < 0 {
			return nil, &ValidationError{Field: "stock", Reason: "must not be negative"}
		}
		p.Stock = *in.Stock
	}
	if in.Image != nil {
		p.Image = *in.Image
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}

	p.Derive()
	p.UpdatedAt = s.now()

	if err := s.products.Update(ctx, p); err != nil {
		return nil, errors.Wrapf(err, "update product %s", id)
	}
	return p, nil
}

// Delete removes a product permanently. Existing cart and order snapshots
// keep their own copies and are unaffected. Admin only.
func (s *Service) Delete(ctx context.Context, actor auth.Claims, id string) error {
	if !actor.IsAdmin() {
		return auth.ErrForbidden
	}
	return s.products.Delete(ctx, id)
}

// GetByID returns a single product.
func (s *Service) GetByID(ctx context.Context, id string) (*Product, error) {
	return s.products.GetByID(ctx, id)
}

// List returns the full catalog.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.products.List(ctx)
}

// Search performs a case-insensitive substring match on the product name,
// capped at 10 results. An empty query yields an empty result, not an error
// and not the full catalog.
func (s *Service) Search(ctx context.Context, query string) ([]Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Product{}, nil
	}
	return s.products.Search(ctx, query, searchLimit)
}

func validateCreate(in CreateInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if strings.TrimSpace(in.Category) == "" {
		return &ValidationError{Field: "category", Reason: "must not be empty"}
	}
	if in.Image == "" {
		return &ValidationError{Field: "image", Reason: "must not be empty"}
	}
	if in.Price.IsNegative() {
		return &ValidationError{Field: "price", Reason: "must not be negative"}
	}
	if in.Discount < MinDiscount || in.Discount > MaxDiscount {
		return &ValidationError{Field: "discount", Reason: "must be between 0 and 90"}
	}
	if in.Stock < 0 {
		return &ValidationError{Field: "stock", Reason: "must not be negative"}
	}
	return nil
}

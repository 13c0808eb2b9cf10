package user

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/mini-store/internal/domain/auth"
	"github.com/xenking/mini-store/internal/domain/product"
)

// listPageSize is the fixed page size for admin user listings.
const listPageSize = 10

// ProfilePatch is a partial update for a user's own profile.
type ProfilePatch struct {
	Name  *string
	Email *string
}

// Service implements profile, wishlist, address, and moderation operations.
type Service struct {
	users    Repository
	products product.Repository
	now      func() time.Time
}

// NewService creates a user Service.
func NewService(users Repository, products product.Repository) *Service {
	return &Service{users: users, products: products, now: time.Now}
}

// Profile returns the caller's own profile.
func (s *Service) Profile(ctx context.Context, userID string) (*User, error) {
	return s.users.GetByID(ctx, userID)
}

// UpdateProfile applies a partial patch to the caller's profile.
func (s *Service) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) (*User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil && strings.TrimSpace(*patch.Name) != "" {
		u.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Email != nil && strings.TrimSpace(*patch.Email) != "" {
		u.Email = strings.TrimSpace(*patch.Email)
	}
	u.UpdatedAt = s.now()

	if err := s.users.Update(ctx, u); err != nil {
		return nil, errors.Wrapf(err, "update user %s", userID)
	}
	return u, nil
}

// Wishlist returns the caller's wishlist resolved to live products.
// Products deleted from the catalog since they were wished for are skipped.
func (s *Service) Wishlist(ctx context.Context, userID string) ([]product.Product, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(u.Wishlist) == 0 {
		return []product.Product{}, nil
	}
	return s.products.GetByIDs(ctx, u.Wishlist)
}

// AddToWishlist adds an existing product to the caller's wishlist.
func (s *Service) AddToWishlist(ctx context.Context, userID, productID string) error {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return err
	}
	return s.users.AddWishlist(ctx, userID, productID)
}

// RemoveFromWishlist drops a product from the caller's wishlist.
func (s *Service) RemoveFromWishlist(ctx context.Context, userID, productID string) error {
	return s.users.RemoveWishlist(ctx, userID, productID)
}

// Addresses returns the caller's saved addresses.
func (s *Service) Addresses(ctx context.Context, userID string) ([]Address, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Addresses == nil {
		return []Address{}, nil
	}
	return u.Addresses, nil
}

// AddAddress appends a saved address to the caller's profile.
func (s *Service) AddAddress(ctx context.Context, userID string, addr Address) error {
	return s.users.AddAddress(ctx, userID, addr)
}

// RemoveAddress removes the caller's saved address at index.
func (s *Service) RemoveAddress(ctx context.Context, userID string, index int) error {
	return s.users.RemoveAddress(ctx, userID, index)
}

// List returns a page of all users, newest first. Admin only.
func (s *Service) List(ctx context.Context, actor auth.Claims, page int64) (*Page, error) {
	if !actor.IsAdmin() {
		return nil, auth.ErrForbidden
	}
	if page < 1 {
		page = 1
	}

	users, total, err := s.users.List(ctx, page, listPageSize)
	if err != nil {
		return nil, errors.Wrap(err, "list users")
	}

	totalPages := total / listPageSize
	if total%listPageSize != 0 {
		totalPages++
	}
	return &Page{
		Users:      users,
		Page:       page,
		TotalPages: totalPages,
		TotalUsers: total,
	}, nil
}

// SetBlocked blocks or unblocks an account. Admin only; admins cannot
// block themselves.
func (s *Service) SetBlocked(ctx context.Context, actor auth.Claims, userID string, blocked bool) error {
	if !actor.IsAdmin() {
		return auth.ErrForbidden
	}
	if actor.UserID == userID && blocked {
		return ErrSelfBlock
	}
	return s.users.SetBlocked(ctx, userID, blocked)
}

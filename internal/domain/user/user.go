// Package user holds the account profile entity: role, block flag, saved
// addresses, and wishlist. Credential handling lives with the identity
// collaborator, not here.
package user

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/mini-store/internal/domain/auth"
)

var (
	// ErrNotFound is returned when a requested user does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrSelfBlock is returned when an admin tries to block their own
	// account.
	ErrSelfBlock = errors.New("admin cannot block themself")
)

// Address is a saved shipping destination on a user profile.
type Address struct {
	Name    string
	Phone   string
	Address string
	City    string
	State   string
	Pincode string
}

// User is an account profile. Carts and orders reference it by ID only.
type User struct {
	ID           string
	Name         string
	Email        string
	Role         auth.Role
	IsBlocked    bool
	Addresses    []Address
	Wishlist     []string
	ProfileImage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Page holds one page of an admin user listing.
type Page struct {
	Users      []User
	Page       int64
	TotalPages int64
	TotalUsers int64
}

// Repository defines persistence operations for user profiles.
type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	Update(ctx context.Context, u *User) error
	// List returns users newest first, limit per page, 1-based page index,
	// along with the total user count.
	List(ctx context.Context, page, limit int64) ([]User, int64, error)
	// AddWishlist adds productID to the user's wishlist as a set operation.
	AddWishlist(ctx context.Context, userID, productID string) error
	// RemoveWishlist removes productID from the user's wishlist; removing
	// an absent entry is a no-op.
	RemoveWishlist(ctx context.Context, userID, productID string) error
	AddAddress(ctx context.Context, userID string, addr Address) error
	// RemoveAddress removes the address at index; out-of-range indexes are
	// rejected with ErrNotFound.
	RemoveAddress(ctx context.Context, userID string, index int) error
	SetBlocked(ctx context.Context, userID string, blocked bool) error
}

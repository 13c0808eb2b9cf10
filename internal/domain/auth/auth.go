// Package auth defines the narrow identity surface the rest of the system
// depends on: caller claims, role checks, and token verification. Token
// issuance (login, registration) lives outside this service.
package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// Role distinguishes ordinary customers from catalog administrators.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

var (
	// ErrInvalidToken is returned for missing, malformed, tampered, or
	// expired tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrForbidden is returned when the caller's role does not permit the
	// requested operation.
	ErrForbidden = errors.New("forbidden")
	// ErrBlocked is returned when the authenticated account is blocked.
	ErrBlocked = errors.New("account is blocked")
)

// Claims identify an authenticated caller.
type Claims struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the caller holds the admin role.
func (c Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// Verifier turns a bearer token into caller claims.
type Verifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

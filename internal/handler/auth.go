package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/mini-store/internal/domain/auth"
	"github.com/xenking/mini-store/internal/domain/user"
)

// claimsKey is the context key carrying the authenticated caller.
type claimsKey struct{}

// claimsFromContext extracts the caller's claims set by authenticate.
func claimsFromContext(ctx context.Context) (auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(auth.Claims)
	return c, ok
}

// authenticate verifies the bearer token, rejects blocked accounts, and
// stores the caller's claims in the request context. Blocked status is
// checked per request so a block takes effect on the very next call, not
// at token expiry.
func (h *Handler) authenticate(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, r, auth.ErrInvalidToken)
			return
		}

		claims, err := h.verifier.Verify(r.Context(), token)
		if err != nil {
			writeError(w, r, auth.ErrInvalidToken)
			return
		}

		account, err := h.accounts.GetByID(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				writeError(w, r, auth.ErrInvalidToken)
				return
			}
			writeError(w, r, err)
			return
		}
		if account.IsBlocked {
			writeError(w, r, auth.ErrBlocked)
			return
		}

		// The stored role wins over the token's claim so demotions apply
		// immediately.
		claims.Role = account.Role

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the token from an "Authorization: Bearer x" header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}

// mustClaims returns the caller's claims; the authenticate middleware
// guarantees they exist on every protected route.
func mustClaims(r *http.Request) auth.Claims {
	c, _ := claimsFromContext(r.Context())
	return c
}

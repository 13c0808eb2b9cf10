package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
)

// tokenPayload is the signed portion of a bearer token.
type tokenPayload struct {
	UserID    string `json:"uid"`
	Role      Role   `json:"role"`
	ExpiresAt int64  `json:"exp"`
}

// TokenVerifier validates HMAC-SHA256 signed bearer tokens of the form
// base64url(payload) + "." + base64url(signature).
type TokenVerifier struct {
	secret []byte
	now    func() time.Time
}

var _ Verifier = (*TokenVerifier)(nil)

// NewTokenVerifier creates a TokenVerifier with the given signing secret.
func NewTokenVerifier(secret []byte) *TokenVerifier {
	return &TokenVerifier{secret: secret, now: time.Now}
}

// Verify checks the token signature in constant time, decodes the payload,
// and rejects expired tokens.
func (v *TokenVerifier) Verify(_ context.Context, token string) (Claims, error) {
	payloadPart, sigPart, ok := strings.Cut(token, ".")
	if !ok {
		return Claims{}, ErrInvalidToken
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(payloadPart)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	sig, err := base64.RawURLEncoding.DecodeString(sigPart)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(payloadBytes)
	if subtle.ConstantTimeCompare(sig, mac.Sum(nil)) != 1 {
		return Claims{}, ErrInvalidToken
	}

	var payload tokenPayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		return Claims{}, ErrInvalidToken
	}
	if payload.UserID == "" {
		return Claims{}, ErrInvalidToken
	}
	if payload.ExpiresAt > 0 && v.now().After(time.Unix(payload.ExpiresAt, 0)) {
		return Claims{}, ErrInvalidToken
	}

	role := payload.Role
	if role != RoleAdmin {
		role = RoleUser
	}
	return Claims{UserID: payload.UserID, Role: role}, nil
}

// SignToken issues a token for the given claims. Used by seed tooling and
// tests; production token issuance belongs to the identity collaborator.
func SignToken(secret []byte, claims Claims, expiresAt time.Time) string {
	payload := tokenPayload{
		UserID: claims.UserID,
		Role:   claims.Role,
	}
	if !expiresAt.IsZero() {
		payload.ExpiresAt = expiresAt.Unix()
	}

	payloadBytes, _ := json.Marshal(payload)
	mac := hmac.New(sha256.New, secret)
	mac.Write(payloadBytes)

	return base64.RawURLEncoding.EncodeToString(payloadBytes) +
		"." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

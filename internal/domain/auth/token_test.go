package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func TestVerify_RoundTrip(t *testing.T) {
	v := NewTokenVerifier(testSecret)
	token := SignToken(testSecret, Claims{UserID: "u1", Role: RoleAdmin}, time.Time{})

	claims, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestVerify_Malformed(t *testing.T) {
	v := NewTokenVerifier(testSecret)

	for _, token := range []string{
		"",
		"no-dot",
		"not!base64.sig",
		"payload.not!base64",
		"..",
	} {
		_, err := v.Verify(context.Background(), token)
		require.ErrorIs(t, err, ErrInvalidToken, "token %q", token)
	}
}

func TestVerify_TamperedPayload(t *testing.T) {
	v := NewTokenVerifier(testSecret)
	token := SignToken(testSecret, Claims{UserID: "u1", Role: RoleUser}, time.Time{})

	// Swap the payload for one signed with a different secret.
	forged := SignToken([]byte("other-secret"), Claims{UserID: "u1", Role: RoleAdmin}, time.Time{})
	forgedPayload, _, _ := strings.Cut(forged, ".")
	_, sig, _ := strings.Cut(token, ".")

	_, err := v.Verify(context.Background(), forgedPayload+"."+sig)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_WrongSecret(t *testing.T) {
	v := NewTokenVerifier(testSecret)
	token := SignToken([]byte("other-secret"), Claims{UserID: "u1"}, time.Time{})

	_, err := v.Verify(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Expired(t *testing.T) {
	v := NewTokenVerifier(testSecret)
	token := SignToken(testSecret, Claims{UserID: "u1"}, time.Now().Add(-time.Minute))

	_, err := v.Verify(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_NotYetExpired(t *testing.T) {
	v := NewTokenVerifier(testSecret)
	token := SignToken(testSecret, Claims{UserID: "u1"}, time.Now().Add(time.Hour))

	_, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
}

func TestVerify_NoExpiry(t *testing.T) {
	v := NewTokenVerifier(testSecret)
	token := SignToken(testSecret, Claims{UserID: "u1"}, time.Time{})

	_, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
}

func TestVerify_MissingUserID(t *testing.T) {
	v := NewTokenVerifier(testSecret)
	token := SignToken(testSecret, Claims{}, time.Time{})

	_, err := v.Verify(context.Background(), token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_UnknownRoleBecomesUser(t *testing.T) {
	v := NewTokenVerifier(testSecret)
	token := SignToken(testSecret, Claims{UserID: "u1", Role: "superuser"}, time.Time{})

	claims, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, RoleUser, claims.Role)
	assert.False(t, claims.IsAdmin())
}

package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daccess-app/backend/domain"
)

func TestNewTokenService_RequiresSecret(t *testing.T) {
	_, err := NewTokenService("", "daccess", time.Hour)
	require.Error(t, err)
}

func TestTokenService_RoundTrip(t *testing.T) {
	svc, err := NewTokenService("unit-test-secret", "daccess", time.Hour)
	require.NoError(t, err)

	user := &domain.User{
		ID:    "user-123",
		Email: "bob@x.com",
		Role:  domain.RoleUser,
	}
	token, err := svc.Sign(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "bob@x.com", claims.Email)
	assert.Equal(t, domain.RoleUser, claims.Role)
	assert.NotEmpty(t, claims.ID, "tokens should carry a jti")
}

func TestTokenService_RejectsExpired(t *testing.T) {
	svc, err := NewTokenService("unit-test-secret", "daccess", time.Millisecond)
	require.NoError(t, err)

	token, err := svc.Sign(&domain.User{ID: "user-123", Email: "bob@x.com", Role: domain.RoleUser})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_RejectsForeignSignature(t *testing.T) {
	issuer, err := NewTokenService("secret-a", "daccess", time.Hour)
	require.NoError(t, err)
	verifier, err := NewTokenService("secret-b", "daccess", time.Hour)
	require.NoError(t, err)

	token, err := issuer.Sign(&domain.User{ID: "user-123", Email: "bob@x.com", Role: domain.RoleUser})
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_RejectsGarbage(t *testing.T) {
	svc, err := NewTokenService("unit-test-secret", "daccess", time.Hour)
	require.NoError(t, err)

	_, err = svc.Verify("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ridebook/internal/domain"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService("secret", "ridebook", time.Hour)
	user := &domain.User{ID: "u1", Role: domain.RoleRider, IsStaff: true}

	token, err := svc.GenerateToken(user)
	require.NoError(t, err)

	actor, err := svc.ParseActor(token)
	require.NoError(t, err)
	assert.Equal(t, domain.Actor{UserID: "u1", Role: domain.RoleRider, IsStaff: true}, actor)
}

func TestJWTService_Rejects(t *testing.T) {
	svc := NewJWTService("secret", "ridebook", time.Hour)
	user := &domain.User{ID: "u1", Role: domain.RoleCustomer}

	t.Run("wrong secret", func(t *testing.T) {
		token, err := NewJWTService("other", "ridebook", time.Hour).GenerateToken(user)
		require.NoError(t, err)
		_, err = svc.ParseActor(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		token, err := NewJWTService("secret", "someone-else", time.Hour).GenerateToken(user)
		require.NoError(t, err)
		_, err = svc.ParseActor(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		old := NewJWTService("secret", "ridebook", time.Minute)
		old.now = func() time.Time { return time.Now().Add(-time.Hour) }
		token, err := old.GenerateToken(user)
		require.NoError(t, err)
		_, err = svc.ParseActor(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unknown role", func(t *testing.T) {
		token, err := svc.GenerateToken(&domain.User{ID: "u1", Role: "PILOT"})
		require.NoError(t, err)
		_, err = svc.ParseActor(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		claims := &Claims{
			Role: domain.RoleStaff,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "u1",
				Issuer:    "ridebook",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.ParseActor(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

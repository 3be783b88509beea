package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"battsim/internal/config"
)

func newTestService() *Service {
	return NewService(config.AuthConfig{
		JWTSecret:       "test-secret",
		Issuer:          "battsim-test",
		AccessDuration:  time.Hour,
		RefreshDuration: 24 * time.Hour,
		BcryptCost:      4, // minimum cost keeps the test fast
	})
}

func TestPasswordHashing(t *testing.T) {
	svc := newTestService()

	hash, err := svc.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.True(t, svc.CheckPassword("correct horse battery staple", hash))
	assert.False(t, svc.CheckPassword("wrong password", hash))
}

func TestTokenPair(t *testing.T) {
	svc := newTestService()

	pair, err := svc.GenerateTokenPair(42, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)

	t.Run("AccessTokenValidates", func(t *testing.T) {
		claims, err := svc.ValidateAccessToken(pair.Access)
		require.NoError(t, err)
		assert.Equal(t, uint(42), claims.UserID)
		assert.Equal(t, "alice", claims.Username)
		assert.Equal(t, TokenTypeAccess, claims.TokenType)
	})

	t.Run("RefreshTokenValidates", func(t *testing.T) {
		claims, err := svc.ValidateRefreshToken(pair.Refresh)
		require.NoError(t, err)
		assert.Equal(t, TokenTypeRefresh, claims.TokenType)
	})

	t.Run("TokenTypesNotInterchangeable", func(t *testing.T) {
		_, err := svc.ValidateAccessToken(pair.Refresh)
		assert.ErrorIs(t, err, ErrInvalidToken)

		_, err = svc.ValidateRefreshToken(pair.Access)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("WrongSecretRejected", func(t *testing.T) {
		other := NewService(config.AuthConfig{
			JWTSecret:       "different-secret",
			AccessDuration:  time.Hour,
			RefreshDuration: time.Hour,
			BcryptCost:      4,
		})
		_, err := other.ValidateToken(pair.Access)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("GarbageRejected", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestExpiredToken(t *testing.T) {
	svc := NewService(config.AuthConfig{
		JWTSecret:       "test-secret",
		AccessDuration:  -time.Minute,
		RefreshDuration: -time.Minute,
		BcryptCost:      4,
	})

	pair, err := svc.GenerateTokenPair(1, "bob")
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(pair.Access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

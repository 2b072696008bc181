package auth

import (
	"testing"
	"time"

	"pesaflow/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	cfg := &config.JWTConfig{AccessSecret: "test-secret", Issuer: "pesaflow"}

	token, err := GenerateAccessToken(cfg, "user-1", "u@example.com", "CUSTOMER", time.Hour)
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "u@example.com", claims.Email)
	assert.Equal(t, "CUSTOMER", claims.Role)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	cfg := &config.JWTConfig{AccessSecret: "test-secret", Issuer: "pesaflow"}
	token, err := GenerateAccessToken(cfg, "user-1", "u@example.com", "CUSTOMER", time.Hour)
	require.NoError(t, err)

	_, err = ParseAccessToken(&config.JWTConfig{AccessSecret: "other"}, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpired(t *testing.T) {
	cfg := &config.JWTConfig{AccessSecret: "test-secret", Issuer: "pesaflow"}
	token, err := GenerateAccessToken(cfg, "user-1", "u@example.com", "CUSTOMER", -time.Minute)
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsGarbage(t *testing.T) {
	cfg := &config.JWTConfig{AccessSecret: "test-secret"}
	_, err := ParseAccessToken(cfg, "not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_IssueAndValidate(t *testing.T) {
	tm := NewTokenManager("test-secret-for-token-tests", 24*time.Hour)

	tokenString, err := tm.Issue("account-123", "user@example.com", "user")
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	claims, err := tm.Validate(tokenString)
	require.NoError(t, err)

	assert.Equal(t, "account-123", claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "user", claims.Role)
	assert.NotEmpty(t, claims.ID)

	expiresIn := time.Until(claims.ExpiresAt.Time)
	assert.InDelta(t, (24 * time.Hour).Seconds(), expiresIn.Seconds(), 60)
}

func TestTokenManager_RejectsWrongSecret(t *testing.T) {
	tm := NewTokenManager("test-secret-for-token-tests", 24*time.Hour)
	other := NewTokenManager("a-completely-different-secret", 24*time.Hour)

	tokenString, err := tm.Issue("account-123", "user@example.com", "user")
	require.NoError(t, err)

	_, err = other.Validate(tokenString)
	assert.Error(t, err)
}

func TestTokenManager_RejectsExpiredToken(t *testing.T) {
	tm := NewTokenManager("test-secret-for-token-tests", -time.Minute)

	tokenString, err := tm.Issue("account-123", "user@example.com", "user")
	require.NoError(t, err)

	_, err = tm.Validate(tokenString)
	assert.Error(t, err)
}

func TestTokenManager_RejectsGarbage(t *testing.T) {
	tm := NewTokenManager("test-secret-for-token-tests", 24*time.Hour)

	_, err := tm.Validate("not.a.token")
	assert.Error(t, err)
}

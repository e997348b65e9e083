package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-that-is-long-enough-for-hmac"

func TestGenerateAndValidateAccessToken(t *testing.T) {
	manager := NewManager(testSecret, 15*time.Minute, 30*24*time.Hour)

	userID := uuid.New()
	token, err := manager.GenerateAccessToken(userID, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := manager.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Equal(t, "homelink-auth", claims.Issuer)
	assert.Equal(t, userID.String(), claims.Subject)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	manager := NewManager(testSecret, 15*time.Minute, 30*24*time.Hour)
	other := NewManager("another-secret-key-that-is-also-long", 15*time.Minute, 30*24*time.Hour)

	token, err := manager.GenerateAccessToken(uuid.New(), "alice")
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateExpiredToken(t *testing.T) {
	manager := NewManager(testSecret, -1*time.Minute, 30*24*time.Hour)

	token, err := manager.GenerateAccessToken(uuid.New(), "alice")
	require.NoError(t, err)

	_, err = manager.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateGarbageToken(t *testing.T) {
	manager := NewManager(testSecret, 15*time.Minute, 30*24*time.Hour)

	_, err := manager.ValidateToken("not.a.token")
	assert.Error(t, err)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	manager := NewManager(testSecret, 15*time.Minute, 30*24*time.Hour)

	userID := uuid.New()
	token, err := manager.GenerateRefreshToken(userID, "bob")
	require.NoError(t, err)

	claims, err := manager.ValidateRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "bob", claims.Username)
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)
}

func TestTokenTypesDoNotCross(t *testing.T) {
	manager := NewManager(testSecret, 15*time.Minute, 30*24*time.Hour)

	access, err := manager.GenerateAccessToken(uuid.New(), "alice")
	require.NoError(t, err)
	refresh, err := manager.GenerateRefreshToken(uuid.New(), "alice")
	require.NoError(t, err)

	// A long-lived refresh token must not pass as an access token
	_, err = manager.ValidateAccessToken(refresh)
	assert.Error(t, err)

	_, err = manager.ValidateRefreshToken(access)
	assert.Error(t, err)
}

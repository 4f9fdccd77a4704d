package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"golang.org/x/crypto/bcrypt"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	m := NewJWTManager(config.JWTConfig{Secret: "0123456789abcdef0123456789abcdef", AccessTokenExpiry: time.Hour}, "storefront")

	token, err := m.GenerateAccessToken(42, "admin@example.com", true)
	require.NoError(t, err)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.True(t, claims.IsAdmin)
	assert.Equal(t, "user:42", claims.Subject)
}

func TestAccessTokenRejectsForeignSecretAndExpiry(t *testing.T) {
	cfg := config.JWTConfig{Secret: "0123456789abcdef0123456789abcdef", AccessTokenExpiry: time.Hour}
	m := NewJWTManager(cfg, "storefront")
	token, err := m.GenerateAccessToken(1, "a@example.com", false)
	require.NoError(t, err)

	other := NewJWTManager(config.JWTConfig{Secret: "fedcba9876543210fedcba9876543210", AccessTokenExpiry: time.Hour}, "storefront")
	_, err = other.ValidateAccessToken(token)
	assert.Error(t, err)

	expired := NewJWTManager(cfg, "storefront")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, err := expired.GenerateAccessToken(1, "a@example.com", false)
	require.NoError(t, err)
	_, err = m.ValidateAccessToken(stale)
	assert.Error(t, err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	assert.Equal(t, "abc", ExtractTokenFromHeader("Bearer abc"))
	assert.Empty(t, ExtractTokenFromHeader("Basic abc"))
	assert.Empty(t, ExtractTokenFromHeader(""))
}

func TestPasswordHashAndVerify(t *testing.T) {
	p := NewPasswordManager(bcrypt.MinCost)

	hash, err := p.HashPassword("Sup3rSecret")
	require.NoError(t, err)
	assert.NoError(t, p.VerifyPassword("Sup3rSecret", hash))
	assert.Error(t, p.VerifyPassword("wrong", hash))
}

func TestValidatePassword(t *testing.T) {
	p := NewPasswordManager(bcrypt.MinCost)

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "Sup3rSecret", false},
		{"too short", "Ab1", true},
		{"no upper", "sup3rsecret", true},
		{"no lower", "SUP3RSECRET", true},
		{"no number", "SuperSecret", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

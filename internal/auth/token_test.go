package auth

import (
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)

	token, err := m.Issue(42, "alice")
	require.NoError(t, err)

	id, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
}

func TestTokenManager_Parse(t *testing.T) {
	m := NewTokenManager(testSecret, time.Hour)

	sign := func(claims jwt.Claims, method jwt.SigningMethod, key interface{}) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	base := func(sub string, exp time.Duration) jwt.RegisteredClaims {
		return jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(exp)),
		}
	}

	wrongIssuer := base("1", time.Hour)
	wrongIssuer.Issuer = "someone-else"
	noExpiry := base("1", time.Hour)
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name  string
		token string
	}{
		{"expired", sign(base("1", -time.Hour), jwt.SigningMethodHS256, []byte(testSecret))},
		{"wrong secret", sign(base("1", time.Hour), jwt.SigningMethodHS256, []byte("other-secret"))},
		{"wrong algorithm", sign(base("1", time.Hour), jwt.SigningMethodHS512, []byte(testSecret))},
		{"wrong issuer", sign(wrongIssuer, jwt.SigningMethodHS256, []byte(testSecret))},
		{"missing expiry", sign(noExpiry, jwt.SigningMethodHS256, []byte(testSecret))},
		{"non numeric subject", sign(base("abc", time.Hour), jwt.SigningMethodHS256, []byte(testSecret))},
		{"zero subject", sign(base("0", time.Hour), jwt.SigningMethodHS256, []byte(testSecret))},
		{"garbage", "malformed.token.here"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Parse(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestTokenManager_ClaimsShape(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := NewTokenManager(testSecret, 2*time.Hour)
	m.now = func() time.Time { return fixed }

	token, err := m.Issue(7, "bob")
	require.NoError(t, err)

	var claims Claims
	_, _, err = jwt.NewParser().ParseUnverified(token, &claims)
	require.NoError(t, err)

	assert.Equal(t, strconv.Itoa(7), claims.Subject)
	assert.Equal(t, "bob", claims.Username)
	assert.Equal(t, fixed.Add(2*time.Hour).Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.ID)
}

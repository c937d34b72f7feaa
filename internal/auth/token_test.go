package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-123456"

func TestVerifier_RoundTrip(t *testing.T) {
	v := NewVerifier(testSecret, "devfolio-identity", "devfolio-web")

	token, err := v.Issue(Identity{ID: "auth0|jane", Email: "jane@example.com", Name: "Jane", Picture: "https://img/jane.png"}, time.Hour)
	require.NoError(t, err)

	id, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "auth0|jane", id.ID)
	assert.Equal(t, "jane@example.com", id.Email)
	assert.Equal(t, "Jane", id.Name)
	assert.Equal(t, "https://img/jane.png", id.Picture)
}

func TestVerifier_Rejects(t *testing.T) {
	v := NewVerifier(testSecret, "devfolio-identity", "devfolio-web")

	sign := func(method jwt.SigningMethod, key any, claims Claims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	valid := func() Claims {
		return Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			Issuer:    "devfolio-identity",
			Audience:  jwt.ClaimStrings{"devfolio-web"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", sign(jwt.SigningMethodHS256, []byte("another-secret-entirely-0000000000"), valid())},
		{"wrong issuer", func() string { c := valid(); c.Issuer = "someone-else"; return sign(jwt.SigningMethodHS256, []byte(testSecret), c) }()},
		{"wrong audience", func() string {
			c := valid()
			c.Audience = jwt.ClaimStrings{"mobile"}
			return sign(jwt.SigningMethodHS256, []byte(testSecret), c)
		}()},
		{"expired", func() string {
			c := valid()
			c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
			return sign(jwt.SigningMethodHS256, []byte(testSecret), c)
		}()},
		{"missing expiry", func() string { c := valid(); c.ExpiresAt = nil; return sign(jwt.SigningMethodHS256, []byte(testSecret), c) }()},
		{"missing subject", func() string { c := valid(); c.Subject = ""; return sign(jwt.SigningMethodHS256, []byte(testSecret), c) }()},
		{"other hmac method", sign(jwt.SigningMethodHS512, []byte(testSecret), valid())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("Bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", tok)

	tok, ok = BearerToken("bearer   xyz ")
	assert.True(t, ok)
	assert.Equal(t, "xyz", tok)

	for _, h := range []string{"", "Bearer", "Bearer ", "Basic abc", "abc"} {
		_, ok := BearerToken(h)
		assert.False(t, ok, h)
	}
}

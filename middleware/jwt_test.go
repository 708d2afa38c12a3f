package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAudience = "api-client-id"
	testIssuer   = "https://sts.windows.net/test-tenant/"
)

func newTestValidator(t *testing.T) (*TokenValidator, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	kf := func(token *jwt.Token) (any, error) { return &key.PublicKey, nil }
	return NewTokenValidatorWithKeyfunc(kf, testAudience, testIssuer), key
}

func signToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"aud": testAudience,
		"iss": testIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
		"sub": "user-123",
	}
}

func TestValidate(t *testing.T) {
	validator, key := newTestValidator(t)

	t.Run("valid token", func(t *testing.T) {
		claims, err := validator.Validate(signToken(t, key, validClaims()))
		require.NoError(t, err)
		assert.Equal(t, "user-123", claims["sub"])
	})

	t.Run("expired token", func(t *testing.T) {
		claims := validClaims()
		claims["exp"] = time.Now().Add(-time.Hour).Unix()
		_, err := validator.Validate(signToken(t, key, claims))
		require.EqualError(t, err, "Token has expired")
	})

	t.Run("wrong audience", func(t *testing.T) {
		claims := validClaims()
		claims["aud"] = "some-other-app"
		_, err := validator.Validate(signToken(t, key, claims))
		require.EqualError(t, err, "Invalid token audience")
	})

	t.Run("wrong issuer", func(t *testing.T) {
		claims := validClaims()
		claims["iss"] = "https://evil.example.com/"
		_, err := validator.Validate(signToken(t, key, claims))
		require.EqualError(t, err, "Invalid token issuer")
	})

	t.Run("missing expiry", func(t *testing.T) {
		claims := validClaims()
		delete(claims, "exp")
		_, err := validator.Validate(signToken(t, key, claims))
		require.Error(t, err)
	})

	t.Run("wrong signing method", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims()).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = validator.Validate(token)
		require.EqualError(t, err, "Invalid token")
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := validator.Validate("not.a.token")
		require.EqualError(t, err, "Invalid token")
	})
}

func TestMiddleware(t *testing.T) {
	validator, key := newTestValidator(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, "user-123", claims["sub"])
		w.WriteHeader(http.StatusOK)
	})
	protected := validator.Middleware(next)

	t.Run("no authorization header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"detail": "Not authenticated"}`, rec.Body.String())
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic abc123")
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token maps to 401 with message", func(t *testing.T) {
		claims := validClaims()
		claims["exp"] = time.Now().Add(-time.Hour).Unix()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, key, claims))
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"detail": "Token has expired"}`, rec.Body.String())
	})

	t.Run("valid token passes through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, key, validClaims()))
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

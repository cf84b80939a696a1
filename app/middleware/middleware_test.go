package appMiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-gateway-secret"

func signToken(t *testing.T, email string, secret string, expiresIn time.Duration) string {
	t.Helper()
	claims := GatewayClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func authTestHandler(t *testing.T) (http.Handler, *string) {
	t.Helper()
	var seenEmail string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, ok := GetUserEmailFromContext(r.Context())
		require.True(t, ok)
		seenEmail = email
		w.WriteHeader(http.StatusOK)
	})
	return Authenticate(next), &seenEmail
}

func TestAuthenticate_ValidToken(t *testing.T) {
	t.Setenv("GATEWAY_SHARED_SECRET", testSecret)
	handler, seenEmail := authTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/trips", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "ada@example.com", testSecret, time.Hour))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ada@example.com", *seenEmail)
}

func TestAuthenticate_MissingHeader(t *testing.T) {
	t.Setenv("GATEWAY_SHARED_SECRET", testSecret)
	handler, _ := authTestHandler(t)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/trips", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthenticate_MalformedHeader(t *testing.T) {
	t.Setenv("GATEWAY_SHARED_SECRET", testSecret)
	handler, _ := authTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/trips", nil)
	req.Header.Set("Authorization", "Token abc")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthenticate_WrongSecret(t *testing.T) {
	t.Setenv("GATEWAY_SHARED_SECRET", testSecret)
	handler, _ := authTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/trips", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "ada@example.com", "other-secret", time.Hour))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	t.Setenv("GATEWAY_SHARED_SECRET", testSecret)
	handler, _ := authTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/trips", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "ada@example.com", testSecret, -time.Hour))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthenticate_EmptyEmailClaim(t *testing.T) {
	t.Setenv("GATEWAY_SHARED_SECRET", testSecret)
	handler, _ := authTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/trips", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "", testSecret, time.Hour))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

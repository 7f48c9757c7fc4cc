package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestVerifyTokenSuccess(t *testing.T) {
	token := signToken(t, "s3cret", jwt.MapClaims{
		"sub":      "u1",
		"username": "alice",
		"exp":      time.Now().Add(time.Hour).Unix(),
	})

	principal, err := VerifyToken("s3cret", token)
	require.NoError(t, err)
	assert.Equal(t, "u1", principal.UserID)
	assert.Equal(t, "alice", principal.Username)
}

func TestVerifyTokenWrongSecret(t *testing.T) {
	token := signToken(t, "other", jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(time.Hour).Unix()})

	_, err := VerifyToken("s3cret", token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyTokenExpired(t *testing.T) {
	token := signToken(t, "s3cret", jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Hour).Unix()})

	_, err := VerifyToken("s3cret", token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyTokenMissingSubject(t *testing.T) {
	token := signToken(t, "s3cret", jwt.MapClaims{"username": "alice", "exp": time.Now().Add(time.Hour).Unix()})

	_, err := VerifyToken("s3cret", token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func setupAuthRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthMiddleware(secret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("userID")})
	})
	return r
}

func TestAuthMiddlewareBearerHeader(t *testing.T) {
	router := setupAuthRouter("s3cret")
	token := signToken(t, "s3cret", jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(time.Hour).Unix()})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "u1")
}

func TestAuthMiddlewareQueryToken(t *testing.T) {
	router := setupAuthRouter("s3cret")
	token := signToken(t, "s3cret", jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(time.Hour).Unix()})

	req := httptest.NewRequest(http.MethodGet, "/me?token="+token, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddlewareMissingToken(t *testing.T) {
	router := setupAuthRouter("s3cret")

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareBadToken(t *testing.T) {
	router := setupAuthRouter("s3cret")

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

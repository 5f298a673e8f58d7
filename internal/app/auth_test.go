package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func authTestRouter(staticTokens []string, jwtSecret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", AuthMiddleware(staticTokens, jwtSecret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func authRequest(t *testing.T, router *gin.Engine, header string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

func signedToken(t *testing.T, secret string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "host-1",
		"exp": exp.Unix(),
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestAuthMiddlewareRejectsWithoutCredentials(t *testing.T) {
	router := authTestRouter([]string{"svc-token"}, "secret")

	require.Equal(t, http.StatusUnauthorized, authRequest(t, router, ""))
	require.Equal(t, http.StatusUnauthorized, authRequest(t, router, "svc-token"))
	require.Equal(t, http.StatusUnauthorized, authRequest(t, router, "Basic svc-token"))
	require.Equal(t, http.StatusUnauthorized, authRequest(t, router, "Bearer wrong"))
}

func TestAuthMiddlewareStaticTokens(t *testing.T) {
	// Config splits on commas and may leave whitespace around entries.
	router := authTestRouter([]string{" svc-token ", "", "other"}, "")

	require.Equal(t, http.StatusOK, authRequest(t, router, "Bearer svc-token"))
	require.Equal(t, http.StatusOK, authRequest(t, router, "Bearer other"))
	require.Equal(t, http.StatusUnauthorized, authRequest(t, router, "Bearer "))
	require.Equal(t, http.StatusUnauthorized, authRequest(t, router, "Bearer nope"))
}

func TestAuthMiddlewareJWT(t *testing.T) {
	const secret = "jwt-secret"
	router := authTestRouter(nil, secret)

	valid := signedToken(t, secret, time.Now().Add(time.Hour))
	require.Equal(t, http.StatusOK, authRequest(t, router, "Bearer "+valid))

	forged := signedToken(t, "other-secret", time.Now().Add(time.Hour))
	require.Equal(t, http.StatusUnauthorized, authRequest(t, router, "Bearer "+forged))

	expired := signedToken(t, secret, time.Now().Add(-time.Hour))
	require.Equal(t, http.StatusUnauthorized, authRequest(t, router, "Bearer "+expired))
}

func TestAuthMiddlewareJWTFailureFallsBackToStaticTokens(t *testing.T) {
	router := authTestRouter([]string{"svc-token"}, "jwt-secret")

	// A static token is not a parsable JWT; the static list still admits it.
	require.Equal(t, http.StatusOK, authRequest(t, router, "Bearer svc-token"))
}

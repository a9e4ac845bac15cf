package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validatedRouter(t *testing.T) *gin.Engine {
	t.Helper()
	mw, err := NewOpenAPIValidator()
	require.NoError(t, err)

	router := gin.New()
	router.Use(mw)
	router.POST("/api/v1/auth/login", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"token": "t", "expires_at": "2026-01-01T00:00:00Z"})
	})
	router.POST("/api/v1/integrations/connect", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"authorize_url": "https://accounts.google.com/o/oauth2/auth?x=y"})
	})
	router.GET("/api/v1/integrations/google_workspace/callback", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/dashboard")
	})
	return router
}

func TestOpenAPIValidator_ValidRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"admin@corp.test","password":"secret"}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	validatedRouter(t).ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOpenAPIValidator_MissingRequiredField(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"admin@corp.test"}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	validatedRouter(t).ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "OPENAPI_REQUEST_INVALID")
}

func TestOpenAPIValidator_RejectsUnknownProviderType(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/integrations/connect",
		strings.NewReader(`{"type":"okta","name":"Okta"}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	validatedRouter(t).ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOpenAPIValidator_CallbackRoutePassesThrough(t *testing.T) {
	// Callbacks are deliberately outside the contract; the validator must
	// not interfere with them.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/integrations/google_workspace/callback?code=abc&state=xyz", nil)

	w := httptest.NewRecorder()
	validatedRouter(t).ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)
}

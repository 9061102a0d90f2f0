package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"affily/config"
	"affily/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWallet = "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"

func jwtConfig() *config.JWTConfig {
	return &config.JWTConfig{
		AccessSecret:  "secret",
		RefreshSecret: "refresh",
		AccessExpiry:  time.Minute,
		RefreshExpiry: time.Hour,
		Issuer:        "affily",
	}
}

func authedRouter(t *testing.T, adminCfg *config.AdminConfig) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/", AuthRequired(jwtConfig()))
	group.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"wallet": GetWallet(c)})
	})
	if adminCfg != nil {
		group.GET("/admin", AdminRequired(adminCfg), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
	}
	return router
}

func get(router *gin.Engine, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	router := authedRouter(t, nil)
	token, err := auth.GenerateAccessToken(jwtConfig(), testWallet)
	require.NoError(t, err)

	w := get(router, "/me", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), testWallet)

	assert.Equal(t, http.StatusUnauthorized, get(router, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "/me", "Bearer").Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "/me", "Basic "+token).Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "/me", "Bearer not-a-token").Code)
}

func TestAuthRequired_WrongSecret(t *testing.T) {
	router := authedRouter(t, nil)
	other := *jwtConfig()
	other.AccessSecret = "different"
	token, err := auth.GenerateAccessToken(&other, testWallet)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, get(router, "/me", "Bearer "+token).Code)
}

func TestAdminRequired(t *testing.T) {
	// Allowlist matching is case-insensitive.
	router := authedRouter(t, &config.AdminConfig{WalletAddresses: []string{testWallet}})

	adminToken, err := auth.GenerateAccessToken(jwtConfig(), testWallet)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, get(router, "/admin", "Bearer "+adminToken).Code)

	lowerToken, err := auth.GenerateAccessToken(jwtConfig(), "0xab5801a7d398351b8be11c439e05c5b3259aec9b")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, get(router, "/admin", "Bearer "+lowerToken).Code)

	otherToken, err := auth.GenerateAccessToken(jwtConfig(), "0x1111111111111111111111111111111111111111")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, get(router, "/admin", "Bearer "+otherToken).Code)
}

func TestRateLimitByAPIKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewInMemoryRateLimiter(2, time.Minute)
	router := gin.New()
	router.POST("/conversions", RateLimitByAPIKey(limiter), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	do := func(apiKey string) int {
		req := httptest.NewRequest(http.MethodPost, "/conversions", nil)
		if apiKey != "" {
			req.Header.Set("x-api-key", apiKey)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do("key-a"))
	assert.Equal(t, http.StatusOK, do("key-a"))
	assert.Equal(t, http.StatusTooManyRequests, do("key-a"))
	// A different integrator keeps its own budget.
	assert.Equal(t, http.StatusOK, do("key-b"))
}

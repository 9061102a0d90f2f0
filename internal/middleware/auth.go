package middleware

import (
	"net/http"
	"strings"

	"affily/config"
	"affily/internal/auth"

	"github.com/gin-gonic/gin"
)

// AuthRequired validates the JWT and sets the wallet address in context.
func AuthRequired(cfg *config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		claims, err := auth.ParseAccessToken(cfg, parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set("wallet_address", claims.WalletAddress)
		c.Next()
	}
}

// AdminRequired checks the authenticated wallet against the allowlist from
// the environment. Must run after AuthRequired.
func AdminRequired(cfg *config.AdminConfig) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(cfg.WalletAddresses))
	for _, addr := range cfg.WalletAddresses {
		allowed[strings.ToLower(addr)] = struct{}{}
	}
	return func(c *gin.Context) {
		wallet := GetWallet(c)
		if wallet == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if _, ok := allowed[strings.ToLower(wallet)]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

// GetWallet returns the authenticated wallet address from context (must be
// used after AuthRequired).
func GetWallet(c *gin.Context) string {
	v, _ := c.Get("wallet_address")
	if v == nil {
		return ""
	}
	return v.(string)
}

package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

var (
	adminKey     string
	adminKeyOnce sync.Once
)

// getAdminKey loads the configured admin key once from the environment.
// Empty means auth is disabled (local development).
func getAdminKey() string {
	adminKeyOnce.Do(func() {
		adminKey = os.Getenv("ADMIN_KEY")
	})
	return adminKey
}

// AdminKeyAuth guards destructive endpoints (cache clear, capacity changes).
// When ADMIN_KEY is unset all requests pass, keeping local development
// friction-free. The key is expected as "Authorization: Bearer <key>".
func AdminKeyAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := getAdminKey()
		if key == "" {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required",
				"code":  "AUTH_REQUIRED",
			})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization format. Use: Bearer <admin_key>",
				"code":  "AUTH_INVALID_FORMAT",
			})
			return
		}

		// Constant-time comparison to prevent timing attacks
		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid admin key",
				"code":  "AUTH_INVALID_KEY",
			})
			return
		}

		c.Next()
	}
}

// GetAuthStatus reports whether admin authentication is enabled. Public, so
// clients know whether to prompt for a key.
func GetAuthStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"auth_enabled": getAdminKey() != "",
	})
}

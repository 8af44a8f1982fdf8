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
	operatorKey     string
	operatorKeyOnce sync.Once
)

// getOperatorKey returns the configured operator key, loading it once from environment.
// Returns empty string if OPERATOR_KEY is not set (auth disabled).
func getOperatorKey() string {
	operatorKeyOnce.Do(func() {
		operatorKey = os.Getenv("OPERATOR_KEY")
	})
	return operatorKey
}

// OperatorKeyAuth returns middleware that requires a valid operator key for access.
// If OPERATOR_KEY environment variable is not set, all requests are allowed (local dev).
// The key should be provided in the Authorization header as "Bearer <key>".
func OperatorKeyAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := getOperatorKey()

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
				"error": "Invalid authorization format. Use: Bearer <operator_key>",
				"code":  "AUTH_INVALID_FORMAT",
			})
			return
		}

		providedKey := parts[1]

		// Constant-time comparison to prevent timing attacks
		if subtle.ConstantTimeCompare([]byte(providedKey), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid operator key",
				"code":  "AUTH_INVALID_KEY",
			})
			return
		}

		c.Next()
	}
}

// GetAuthStatus returns whether authentication is enabled (OPERATOR_KEY is set).
// This is a public endpoint that doesn't require authentication.
func GetAuthStatus(c *gin.Context) {
	key := getOperatorKey()
	c.JSON(http.StatusOK, gin.H{
		"auth_enabled": key != "",
	})
}

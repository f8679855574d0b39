package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// AuthorizationHeader is the header name for authorization
	AuthorizationHeader = "Authorization"
	// UserKey is the context key for the authenticated user
	UserKey = "user"
	// UserHeader optionally names the acting user for audit fields
	UserHeader = "X-Forwarded-User"
)

// Auth validates the shared bearer token and records the acting user
// on the request context.
func Auth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthorizationHeader)
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": "Authorization header is required",
			})
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": "Invalid authorization header format",
			})
			c.Abort()
			return
		}

		presented := strings.TrimPrefix(authHeader, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": "Invalid or missing token",
			})
			c.Abort()
			return
		}

		user := c.GetHeader(UserHeader)
		if user == "" {
			user = "system"
		}
		c.Set(UserKey, user)
		c.Next()
	}
}

// GetUser returns the acting user from the gin context
func GetUser(c *gin.Context) string {
	if user, exists := c.Get(UserKey); exists {
		return user.(string)
	}
	return ""
}

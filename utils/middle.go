package utils

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware verifies the bearer token and sets user context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			Fail(c, http.StatusUnauthorized, "unauthorized")
			c.Abort()
			return
		}
		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			Fail(c, http.StatusUnauthorized, "unauthorized")
			c.Abort()
			return
		}
		claims, err := VerifyToken(tokenParts[1])
		if err != nil {
			Fail(c, http.StatusUnauthorized, "unauthorized")
			c.Abort()
			return
		}
		c.Set("user_id", claims.Subject)
		c.Set("email", claims.Email)
		c.Next()
	}
}

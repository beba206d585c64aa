package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminMiddleware gates admin-only routes. Runs after AuthMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		roleInterface, exists := c.Get("role")
		if !exists {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   gin.H{"code": "FORBIDDEN", "message": "admin role required"},
			})
			c.Abort()
			return
		}

		role, ok := roleInterface.(string)
		if !ok || (role != "admin" && role != "superadmin") {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   gin.H{"code": "FORBIDDEN", "message": "admin role required"},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

package middleware

import (
	"log/slog"
	"net/http"

	"qrverify/internal/config"

	"github.com/gin-gonic/gin"
)

// AdminUserKey is the gin context key holding the authenticated username.
const AdminUserKey = "admin_user"

const adminRealm = `Basic realm="Admin Access Required"`

// AdminAuth checks HTTP Basic credentials against users. Requests that fail
// are answered with 401 here and never reach the handler.
func AdminAuth(users config.AdminUsers, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, password, ok := c.Request.BasicAuth()
		if !ok || !users.Verify(username, password) {
			if ok {
				logger.Warn("Admin authentication failed", "username", username, "path", c.Request.URL.Path)
			}
			c.Header("WWW-Authenticate", adminRealm)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": "Authentication required",
			})
			return
		}

		c.Set(AdminUserKey, username)
		c.Next()
	}
}

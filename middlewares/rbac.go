package middlewares

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"maternar/services"
)

// RBACMiddleware checks that the authenticated caller's role may perform
// action on resource. It must run after AuthMiddleware or LegacySession.
func RBACMiddleware(authz *services.Authorizer, resource, action string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": services.ErrUnauthenticated.Error()})
			return
		}
		if !authz.Can(u.Role, resource, action) {
			logger.Warn("permission denied", "userId", u.ID, "role", u.Role, "resource", resource, "action", action)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": services.ErrForbidden.Error()})
			return
		}
		c.Next()
	}
}

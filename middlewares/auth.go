package middlewares

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"maternar/models"
	"maternar/services"
)

// TokenValidator resolves a bearer token to its user and session id.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*models.User, string, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. It returns "" when the header is missing or malformed.
func BearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// ClientMeta records the caller's address and user agent on the request
// context so sessions can remember where they were opened.
func ClientMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := services.WithClientMeta(c.Request.Context(), services.ClientMeta{
			IPAddress: c.ClientIP(),
			UserAgent: c.GetHeader("User-Agent"),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// AuthMiddleware validates the bearer token and puts the caller on the
// request context. With required false a missing or bad token leaves the
// request anonymous, which the GraphQL endpoint needs for login and register.
func AuthMiddleware(tokens TokenValidator, required bool, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": services.ErrUnauthenticated.Error()})
				return
			}
			c.Next()
			return
		}

		u, sid, err := tokens.ValidateToken(c.Request.Context(), token)
		if err != nil {
			kind, msg := services.Classify(err)
			if kind == services.KindInternal {
				logger.Error("token validation failed", "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": msg})
				return
			}
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
				return
			}
			c.Next()
			return
		}

		setViewer(c, &services.Viewer{User: u, SessionID: sid})
		c.Next()
	}
}

func setViewer(c *gin.Context, v *services.Viewer) {
	c.Request = c.Request.WithContext(services.WithViewer(c.Request.Context(), v))
	c.Set("userID", v.User.ID)
	c.Set("userRole", v.User.Role)
}

// CurrentUser returns the authenticated caller, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v := services.ViewerFrom(c.Request.Context())
	if v == nil {
		return nil
	}
	return v.User
}

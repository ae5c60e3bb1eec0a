package middlewares

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"maternar/models"
	"maternar/services"
)

// Legacy session keys.
const (
	SessionUserID     = "user_id"
	SessionUserEmail  = "user_email"
	SessionUserName   = "user_name"
	SessionUserRole   = "user_role"
	SessionUserAvatar = "user_avatar"

	// RememberCookie carries "<userID>:<token>" for the remember-me login.
	RememberCookie = "remember_token"
)

// SessionOptions configures the legacy cookie store.
type SessionOptions struct {
	Name   string
	Secret string
	MaxAge int
	Secure bool
}

// Sessions installs the gin-contrib cookie session store.
func Sessions(opts SessionOptions) gin.HandlerFunc {
	store := cookie.NewStore([]byte(opts.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   opts.MaxAge,
		Secure:   opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sessions.Sessions(opts.Name, store)
}

// LegacyUsers is what the legacy session layer needs from the auth and user
// services.
type LegacyUsers interface {
	Get(ctx context.Context, id uint) (*models.User, error)
}

// RememberResolver resolves a remember-me cookie value to its user.
type RememberResolver interface {
	UserFromRememberToken(ctx context.Context, value string) (*models.User, error)
}

// SaveSession stores the user in the legacy cookie session.
func SaveSession(c *gin.Context, u *models.User) error {
	session := sessions.Default(c)
	session.Set(SessionUserID, u.ID)
	session.Set(SessionUserEmail, u.Email)
	session.Set(SessionUserName, u.DisplayName())
	session.Set(SessionUserRole, u.Role)
	session.Set(SessionUserAvatar, u.Avatar())
	return session.Save()
}

// ClearSession empties the legacy cookie session.
func ClearSession(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	return session.Save()
}

// LegacySession requires a cookie session. When there is none, a valid
// remember-me cookie re-establishes it. The user row is reloaded on every
// request so deactivated accounts lose access immediately.
func LegacySession(users LegacyUsers, remember RememberResolver, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var u *models.User
		if id := SessionUser(c); id != 0 {
			loaded, err := users.Get(ctx, id)
			if err == nil && loaded.IsActive {
				u = loaded
			}
		}

		if u == nil {
			if value, err := c.Cookie(RememberCookie); err == nil && value != "" {
				if loaded, err := remember.UserFromRememberToken(ctx, value); err == nil {
					u = loaded
					if err := SaveSession(c, u); err != nil {
						logger.Error("session save failed", "userId", u.ID, "error", err)
					}
				}
			}
		}

		if u == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": services.ErrUnauthenticated.Error()})
			return
		}

		setViewer(c, &services.Viewer{User: u})
		c.Next()
	}
}

// SessionUser returns the user id stored in the cookie session, or 0.
func SessionUser(c *gin.Context) uint {
	id, _ := sessions.Default(c).Get(SessionUserID).(uint)
	return id
}

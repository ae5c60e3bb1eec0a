package controllers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"maternar/middlewares"
	"maternar/models"
	"maternar/services"
	"maternar/structs"
)

// rememberMaxAge is how long the remember-me cookie lives, in seconds.
const rememberMaxAge = 30 * 24 * 3600

// LegacyController serves the cookie-session endpoints kept for the old
// portal pages.
type LegacyController struct {
	svc          *services.Services
	secureCookie bool
	logger       *slog.Logger
}

func NewLegacyController(svc *services.Services, secureCookie bool, logger *slog.Logger) *LegacyController {
	return &LegacyController{svc: svc, secureCookie: secureCookie, logger: logger}
}

// Login checks credentials, records the login streak and opens a cookie
// session. With remember set a long-lived remember-me cookie is issued too.
func (lc *LegacyController) Login(c *gin.Context) {
	var req structs.LegacyLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}

	u, err := lc.svc.Auth.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, lc.logger, "legacy login", err)
		return
	}
	if err := middlewares.SaveSession(c, u); err != nil {
		respondError(c, lc.logger, "legacy login", err)
		return
	}

	if req.Remember {
		value, err := lc.svc.Auth.IssueRememberToken(c.Request.Context(), u)
		if err != nil {
			respondError(c, lc.logger, "legacy login", err)
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(middlewares.RememberCookie, value, rememberMaxAge, "/", "", lc.secureCookie, true)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": sessionUser(u)})
}

// Logout clears the cookie session and forgets the remember-me token.
// It succeeds even without a session.
func (lc *LegacyController) Logout(c *gin.Context) {
	if id := middlewares.SessionUser(c); id != 0 {
		if err := lc.svc.Auth.ForgetRememberToken(c.Request.Context(), id); err != nil {
			lc.logger.Warn("failed to forget remember token", "userId", id, "error", err)
		}
	}
	if err := middlewares.ClearSession(c); err != nil {
		lc.logger.Warn("session clear failed", "error", err)
	}
	c.SetCookie(middlewares.RememberCookie, "", -1, "/", "", lc.secureCookie, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Messages dispatches /legacy/api/messages?action=get|send.
func (lc *LegacyController) Messages(c *gin.Context) {
	u := middlewares.CurrentUser(c)
	switch action := c.Query("action"); {
	case action == "get" && c.Request.Method == http.MethodGet:
		lc.getMessages(c, u)
	case action == "send" && c.Request.Method == http.MethodPost:
		lc.sendMessage(c, u)
	case action == "get" || action == "send":
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	default:
		badRequest(c, "Invalid action")
	}
}

func (lc *LegacyController) getMessages(c *gin.Context, u *models.User) {
	channelID, ok := queryUint(c, "channel_id")
	if !ok {
		badRequest(c, "channel_id is required")
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	msgs, err := lc.svc.Chat.Messages(c.Request.Context(), u.ID, channelID, limit, offset)
	if err != nil {
		respondError(c, lc.logger, "legacy messages", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messages": msgs})
}

func (lc *LegacyController) sendMessage(c *gin.Context, u *models.User) {
	var req structs.LegacySendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "channel_id and content are required")
		return
	}
	m, err := lc.svc.Chat.Send(c.Request.Context(), u.ID, req.ChannelID, req.Content)
	if err != nil {
		respondError(c, lc.logger, "legacy send message", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": m})
}

// Notifications dispatches /legacy/api/notifications?action=get|read|read_all.
func (lc *LegacyController) Notifications(c *gin.Context) {
	u := middlewares.CurrentUser(c)
	switch action := c.Query("action"); {
	case action == "get" && c.Request.Method == http.MethodGet:
		lc.getNotifications(c, u)
	case action == "read" && c.Request.Method == http.MethodPost:
		lc.readNotification(c, u)
	case action == "read_all" && c.Request.Method == http.MethodPost:
		lc.readAllNotifications(c, u)
	case action == "get" || action == "read" || action == "read_all":
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	default:
		badRequest(c, "Invalid action")
	}
}

func (lc *LegacyController) getNotifications(c *gin.Context, u *models.User) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	unreadOnly := c.Query("unread_only") == "1" || c.Query("unread_only") == "true"

	ctx := c.Request.Context()
	list, err := lc.svc.Notifications.List(ctx, u.ID, limit, unreadOnly)
	if err != nil {
		respondError(c, lc.logger, "legacy notifications", err)
		return
	}
	unread, err := lc.svc.Notifications.CountUnread(ctx, u.ID)
	if err != nil {
		respondError(c, lc.logger, "legacy notifications", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "notifications": list, "unread": unread})
}

func (lc *LegacyController) readNotification(c *gin.Context, u *models.User) {
	var req structs.LegacyReadNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "id is required")
		return
	}
	if err := lc.svc.Notifications.MarkRead(c.Request.Context(), u.ID, req.ID); err != nil {
		respondError(c, lc.logger, "legacy read notification", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (lc *LegacyController) readAllNotifications(c *gin.Context, u *models.User) {
	n, err := lc.svc.Notifications.MarkAllRead(c.Request.Context(), u.ID)
	if err != nil {
		respondError(c, lc.logger, "legacy read all notifications", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "updated": n})
}

func sessionUser(u *models.User) gin.H {
	return gin.H{
		"id":     u.ID,
		"email":  u.Email,
		"name":   u.DisplayName(),
		"role":   u.Role,
		"avatar": u.Avatar(),
		"level":  u.Level,
		"xp":     u.TotalXP,
		"streak": u.CurrentStreak,
	}
}

func queryUint(c *gin.Context, key string) (uint, bool) {
	n, err := strconv.ParseUint(c.Query(key), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

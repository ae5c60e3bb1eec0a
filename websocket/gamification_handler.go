package websocket

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"maternar/services"
)

// GamificationHandler serves the gamification feed socket.
type GamificationHandler struct {
	hub      *Hub
	tokens   TokenValidator
	upgrader *websocket.Upgrader
	logger   *slog.Logger
}

func NewGamificationHandler(hub *Hub, tokens TokenValidator, check CheckOrigin, logger *slog.Logger) *GamificationHandler {
	return &GamificationHandler{hub: hub, tokens: tokens, upgrader: newUpgrader(check), logger: logger}
}

// Serve authenticates the caller from the Authorization header or the token
// query parameter, upgrades the connection and keeps it registered until the
// peer goes away. Incoming frames other than close are ignored.
func (gh *GamificationHandler) Serve(c *gin.Context) {
	token := tokenFromRequest(c.Request)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization token required"})
		return
	}
	u, _, err := gh.tokens.ValidateToken(c.Request.Context(), token)
	if err != nil {
		kind, msg := services.Classify(err)
		if kind == services.KindInternal {
			gh.logger.Error("gamification socket auth failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
		return
	}

	conn, err := gh.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		gh.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{Conn: conn, UserID: u.ID}
	gh.hub.Register(client)
	defer gh.hub.Unregister(client)

	client.SafeWriteJSON(map[string]interface{}{
		"type":    "connected",
		"message": "Connected to gamification updates",
		"userId":  u.ID,
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				gh.logger.Debug("gamification socket closed", "userId", u.ID, "error", err)
			}
			return
		}
	}
}

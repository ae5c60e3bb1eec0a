// Package websocket serves the live parts of the portal: the gamification
// feed, user presence and GraphQL subscriptions over graphql-transport-ws.
package websocket

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"maternar/models"
)

const writeWait = 10 * time.Second

// CheckOrigin decides which browser origins may open sockets. Nil allows all.
type CheckOrigin func(r *http.Request) bool

// AllowOrigins returns a CheckOrigin accepting the listed origins. A "*"
// entry or an empty list accepts everything.
func AllowOrigins(origins []string) CheckOrigin {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return nil
		}
		allowed[strings.TrimRight(o, "/")] = true
	}
	if len(allowed) == 0 {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}

func newUpgrader(check CheckOrigin, subprotocols ...string) *websocket.Upgrader {
	u := &websocket.Upgrader{Subprotocols: subprotocols}
	if check == nil {
		u.CheckOrigin = func(r *http.Request) bool { return true }
	} else {
		u.CheckOrigin = check
	}
	return u
}

// TokenValidator resolves a bearer token to its user and session id.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*models.User, string, error)
}

// Client is one live socket owned by a user.
type Client struct {
	Conn    *websocket.Conn
	UserID  uint
	writeMu sync.Mutex
}

// SafeWriteJSON serializes writes; gorilla connections allow one writer.
func (c *Client) SafeWriteJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteJSON(v)
}

func (c *Client) safeWriteText(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) safeClose(code int, reason string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	msg := websocket.FormatCloseMessage(code, reason)
	c.Conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	c.Conn.Close()
}

// tokenFromRequest reads the bearer token from the Authorization header or
// the token query parameter.
func tokenFromRequest(r *http.Request) string {
	if parts := strings.Fields(r.Header.Get("Authorization")); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return r.URL.Query().Get("token")
}

package websocket

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"maternar/internal/events"
	"maternar/models"
)

const presenceTimeout = 5 * time.Second

// Hub tracks live sockets. It forwards gamification events to every feed
// client and publishes presence when a user's first connection opens or
// their last one closes.
type Hub struct {
	bus    events.Bus
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	clients map[*Client]bool
	online  map[uint]int
}

func NewHub(bus events.Bus, logger *slog.Logger) *Hub {
	return &Hub{
		bus:     bus,
		logger:  logger,
		now:     time.Now,
		clients: make(map[*Client]bool),
		online:  make(map[uint]int),
	}
}

// Connect counts a live connection for userID.
func (h *Hub) Connect(userID uint) {
	h.mu.Lock()
	h.online[userID]++
	first := h.online[userID] == 1
	h.mu.Unlock()
	if first {
		h.publishPresence(userID, models.StatusOnline)
	}
}

// Disconnect releases a connection counted by Connect.
func (h *Hub) Disconnect(userID uint) {
	h.mu.Lock()
	n, ok := h.online[userID]
	if !ok {
		h.mu.Unlock()
		return
	}
	last := n <= 1
	if last {
		delete(h.online, userID)
	} else {
		h.online[userID] = n - 1
	}
	h.mu.Unlock()
	if last {
		h.publishPresence(userID, models.StatusOffline)
	}
}

// Online reports whether userID has at least one live connection.
func (h *Hub) Online(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.online[userID] > 0
}

func (h *Hub) publishPresence(userID uint, status string) {
	// the request that triggered this may already be gone
	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()
	ev := models.PresenceEvent{UserID: userID, Status: status, Timestamp: h.now().UTC()}
	if err := h.bus.Publish(ctx, events.TopicPresence, ev); err != nil {
		h.logger.Warn("failed to publish presence", "userId", userID, "status", status, "error", err)
	}
}

// Register adds a gamification feed client.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()
	h.Connect(client.UserID)
	h.logger.Debug("gamification client registered", "userId", client.UserID, "clients", total)
}

// Unregister removes a feed client and closes its socket. Repeated calls
// are no-ops.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if !h.clients[client] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	total := len(h.clients)
	h.mu.Unlock()

	client.Conn.Close()
	h.Disconnect(client.UserID)
	h.logger.Debug("gamification client unregistered", "userId", client.UserID, "clients", total)
}

// ClientCount returns the number of feed clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast writes an encoded event to every feed client. Clients whose
// write fails are dropped.
func (h *Hub) Broadcast(data []byte) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.safeWriteText(data); err != nil {
			h.logger.Debug("dropping gamification client", "userId", c.UserID, "error", err)
			h.Unregister(c)
		}
	}
}

// Run forwards gamification bus events to feed clients until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	feed, err := h.bus.Subscribe(ctx, events.TopicGamification)
	if err != nil {
		return err
	}
	for data := range feed {
		h.Broadcast(data)
	}
	return nil
}

package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	graphql "github.com/graph-gophers/graphql-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maternar/internal/events"
	"maternar/models"
	"maternar/services"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubTokens map[string]*models.User

func (s stubTokens) ValidateToken(ctx context.Context, token string) (*models.User, string, error) {
	u, ok := s[token]
	if !ok {
		return nil, "", services.ErrUnauthenticated
	}
	return u, "sid", nil
}

var carla = &models.User{ID: 7, Email: "carla@maternar.com", Role: models.RoleUser, IsActive: true}

// stubExecutor hands each Subscribe call's result channel to the test.
type stubExecutor struct {
	calls chan chan interface{}
	ctxs  chan context.Context
}

func newStubExecutor() *stubExecutor {
	return &stubExecutor{calls: make(chan chan interface{}, 4), ctxs: make(chan context.Context, 4)}
}

func (e *stubExecutor) Subscribe(ctx context.Context, query, op string, vars map[string]interface{}) (<-chan interface{}, error) {
	ch := make(chan interface{})
	e.ctxs <- ctx
	e.calls <- ch
	return ch, nil
}

func presenceEvents(t *testing.T, bus events.Bus) (<-chan []byte, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := bus.Subscribe(ctx, events.TopicPresence)
	require.NoError(t, err)
	return ch, cancel
}

func nextPresence(t *testing.T, ch <-chan []byte) models.PresenceEvent {
	t.Helper()
	select {
	case data := <-ch:
		var ev models.PresenceEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("no presence event")
	}
	return models.PresenceEvent{}
}

func TestHubPresenceCountsConnections(t *testing.T) {
	bus := events.NewMemoryBus()
	hub := NewHub(bus, discardLogger())
	feed, cancel := presenceEvents(t, bus)
	defer cancel()

	hub.Connect(7)
	hub.Connect(7)
	ev := nextPresence(t, feed)
	assert.Equal(t, uint(7), ev.UserID)
	assert.Equal(t, models.StatusOnline, ev.Status)
	assert.True(t, hub.Online(7))

	hub.Disconnect(7)
	assert.True(t, hub.Online(7))
	select {
	case <-feed:
		t.Fatal("offline published while a connection remains")
	case <-time.After(50 * time.Millisecond):
	}

	hub.Disconnect(7)
	assert.Equal(t, models.StatusOffline, nextPresence(t, feed).Status)
	assert.False(t, hub.Online(7))

	// unknown users are ignored
	hub.Disconnect(99)
}

func TestAllowOrigins(t *testing.T) {
	assert.Nil(t, AllowOrigins(nil))
	assert.Nil(t, AllowOrigins([]string{"*"}))

	check := AllowOrigins([]string{"https://portal.maternar.com/"})
	req := httptest.NewRequest("GET", "/graphql", nil)
	assert.True(t, check(req), "non-browser clients send no origin")
	req.Header.Set("Origin", "https://portal.maternar.com")
	assert.True(t, check(req))
	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))
}

func dial(t *testing.T, srv *httptest.Server, path string, subprotocols ...string) *websocket.Conn {
	t.Helper()
	dialer := websocket.Dialer{Subprotocols: subprotocols, HandshakeTimeout: time.Second}
	conn, _, err := dialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn
}

func graphqlServer(t *testing.T, exec SubscriptionExecutor, hub *Hub) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewGraphQLHandler(exec, stubTokens{"good": carla}, hub, nil, discardLogger())
	h.initTimeout = 200 * time.Millisecond
	r.GET("/graphql", h.Serve)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func readMsg(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func closeCode(t *testing.T, conn *websocket.Conn) int {
	t.Helper()
	_, _, err := conn.ReadMessage()
	var ce *websocket.CloseError
	require.ErrorAs(t, err, &ce)
	return ce.Code
}

func TestGraphQLWSSubscriptionLifecycle(t *testing.T) {
	bus := events.NewMemoryBus()
	hub := NewHub(bus, discardLogger())
	exec := newStubExecutor()
	srv := graphqlServer(t, exec, hub)
	conn := dial(t, srv, "/graphql", Subprotocol)
	assert.Equal(t, Subprotocol, conn.Subprotocol())

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "connection_init", "payload": map[string]string{"authorization": "Bearer good"},
	}))
	assert.Equal(t, msgConnectionAck, readMsg(t, conn).Type)
	assert.True(t, hub.Online(carla.ID))

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	assert.Equal(t, msgPong, readMsg(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"id": "1", "type": "subscribe",
		"payload": map[string]interface{}{"query": "subscription { notificationAdded { id } }"},
	}))
	results := <-exec.calls
	ctx := <-exec.ctxs
	viewer := services.ViewerFrom(ctx)
	require.NotNil(t, viewer)
	assert.Equal(t, carla.ID, viewer.User.ID)

	results <- &graphql.Response{Data: json.RawMessage(`{"notificationAdded":{"id":"3"}}`)}
	next := readMsg(t, conn)
	assert.Equal(t, msgNext, next.Type)
	assert.Equal(t, "1", next.ID)
	assert.JSONEq(t, `{"data":{"notificationAdded":{"id":"3"}}}`, string(next.Payload))

	close(results)
	done := readMsg(t, conn)
	assert.Equal(t, msgComplete, done.Type)
	assert.Equal(t, "1", done.ID)

	conn.Close()
	require.Eventually(t, func() bool { return !hub.Online(carla.ID) }, time.Second, 10*time.Millisecond)
}

func TestGraphQLWSClientComplete(t *testing.T) {
	exec := newStubExecutor()
	srv := graphqlServer(t, exec, NewHub(events.NewMemoryBus(), discardLogger()))
	conn := dial(t, srv, "/graphql?token=good", Subprotocol)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "connection_init"}))
	assert.Equal(t, msgConnectionAck, readMsg(t, conn).Type)

	subscribe := map[string]interface{}{
		"id": "a", "type": "subscribe",
		"payload": map[string]interface{}{"query": "subscription { userStatusChanged { status } }"},
	}
	require.NoError(t, conn.WriteJSON(subscribe))
	<-exec.calls
	ctx := <-exec.ctxs

	require.NoError(t, conn.WriteJSON(map[string]string{"id": "a", "type": "complete"}))
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription context not cancelled")
	}

	// the id is free again
	require.NoError(t, conn.WriteJSON(subscribe))
	<-exec.calls
	<-exec.ctxs

	require.NoError(t, conn.WriteJSON(subscribe))
	assert.Equal(t, closeSubscriberExists, closeCode(t, conn))
}

func TestGraphQLWSRejections(t *testing.T) {
	hub := NewHub(events.NewMemoryBus(), discardLogger())

	t.Run("subscribe before init", func(t *testing.T) {
		conn := dial(t, graphqlServer(t, newStubExecutor(), hub), "/graphql", Subprotocol)
		require.NoError(t, conn.WriteJSON(map[string]interface{}{
			"id": "1", "type": "subscribe", "payload": map[string]string{"query": "subscription { x }"},
		}))
		assert.Equal(t, closeUnauthorized, closeCode(t, conn))
	})

	t.Run("bad token", func(t *testing.T) {
		conn := dial(t, graphqlServer(t, newStubExecutor(), hub), "/graphql", Subprotocol)
		require.NoError(t, conn.WriteJSON(map[string]interface{}{
			"type": "connection_init", "payload": map[string]string{"token": "bad"},
		}))
		assert.Equal(t, closeForbidden, closeCode(t, conn))
	})

	t.Run("second init", func(t *testing.T) {
		conn := dial(t, graphqlServer(t, newStubExecutor(), hub), "/graphql?token=good", Subprotocol)
		require.NoError(t, conn.WriteJSON(map[string]string{"type": "connection_init"}))
		assert.Equal(t, msgConnectionAck, readMsg(t, conn).Type)
		require.NoError(t, conn.WriteJSON(map[string]string{"type": "connection_init"}))
		assert.Equal(t, closeTooManyInits, closeCode(t, conn))
	})

	t.Run("garbage", func(t *testing.T) {
		conn := dial(t, graphqlServer(t, newStubExecutor(), hub), "/graphql", Subprotocol)
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
		assert.Equal(t, closeBadRequest, closeCode(t, conn))
	})

	t.Run("init timeout", func(t *testing.T) {
		conn := dial(t, graphqlServer(t, newStubExecutor(), hub), "/graphql", Subprotocol)
		assert.Equal(t, closeInitTimeout, closeCode(t, conn))
	})
}

func TestGamificationFeed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	bus := events.NewMemoryBus()
	hub := NewHub(bus, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/ws/gamification", NewGamificationHandler(hub, stubTokens{"good": carla}, nil, discardLogger()).Serve)
	srv := httptest.NewServer(r)
	defer srv.Close()

	dialer := websocket.Dialer{HandshakeTimeout: time.Second}
	_, resp, err := dialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/gamification", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)

	conn := dial(t, srv, "/ws/gamification?token=good")
	var hello map[string]interface{}
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "connected", hello["type"])
	assert.EqualValues(t, carla.ID, hello["userId"])
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return bus.Subscribers(events.TopicGamification) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, bus.Publish(context.Background(), events.TopicGamification, models.GamificationEvent{
		Type: "xp_gain", UserID: carla.ID, Points: 10,
	}))
	var ev map[string]interface{}
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "xp_gain", ev["type"])

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

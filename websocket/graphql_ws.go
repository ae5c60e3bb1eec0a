package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	graphql "github.com/graph-gophers/graphql-go"

	"maternar/models"
	"maternar/services"
)

// Subprotocol is the graphql-ws library's protocol name.
const Subprotocol = "graphql-transport-ws"

// graphql-transport-ws message types
const (
	msgConnectionInit = "connection_init"
	msgConnectionAck  = "connection_ack"
	msgPing           = "ping"
	msgPong           = "pong"
	msgSubscribe      = "subscribe"
	msgNext           = "next"
	msgError          = "error"
	msgComplete       = "complete"
)

// graphql-transport-ws close codes
const (
	closeBadRequest       = 4400
	closeUnauthorized     = 4401
	closeForbidden        = 4403
	closeInitTimeout      = 4408
	closeSubscriberExists = 4409
	closeTooManyInits     = 4429
)

// SubscriptionExecutor runs a GraphQL subscription. *graphql.Schema
// implements it.
type SubscriptionExecutor interface {
	Subscribe(ctx context.Context, queryString string, operationName string, variables map[string]interface{}) (<-chan interface{}, error)
}

type wsMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type initPayload struct {
	Authorization string `json:"authorization"`
	Token         string `json:"token"`
}

type subscribePayload struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// GraphQLHandler serves GraphQL subscriptions over graphql-transport-ws.
type GraphQLHandler struct {
	schema      SubscriptionExecutor
	tokens      TokenValidator
	hub         *Hub
	upgrader    *websocket.Upgrader
	logger      *slog.Logger
	initTimeout time.Duration
}

func NewGraphQLHandler(schema SubscriptionExecutor, tokens TokenValidator, hub *Hub, check CheckOrigin, logger *slog.Logger) *GraphQLHandler {
	return &GraphQLHandler{
		schema:      schema,
		tokens:      tokens,
		hub:         hub,
		upgrader:    newUpgrader(check, Subprotocol),
		logger:      logger,
		initTimeout: 10 * time.Second,
	}
}

// Serve upgrades the request and runs the protocol until either side
// closes. The bearer token may come from connection_init's payload, the
// Authorization header or the token query parameter.
func (gh *GraphQLHandler) Serve(c *gin.Context) {
	conn, err := gh.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		gh.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	ctx, cancel := context.WithCancel(c.Request.Context())
	s := &wsSession{
		h:           gh,
		client:      &Client{Conn: conn},
		ctx:         ctx,
		cancel:      cancel,
		subs:        make(map[string]context.CancelFunc),
		headerToken: tokenFromRequest(c.Request),
	}
	s.run()
}

type wsSession struct {
	h           *GraphQLHandler
	client      *Client
	ctx         context.Context
	cancel      context.CancelFunc
	headerToken string

	mu     sync.Mutex
	subs   map[string]context.CancelFunc
	inited bool
	user   *models.User
	wg     sync.WaitGroup
}

func (s *wsSession) run() {
	defer func() {
		s.cancel()
		s.wg.Wait()
		s.client.Conn.Close()
		if s.user != nil {
			s.h.hub.Disconnect(s.user.ID)
		}
	}()

	conn := s.client.Conn
	conn.SetReadDeadline(time.Now().Add(s.h.initTimeout))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() && !s.acknowledged() {
				s.client.safeClose(closeInitTimeout, "Connection initialisation timeout")
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			s.client.safeClose(closeBadRequest, "Invalid message received")
			return
		}
		if !s.handle(msg) {
			return
		}
	}
}

func (s *wsSession) acknowledged() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil
}

// handle processes one client message and reports whether the connection
// stays open.
func (s *wsSession) handle(msg wsMessage) bool {
	switch msg.Type {
	case msgConnectionInit:
		return s.init(msg.Payload)
	case msgPing:
		return s.write(wsMessage{Type: msgPong}) == nil
	case msgPong:
		return true
	case msgSubscribe:
		if !s.acknowledged() {
			s.client.safeClose(closeUnauthorized, "Unauthorized")
			return false
		}
		return s.subscribe(msg)
	case msgComplete:
		s.mu.Lock()
		if stop, ok := s.subs[msg.ID]; ok {
			stop()
			delete(s.subs, msg.ID)
		}
		s.mu.Unlock()
		return true
	default:
		s.client.safeClose(closeBadRequest, fmt.Sprintf("Unexpected message type %q", msg.Type))
		return false
	}
}

func (s *wsSession) init(raw json.RawMessage) bool {
	s.mu.Lock()
	if s.inited {
		s.mu.Unlock()
		s.client.safeClose(closeTooManyInits, "Too many initialisation requests")
		return false
	}
	s.inited = true
	s.mu.Unlock()

	token := s.headerToken
	if len(raw) > 0 {
		var p initPayload
		if err := json.Unmarshal(raw, &p); err == nil {
			switch {
			case p.Authorization != "":
				token = bearer(p.Authorization)
			case p.Token != "":
				token = p.Token
			}
		}
	}
	if token == "" {
		s.client.safeClose(closeForbidden, "Forbidden")
		return false
	}

	u, sid, err := s.h.tokens.ValidateToken(s.ctx, token)
	if err != nil {
		if kind, _ := services.Classify(err); kind == services.KindInternal {
			s.h.logger.Error("subscription auth failed", "error", err)
		}
		s.client.safeClose(closeForbidden, "Forbidden")
		return false
	}

	s.mu.Lock()
	s.user = u
	s.ctx = services.WithViewer(s.ctx, &services.Viewer{User: u, SessionID: sid})
	s.mu.Unlock()

	s.client.Conn.SetReadDeadline(time.Time{})
	s.h.hub.Connect(u.ID)
	return s.write(wsMessage{Type: msgConnectionAck}) == nil
}

func (s *wsSession) subscribe(msg wsMessage) bool {
	if msg.ID == "" {
		s.client.safeClose(closeBadRequest, "Subscription id is required")
		return false
	}
	var p subscribePayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil || p.Query == "" {
		s.client.safeClose(closeBadRequest, "Invalid subscribe payload")
		return false
	}

	s.mu.Lock()
	if _, exists := s.subs[msg.ID]; exists {
		s.mu.Unlock()
		s.client.safeClose(closeSubscriberExists, fmt.Sprintf("Subscriber for %s already exists", msg.ID))
		return false
	}
	ctx, stop := context.WithCancel(s.ctx)
	s.subs[msg.ID] = stop
	s.mu.Unlock()

	results, err := s.h.schema.Subscribe(ctx, p.Query, p.OperationName, p.Variables)
	if err != nil {
		s.finish(msg.ID)
		payload, _ := json.Marshal([]map[string]string{{"message": err.Error()}})
		return s.write(wsMessage{ID: msg.ID, Type: msgError, Payload: payload}) == nil
	}

	s.wg.Add(1)
	go s.stream(ctx, msg.ID, results)
	return true
}

// stream relays subscription results until the source closes or the client
// completes the operation.
func (s *wsSession) stream(ctx context.Context, id string, results <-chan interface{}) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-results:
			if !ok {
				if s.finish(id) {
					s.write(wsMessage{ID: id, Type: msgComplete})
				}
				return
			}
			resp, isResp := v.(*graphql.Response)
			if !isResp {
				continue
			}
			if len(resp.Errors) > 0 && len(resp.Data) == 0 {
				if s.finish(id) {
					payload, _ := json.Marshal(resp.Errors)
					s.write(wsMessage{ID: id, Type: msgError, Payload: payload})
				}
				return
			}
			payload, err := json.Marshal(resp)
			if err != nil {
				s.h.logger.Error("failed to encode subscription result", "error", err)
				continue
			}
			if err := s.write(wsMessage{ID: id, Type: msgNext, Payload: payload}); err != nil {
				return
			}
		}
	}
}

// finish drops a subscription and reports whether it was still active.
func (s *wsSession) finish(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	stop, ok := s.subs[id]
	if ok {
		stop()
		delete(s.subs, id)
	}
	return ok
}

func (s *wsSession) write(msg wsMessage) error {
	return s.client.SafeWriteJSON(msg)
}

func bearer(header string) string {
	if parts := strings.Fields(header); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return header
}

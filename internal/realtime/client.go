package realtime

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/conventionhub/backend/internal/access"
	"github.com/conventionhub/backend/pkg/apperrors"
	"github.com/conventionhub/backend/pkg/response"
)

// Topics and events.
const (
	TopicAdmin = "admin"

	EventRoleApplicationCreated   = "role_application.created"
	EventRoleApplicationProcessed = "role_application.processed"
	EventConventionsExpired       = "conventions.expired"
)

// UserTopic is the per-user notification topic.
func UserTopic(userID uuid.UUID) string { return "user:" + userID.String() }

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client represents a single WebSocket connection subscribed to one topic.
type Client struct {
	ID     string
	Topic  string
	UserID uuid.UUID
	hub    *Hub
	conn   *websocket.Conn
	send   chan WSMessage
	logger *zap.Logger
}

// NewClient builds a client; conn may be nil in tests.
func NewClient(hub *Hub, topic string, userID uuid.UUID, conn *websocket.Conn, logger *zap.Logger) *Client {
	return &Client{
		ID:     uuid.New().String(),
		Topic:  topic,
		UserID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan WSMessage, 64),
		logger: logger,
	}
}

// Messages exposes the outbound channel.
func (c *Client) Messages() <-chan WSMessage { return c.send }

// SessionValidator resolves a bearer token to a session.
type SessionValidator interface {
	Session(token string) (*access.Session, error)
}

// authorizeTopic checks that s may listen on topic.
func authorizeTopic(s *access.Session, topic string) error {
	switch {
	case topic == TopicAdmin:
		return access.Authorize(s, access.CapAdmin, nil)
	case strings.HasPrefix(topic, "user:"):
		id, err := uuid.Parse(strings.TrimPrefix(topic, "user:"))
		if err != nil {
			return apperrors.Invalid("invalid topic")
		}
		return access.Authorize(s, access.CapSelf, &id)
	default:
		return apperrors.Invalid("unknown topic")
	}
}

// ServeWs handles the WebSocket upgrade and runs the client loop.
// Query: token, topic ("admin" or "user:<id>").
func ServeWs(hub *Hub, logger *zap.Logger, validator SessionValidator, allowedOrigins []string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		}
		session, err := validator.Session(token)
		if token == "" || err != nil {
			response.Error(c, nil, apperrors.Unauthenticated("invalid token"))
			return
		}
		topic := c.DefaultQuery("topic", UserTopic(session.UserID))
		if err := authorizeTopic(session, topic); err != nil {
			response.Error(c, nil, err)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		client := NewClient(hub, topic, session.UserID, conn, logger)
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// readPump only services control frames; clients do not send events.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

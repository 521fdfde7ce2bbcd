package chat

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/gatherup/backend/internal/auth"
	"github.com/gatherup/backend/internal/models"
)

const (
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
	readLimit    = 65536
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// Identity is the authenticated user bound to a connection for its lifetime.
type Identity struct {
	UserID int64
	Email  string
}

// VerifyFunc resolves a bearer credential to an identity.
type VerifyFunc func(token string) (Identity, error)

// Store is the persistence collaborator the session needs: the attendance
// predicate checked once at setup, and the message write path.
type Store interface {
	IsAttendee(ctx context.Context, userID, eventID int64) (bool, error)
	CreateMessage(ctx context.Context, eventID, userID int64, content string) (*models.Message, error)
}

// session mediates one authenticated connection's participation in one event
// room. Frames from the same connection are handled strictly in order: the
// read loop parses, persists and broadcasts each frame before reading the next.
type session struct {
	id       string
	eventID  int64
	user     Identity
	conn     *wsConn
	registry *Registry
	store    Store
	logger   *zap.Logger
}

// ServeWs handles GET /events/:id/chat: upgrades the connection, gates it on
// credential and attendance, then runs the session loops. The credential comes
// from the access_token cookie, or a token query parameter for non-browser
// clients. Authorization is checked exactly once, at setup.
func ServeWs(registry *Registry, store Store, verify VerifyFunc, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
			return
		}

		token := c.Query("token")
		if cookie, err := c.Cookie(auth.CookieName); err == nil && cookie != "" {
			token = cookie
		}

		raw, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		conn := &wsConn{ws: raw}

		if token == "" {
			conn.closeWith(websocket.ClosePolicyViolation, "not authenticated")
			return
		}
		user, err := verify(token)
		if err != nil {
			logger.Info("chat connection rejected", zap.Int64("event_id", eventID), zap.Error(err))
			conn.closeWith(websocket.ClosePolicyViolation, "not authenticated")
			return
		}
		ok, err := store.IsAttendee(c.Request.Context(), user.UserID, eventID)
		if err != nil {
			logger.Error("attendance check failed", zap.Int64("event_id", eventID), zap.Error(err))
			conn.closeWith(websocket.CloseInternalServerErr, "internal error")
			return
		}
		if !ok {
			logger.Info("chat connection rejected: not an attendee",
				zap.Int64("event_id", eventID), zap.Int64("user_id", user.UserID))
			conn.closeWith(websocket.ClosePolicyViolation, "not an attendee")
			return
		}

		s := &session{
			id:       uuid.New().String(),
			eventID:  eventID,
			user:     user,
			conn:     conn,
			registry: registry,
			store:    store,
			logger:   logger,
		}
		registry.Register(eventID, s.id, conn)

		done := make(chan struct{})
		go s.pingLoop(done)
		s.readLoop(done)
	}
}

// readLoop is the session's single consumer of inbound frames. It returns when
// the transport closes or an unrecoverable error occurs; either way the
// connection leaves the registry before the transport is released.
func (s *session) readLoop(done chan struct{}) {
	defer func() {
		close(done)
		s.registry.Unregister(s.eventID, s.id)
		_ = s.conn.Close()
	}()

	s.conn.ws.SetReadLimit(readLimit)
	_ = s.conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.ws.SetPongHandler(func(string) error {
		_ = s.conn.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ws.ReadMessage()
		if err != nil {
			return
		}
		_ = s.conn.ws.SetReadDeadline(time.Now().Add(pongWait))

		in, err := ParseInbound(data)
		if err != nil {
			// Malformed frames are dropped, not fatal.
			s.logger.Warn("dropping malformed chat frame",
				zap.Int64("event_id", s.eventID), zap.Int64("user_id", s.user.UserID))
			continue
		}

		msg, err := s.store.CreateMessage(context.Background(), s.eventID, s.user.UserID, in.Content)
		if err != nil {
			s.logger.Error("persist chat message failed",
				zap.Int64("event_id", s.eventID), zap.Int64("user_id", s.user.UserID), zap.Error(err))
			s.conn.writeJSON(ErrorFrame{Error: "message could not be saved"})
			s.conn.closeWith(websocket.CloseInternalServerErr, "internal error")
			return
		}

		s.registry.Publish(s.eventID, Outbound{
			Content: msg.Content,
			Email:   s.user.Email,
			UserID:  s.user.UserID,
		})
	}
}

// pingLoop keeps the connection alive. WriteControl is safe concurrently with
// the registry's data writes.
func (s *session) pingLoop(done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := s.conn.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// wsConn wraps a websocket connection with a write mutex so concurrent room
// broadcasts respect the transport's single-writer rule.
type wsConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *wsConn) WriteText(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}

func (c *wsConn) writeJSON(v interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.ws.WriteJSON(v)
}

func (c *wsConn) closeWith(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = c.ws.Close()
}

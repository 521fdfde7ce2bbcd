package chat

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gatherup/backend/internal/middleware"
	"github.com/gatherup/backend/pkg/response"
)

// HistoryEntry is one message in an event's chat history, shaped like the
// outbound frame plus the server timestamp.
type HistoryEntry struct {
	Content   string    `json:"content"`
	Email     string    `json:"email"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Handler exposes the read-side HTTP endpoints of the chat layer.
type Handler struct {
	repo     *Repository
	registry *Registry
	logger   *zap.Logger
}

// NewHandler creates a chat handler.
func NewHandler(repo *Repository, registry *Registry, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, registry: registry, logger: logger}
}

// History handles GET /events/:id/messages (attendees only).
func (h *Handler) History(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(int64)

	ok, err := h.repo.IsAttendee(c.Request.Context(), userID, eventID)
	if err != nil {
		h.logger.Error("attendance check failed", zap.Error(err))
		response.Internal(c, "failed to load messages")
		return
	}
	if !ok {
		response.Forbidden(c, "only attendees can read this chat")
		return
	}

	list, err := h.repo.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error("list messages failed", zap.Int64("event_id", eventID), zap.Error(err))
		response.Internal(c, "failed to load messages")
		return
	}
	response.OK(c, list)
}

// Presence handles GET /events/:id/presence: the number of live chat
// connections in the room on this instance.
func (h *Handler) Presence(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	response.OK(c, gin.H{"count": h.registry.RoomSize(eventID)})
}

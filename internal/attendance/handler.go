package attendance

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gatherup/backend/internal/events"
	"github.com/gatherup/backend/internal/middleware"
	"github.com/gatherup/backend/pkg/response"
)

// ToggleRequest is the body for POST /attend.
type ToggleRequest struct {
	EventID int64 `json:"event_id" binding:"required"`
}

// InviteRequest is the body for POST /events/:id/invite.
type InviteRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

// Handler handles attendance HTTP endpoints.
type Handler struct {
	repo   *Repository
	events *events.Repository
	logger *zap.Logger
}

// NewHandler creates an attendance handler.
func NewHandler(repo *Repository, eventRepo *events.Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, events: eventRepo, logger: logger}
}

// Toggle handles POST /attend: attend when not attending, unattend otherwise.
// Invite-only events accept attendees only through the host's invite.
func (h *Handler) Toggle(c *gin.Context) {
	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(int64)

	e, err := h.events.GetByID(c.Request.Context(), req.EventID)
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			response.NotFound(c, "event not found")
			return
		}
		response.Internal(c, "failed to load event")
		return
	}

	attending, err := h.repo.IsAttendee(c.Request.Context(), userID, req.EventID)
	if err != nil {
		h.logger.Error("attendance check", zap.Error(err))
		response.Internal(c, "failed to toggle attendance")
		return
	}

	if attending {
		if err := h.repo.Remove(c.Request.Context(), userID, req.EventID); err != nil {
			h.logger.Error("remove attendance", zap.Error(err))
			response.Internal(c, "failed to toggle attendance")
			return
		}
		response.OK(c, gin.H{"message": "successfully unattended"})
		return
	}

	if e.InviteOnly && e.HostID != userID {
		response.Forbidden(c, "event is invite-only")
		return
	}
	if err := h.repo.Add(c.Request.Context(), userID, req.EventID); err != nil {
		h.logger.Error("add attendance", zap.Error(err))
		response.Internal(c, "failed to toggle attendance")
		return
	}
	response.Created(c, gin.H{"message": "successfully attended"})
}

// Invite handles POST /events/:id/invite (host only): grants another user
// attendance, which also admits them to the event's chat.
func (h *Handler) Invite(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	e, err := h.events.GetByID(c.Request.Context(), eventID)
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			response.NotFound(c, "event not found")
			return
		}
		response.Internal(c, "failed to load event")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(int64)
	if e.HostID != userID {
		response.Forbidden(c, "only the host can invite")
		return
	}

	if err := h.repo.Add(c.Request.Context(), req.UserID, eventID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			response.NotFound(c, "user not found")
			return
		}
		h.logger.Error("invite attendee", zap.Error(err))
		response.Internal(c, "failed to invite")
		return
	}
	response.Created(c, gin.H{"message": "user invited"})
}

// ListByEvent handles GET /events/:id/attendees (host or attendee only).
func (h *Handler) ListByEvent(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(int64)

	e, err := h.events.GetByID(c.Request.Context(), eventID)
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			response.NotFound(c, "event not found")
			return
		}
		response.Internal(c, "failed to load event")
		return
	}
	if e.HostID != userID {
		attending, err := h.repo.IsAttendee(c.Request.Context(), userID, eventID)
		if err != nil {
			response.Internal(c, "failed to list attendees")
			return
		}
		if !attending {
			response.Forbidden(c, "only attendees can view this list")
			return
		}
	}

	list, err := h.repo.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error("list attendees", zap.Int64("event_id", eventID), zap.Error(err))
		response.Internal(c, "failed to list attendees")
		return
	}
	response.OK(c, list)
}

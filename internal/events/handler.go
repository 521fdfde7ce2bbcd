package events

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gatherup/backend/internal/middleware"
	"github.com/gatherup/backend/internal/models"
	"github.com/gatherup/backend/pkg/response"
)

// CreateRequest is the body for POST /events and PUT /events/:id.
type CreateRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	EventTime   string `json:"event_time" binding:"required"` // RFC 3339
	Location    string `json:"location" binding:"required"`
	InviteOnly  bool   `json:"invite_only"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates an event handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /events.
func (h *Handler) List(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(int64)
	list, err := h.repo.ListVisible(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("list events", zap.Error(err))
		response.Internal(c, "failed to list events")
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /events/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "event not found")
			return
		}
		response.Internal(c, "failed to load event")
		return
	}
	response.OK(c, e)
}

// Create handles POST /events. The caller becomes the host.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	eventTime, err := time.Parse(time.RFC3339, req.EventTime)
	if err != nil {
		response.BadRequest(c, "invalid event_time")
		return
	}

	userID := c.MustGet(middleware.ContextUserID).(int64)
	e := &models.Event{
		Title:       req.Title,
		Description: req.Description,
		EventTime:   eventTime,
		Location:    req.Location,
		InviteOnly:  req.InviteOnly,
		HostID:      userID,
	}
	if err := h.repo.Create(c.Request.Context(), e); err != nil {
		h.logger.Error("create event", zap.Error(err))
		response.Internal(c, "failed to create event")
		return
	}
	response.Created(c, e)
}

// Update handles PUT /events/:id (host only).
func (h *Handler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	eventTime, err := time.Parse(time.RFC3339, req.EventTime)
	if err != nil {
		response.BadRequest(c, "invalid event_time")
		return
	}

	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "event not found")
			return
		}
		response.Internal(c, "failed to load event")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(int64)
	if e.HostID != userID {
		response.Forbidden(c, "only the host can update this event")
		return
	}

	e.Title = req.Title
	e.Description = req.Description
	e.EventTime = eventTime
	e.Location = req.Location
	e.InviteOnly = req.InviteOnly
	if err := h.repo.Update(c.Request.Context(), e); err != nil {
		h.logger.Error("update event", zap.Int64("event_id", id), zap.Error(err))
		response.Internal(c, "failed to update event")
		return
	}
	response.OK(c, e)
}

// Delete handles DELETE /events/:id (host only). Messages and attendances for
// the event are removed by cascade.
func (h *Handler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "event not found")
			return
		}
		response.Internal(c, "failed to load event")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(int64)
	if e.HostID != userID {
		response.Forbidden(c, "only the host can delete this event")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		h.logger.Error("delete event", zap.Int64("event_id", id), zap.Error(err))
		response.Internal(c, "failed to delete event")
		return
	}
	response.NoContent(c)
}

package schedule

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conventionhub/backend/internal/conventions"
	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/response"
	"github.com/conventionhub/backend/pkg/validation"
)

// Store is the persistence the handler needs.
type Store interface {
	Days(ctx context.Context, conventionID uuid.UUID) ([]models.ScheduleDay, error)
	CreateDay(ctx context.Context, d *models.ScheduleDay) error
	UpdateDay(ctx context.Context, d *models.ScheduleDay) error
	DeleteDay(ctx context.Context, conventionID, id uuid.UUID) error
	CreateItem(ctx context.Context, it *models.ConventionScheduleItem) error
	UpdateItem(ctx context.Context, it *models.ConventionScheduleItem) error
	DeleteItem(ctx context.Context, conventionID, id uuid.UUID) error
}

// DayRequest is the body for schedule day create and update.
type DayRequest struct {
	DayOffset *int   `json:"day_offset" binding:"required,min=0,max=365"`
	Label     string `json:"label" binding:"max=120"`
}

// ItemRequest is the body for schedule item create and update.
type ItemRequest struct {
	ScheduleDayID    uuid.UUID `json:"schedule_day_id" binding:"required"`
	Title            string    `json:"title" binding:"required,max=200"`
	Description      string    `json:"description" binding:"max=5000"`
	Location         string    `json:"location" binding:"max=200"`
	StartTimeMinutes *int      `json:"start_time_minutes" binding:"required,min=0,max=1439"`
	DurationMinutes  int       `json:"duration_minutes" binding:"omitempty,min=1,max=1440"`
}

// DefaultDurationMinutes applies when an item omits its duration.
const DefaultDurationMinutes = 60

func (r ItemRequest) item(conventionID uuid.UUID) *models.ConventionScheduleItem {
	d := r.DurationMinutes
	if d == 0 {
		d = DefaultDurationMinutes
	}
	return &models.ConventionScheduleItem{
		ConventionID:     conventionID,
		ScheduleDayID:    r.ScheduleDayID,
		Title:            strings.TrimSpace(r.Title),
		Description:      r.Description,
		Location:         r.Location,
		StartTimeMinutes: *r.StartTimeMinutes,
		DurationMinutes:  d,
	}
}

// Handler serves schedule routes nested under a convention.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a schedule handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

func (h *Handler) fail(c *gin.Context, err error) {
	response.Error(c, h.logger, err, zap.String("convention_id", c.Param("id")))
}

func (h *Handler) target(c *gin.Context, withItem bool) (*models.Convention, uuid.UUID, bool) {
	conv, err := conventions.FromContext(c)
	if err != nil {
		h.fail(c, err)
		return nil, uuid.Nil, false
	}
	if !withItem {
		return conv, uuid.Nil, true
	}
	id, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		response.BadRequest(c, "invalid id")
		return nil, uuid.Nil, false
	}
	return conv, id, true
}

// Get handles GET /conventions/:id/schedule.
func (h *Handler) Get(c *gin.Context) {
	conv, _, ok := h.target(c, false)
	if !ok {
		return
	}
	days, err := h.store.Days(c.Request.Context(), conv.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, days)
}

func (h *Handler) saveDay(c *gin.Context, withItem bool) {
	conv, id, ok := h.target(c, withItem)
	if !ok {
		return
	}
	var req DayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, validation.FromBindError(err))
		return
	}
	d := &models.ScheduleDay{ID: id, ConventionID: conv.ID, DayOffset: *req.DayOffset, Label: strings.TrimSpace(req.Label)}
	if !withItem {
		if err := h.store.CreateDay(c.Request.Context(), d); err != nil {
			h.fail(c, err)
			return
		}
		response.Created(c, d)
		return
	}
	if err := h.store.UpdateDay(c.Request.Context(), d); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, d)
}

// CreateDay handles POST /conventions/:id/schedule/days.
func (h *Handler) CreateDay(c *gin.Context) { h.saveDay(c, false) }

// UpdateDay handles PUT /conventions/:id/schedule/days/:itemId.
func (h *Handler) UpdateDay(c *gin.Context) { h.saveDay(c, true) }

// DeleteDay handles DELETE /conventions/:id/schedule/days/:itemId.
func (h *Handler) DeleteDay(c *gin.Context) {
	conv, id, ok := h.target(c, true)
	if !ok {
		return
	}
	if err := h.store.DeleteDay(c.Request.Context(), conv.ID, id); err != nil {
		h.fail(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) saveItem(c *gin.Context, withItem bool) {
	conv, id, ok := h.target(c, withItem)
	if !ok {
		return
	}
	var req ItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, validation.FromBindError(err))
		return
	}
	it := req.item(conv.ID)
	if !withItem {
		if err := h.store.CreateItem(c.Request.Context(), it); err != nil {
			h.fail(c, err)
			return
		}
		response.Created(c, it)
		return
	}
	it.ID = id
	if err := h.store.UpdateItem(c.Request.Context(), it); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, it)
}

// CreateItem handles POST /conventions/:id/schedule/items.
func (h *Handler) CreateItem(c *gin.Context) { h.saveItem(c, false) }

// UpdateItem handles PUT /conventions/:id/schedule/items/:itemId.
func (h *Handler) UpdateItem(c *gin.Context) { h.saveItem(c, true) }

// DeleteItem handles DELETE /conventions/:id/schedule/items/:itemId.
func (h *Handler) DeleteItem(c *gin.Context) {
	conv, id, ok := h.target(c, true)
	if !ok {
		return
	}
	if err := h.store.DeleteItem(c.Request.Context(), conv.ID, id); err != nil {
		h.fail(c, err)
		return
	}
	response.NoContent(c)
}

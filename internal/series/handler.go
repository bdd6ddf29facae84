package series

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conventionhub/backend/internal/middleware"
	"github.com/conventionhub/backend/pkg/response"
	"github.com/conventionhub/backend/pkg/validation"
)

// WriteRequest is the body for POST and PATCH /series.
type WriteRequest struct {
	Name            *string    `json:"name" binding:"omitempty,min=1,max=200"`
	Description     *string    `json:"description" binding:"omitempty,max=5000"`
	LogoURL         *string    `json:"logo_url" binding:"omitempty,max=2048"`
	OrganizerUserID *uuid.UUID `json:"organizer_user_id"`
}

func (r WriteRequest) input() Input {
	return Input{Name: r.Name, Description: r.Description, LogoURL: r.LogoURL, OrganizerUserID: r.OrganizerUserID}
}

// Handler handles series endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a series handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) fail(c *gin.Context, err error) {
	response.Error(c, h.logger, err, zap.String("series_id", c.Param("id")))
}

func (h *Handler) seriesID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid series id")
		return uuid.Nil, false
	}
	return id, true
}

// Create handles POST /series.
func (h *Handler) Create(c *gin.Context) {
	var req WriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, validation.FromBindError(err))
		return
	}
	cs, err := h.svc.Create(c.Request.Context(), middleware.SessionFrom(c), req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, cs)
}

// Mine handles GET /series/mine.
func (h *Handler) Mine(c *gin.Context) {
	list, err := h.svc.Mine(c.Request.Context(), middleware.SessionFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /series/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := h.seriesID(c)
	if !ok {
		return
	}
	cs, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, cs)
}

// Update handles PATCH /series/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := h.seriesID(c)
	if !ok {
		return
	}
	var req WriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, validation.FromBindError(err))
		return
	}
	cs, err := h.svc.Update(c.Request.Context(), middleware.SessionFrom(c), id, req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, cs)
}

// Delete handles DELETE /series/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := h.seriesID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.SessionFrom(c), id); err != nil {
		h.fail(c, err)
		return
	}
	response.NoContent(c)
}

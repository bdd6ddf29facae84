package users

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conventionhub/backend/internal/middleware"
	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/response"
	"github.com/conventionhub/backend/pkg/validation"
)

// UpdateRequest is the body for PATCH /users/:id.
type UpdateRequest struct {
	Name     *string `json:"name" binding:"omitempty,max=120"`
	ImageURL *string `json:"image_url" binding:"omitempty,max=2048"`
}

// RolesRequest is the body for PUT /admin/users/:id/roles.
type RolesRequest struct {
	Roles []string `json:"roles" binding:"required"`
}

// Handler handles user endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a users handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) userID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) fail(c *gin.Context, err error) {
	response.Error(c, h.logger, err, zap.String("user_id", c.Param("id")))
}

func publicList(list []models.User) []models.UserPublic {
	out := make([]models.UserPublic, len(list))
	for i := range list {
		out[i] = list[i].ToPublic()
	}
	return out
}

// Get handles GET /users/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}
	u, err := h.svc.Get(c.Request.Context(), middleware.SessionFrom(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, u.ToPublic())
}

// Update handles PATCH /users/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, validation.FromBindError(err))
		return
	}
	u, err := h.svc.Update(c.Request.Context(), middleware.SessionFrom(c), id, Profile{Name: req.Name, ImageURL: req.ImageURL})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, u.ToPublic())
}

// List handles GET /admin/users.
func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	list, total, err := h.svc.List(c.Request.Context(), middleware.SessionFrom(c), c.Query("q"), limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"items": publicList(list), "total": total})
}

// SetRoles handles PUT /admin/users/:id/roles.
func (h *Handler) SetRoles(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}
	var req RolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, validation.FromBindError(err))
		return
	}
	u, err := h.svc.SetRoles(c.Request.Context(), middleware.SessionFrom(c), id, req.Roles)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, u.ToPublic())
}

// Delete handles DELETE /admin/users/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := h.userID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.SessionFrom(c), id); err != nil {
		h.fail(c, err)
		return
	}
	response.NoContent(c)
}

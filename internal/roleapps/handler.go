package roleapps

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

// ApplyRequest is the body for POST /role-applications.
type ApplyRequest struct {
	RequestedRole string `json:"requested_role" binding:"required"`
	Message       string `json:"message" binding:"max=2000"`
}

// ReviewRequest is the body for approve/reject.
type ReviewRequest struct {
	Note string `json:"note" binding:"max=2000"`
}

// Handler handles role application endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a role application handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) fail(c *gin.Context, err error) {
	fields := []zap.Field{}
	if id := c.Param("id"); id != "" {
		fields = append(fields, zap.String("application_id", id))
	}
	response.Error(c, h.logger, err, fields...)
}

// Apply handles POST /role-applications.
func (h *Handler) Apply(c *gin.Context) {
	var req ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, validation.FromBindError(err))
		return
	}
	app, err := h.svc.Apply(c.Request.Context(), middleware.SessionFrom(c), req.RequestedRole, req.Message)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, app)
}

// Mine handles GET /role-applications/mine.
func (h *Handler) Mine(c *gin.Context) {
	list, err := h.svc.Mine(c.Request.Context(), middleware.SessionFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, list)
}

// List handles GET /admin/role-applications?status=PENDING.
func (h *Handler) List(c *gin.Context) {
	var status *models.ApplicationStatus
	if s := c.Query("status"); s != "" {
		st := models.ApplicationStatus(s)
		switch st {
		case models.ApplicationPending, models.ApplicationApproved, models.ApplicationRejected:
			status = &st
		default:
			response.BadRequest(c, "invalid status")
			return
		}
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	list, total, err := h.svc.List(c.Request.Context(), middleware.SessionFrom(c), status, limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"items": list, "total": total})
}

func (h *Handler) review(c *gin.Context, approve bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid application id")
		return
	}
	var req ReviewRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.fail(c, validation.FromBindError(err))
			return
		}
	}
	sess := middleware.SessionFrom(c)
	var app *models.RoleApplication
	if approve {
		app, err = h.svc.Approve(c.Request.Context(), sess, id, req.Note)
	} else {
		app, err = h.svc.Reject(c.Request.Context(), sess, id, req.Note)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, app)
}

// Approve handles POST /admin/role-applications/:id/approve.
func (h *Handler) Approve(c *gin.Context) { h.review(c, true) }

// Reject handles POST /admin/role-applications/:id/reject.
func (h *Handler) Reject(c *gin.Context) { h.review(c, false) }

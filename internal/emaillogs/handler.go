package emaillogs

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/conventionhub/backend/internal/access"
	"github.com/conventionhub/backend/internal/middleware"
	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/response"
)

// Lister reads email logs.
type Lister interface {
	List(ctx context.Context, f Filter) ([]models.EmailLog, int, error)
}

// Handler handles email log HTTP endpoints.
type Handler struct {
	repo   Lister
	logger *zap.Logger
}

// NewHandler creates an email logs handler.
func NewHandler(repo Lister, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /admin/email-logs?status=&email_type=&recipient=&limit=&offset=.
func (h *Handler) List(c *gin.Context) {
	if err := access.Authorize(middleware.SessionFrom(c), access.CapAdmin, nil); err != nil {
		response.Error(c, h.logger, err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	f := Filter{
		Status:    c.Query("status"),
		EmailType: c.Query("email_type"),
		Recipient: c.Query("recipient"),
		Limit:     limit,
		Offset:    offset,
	}
	list, total, err := h.repo.List(c.Request.Context(), f)
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	response.OK(c, gin.H{"items": list, "total": total})
}

package conventions

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conventionhub/backend/internal/middleware"
	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/apperrors"
	"github.com/conventionhub/backend/pkg/response"
	"github.com/conventionhub/backend/pkg/validation"
)

// WriteRequest is the body for POST /conventions and PATCH /conventions/:id.
type WriteRequest struct {
	SeriesID      *string    `json:"series_id" binding:"omitempty,uuid"`
	Name          *string    `json:"name" binding:"omitempty,max=200"`
	Slug          *string    `json:"slug" binding:"omitempty,max=80"`
	Description   *string    `json:"description"`
	StartDate     *time.Time `json:"start_date"`
	EndDate       *time.Time `json:"end_date"`
	City          *string    `json:"city" binding:"omitempty,max=120"`
	StateCode     *string    `json:"state_code" binding:"omitempty,max=10"`
	CountryCode   *string    `json:"country_code" binding:"omitempty,len=2"`
	Timezone      *string    `json:"timezone"`
	CurrencyCode  *string    `json:"currency_code" binding:"omitempty,len=3"`
	WebsiteURL    *string    `json:"website_url" binding:"omitempty,url"`
	CoverImageURL *string    `json:"cover_image_url"`
}

func (r WriteRequest) input() Input {
	in := Input{
		Name: r.Name, Slug: r.Slug, Description: r.Description,
		StartDate: r.StartDate, EndDate: r.EndDate, City: r.City, StateCode: r.StateCode,
		CountryCode: upper(r.CountryCode), Timezone: r.Timezone, CurrencyCode: upper(r.CurrencyCode),
		WebsiteURL: r.WebsiteURL, CoverImageURL: r.CoverImageURL,
	}
	if r.SeriesID != nil {
		id := uuid.MustParse(*r.SeriesID)
		in.SeriesID = &id
	}
	return in
}

func upper(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.ToUpper(*s)
	return &v
}

// StatusRequest is the body for PATCH /conventions/:id/status.
type StatusRequest struct {
	Status string `json:"status" binding:"required,oneof=DRAFT PUBLISHED PAST"`
}

// BulkRequest is the body for POST /conventions/bulk.
type BulkRequest struct {
	Action string   `json:"action" binding:"required,oneof=delete status"`
	IDs    []string `json:"ids" binding:"required,min=1,dive,uuid"`
	Status string   `json:"status" binding:"required_if=Action status,omitempty,oneof=DRAFT PUBLISHED PAST"`
}

// ListResponse is a page of conventions.
type ListResponse struct {
	Items  []models.Convention `json:"items"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

// Handler handles convention HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a convention handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) fail(c *gin.Context, err error) {
	fields := []zap.Field{}
	if id := c.Param("id"); id != "" {
		fields = append(fields, zap.String("convention_id", id))
	}
	if s := middleware.SessionFrom(c); s != nil {
		fields = append(fields, zap.String("user_id", s.UserID.String()))
	}
	response.Error(c, h.logger, err, fields...)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid convention id")
		return uuid.Nil, false
	}
	return id, true
}

func listFilter(c *gin.Context) ListFilter {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	f := ListFilter{
		Query:       c.Query("q"),
		CountryCode: c.Query("country"),
		Limit:       limit,
		Offset:      offset,
	}
	if c.Query("upcoming") == "1" || c.Query("upcoming") == "true" {
		now := time.Now()
		f.UpcomingAfter = &now
	}
	if sid, err := uuid.Parse(c.Query("series_id")); err == nil {
		f.SeriesID = &sid
	}
	return f
}

func writeList(c *gin.Context, f ListFilter, items []models.Convention, total int) {
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	response.OK(c, ListResponse{Items: items, Total: total, Limit: limit, Offset: f.Offset})
}

// ListPublic handles GET /conventions.
func (h *Handler) ListPublic(c *gin.Context) {
	f := listFilter(c)
	items, total, err := h.svc.ListPublic(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	writeList(c, f, items, total)
}

// ListMine handles GET /organizer/conventions. ?deleted=include|only.
func (h *Handler) ListMine(c *gin.Context) {
	f := listFilter(c)
	switch c.Query("deleted") {
	case "include":
		f.IncludeDeleted = true
	case "only":
		f.OnlyDeleted = true
	}
	if st, ok := models.ParseConventionStatus(c.Query("status")); ok {
		f.Status = &st
	}
	items, total, err := h.svc.ListMine(c.Request.Context(), middleware.SessionFrom(c), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	writeList(c, f, items, total)
}

// ListAll handles GET /admin/conventions.
func (h *Handler) ListAll(c *gin.Context) {
	f := listFilter(c)
	f.IncludeDeleted = c.Query("deleted") == "include"
	f.OnlyDeleted = c.Query("deleted") == "only"
	if st, ok := models.ParseConventionStatus(c.Query("status")); ok {
		f.Status = &st
	}
	items, total, err := h.svc.ListAll(c.Request.Context(), middleware.SessionFrom(c), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	writeList(c, f, items, total)
}

// GetByID handles GET /conventions/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	conv, err := h.svc.Get(c.Request.Context(), middleware.SessionFrom(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, conv)
}

// GetBySlug handles GET /conventions/slug/:slug.
func (h *Handler) GetBySlug(c *gin.Context) {
	conv, err := h.svc.GetBySlug(c.Request.Context(), middleware.SessionFrom(c), c.Param("slug"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, conv)
}

// Create handles POST /conventions (organizer).
func (h *Handler) Create(c *gin.Context) {
	var req WriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, validation.FromBindError(err))
		return
	}
	conv, err := h.svc.Create(c.Request.Context(), middleware.SessionFrom(c), req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, conv)
}

// Update handles PATCH /conventions/:id (owner or admin).
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req WriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, validation.FromBindError(err))
		return
	}
	conv, err := h.svc.Update(c.Request.Context(), middleware.SessionFrom(c), id, req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, conv)
}

// SetStatus handles PATCH /conventions/:id/status.
func (h *Handler) SetStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, validation.FromBindError(err))
		return
	}
	conv, err := h.svc.SetStatus(c.Request.Context(), middleware.SessionFrom(c), id, models.ConventionStatus(req.Status))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, conv)
}

// Delete handles DELETE /conventions/:id (soft delete).
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.SessionFrom(c), id); err != nil {
		h.fail(c, err)
		return
	}
	response.NoContent(c)
}

// Restore handles POST /conventions/:id/restore.
func (h *Handler) Restore(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	conv, err := h.svc.Restore(c.Request.Context(), middleware.SessionFrom(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, conv)
}

// Duplicate handles POST /conventions/:id/duplicate.
func (h *Handler) Duplicate(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	conv, err := h.svc.Duplicate(c.Request.Context(), middleware.SessionFrom(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, conv)
}

// Bulk handles POST /conventions/bulk.
func (h *Handler) Bulk(c *gin.Context) {
	var req BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, validation.FromBindError(err))
		return
	}
	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, s := range req.IDs {
		id, err := uuid.Parse(s)
		if err != nil {
			h.fail(c, apperrors.Validation(map[string]string{"ids": "must contain valid ids"}))
			return
		}
		ids = append(ids, id)
	}
	res, err := h.svc.Bulk(c.Request.Context(), middleware.SessionFrom(c), BulkAction(req.Action), ids, models.ConventionStatus(req.Status))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, res)
}

// Expire handles POST /admin/conventions/expire.
func (h *Handler) Expire(c *gin.Context) {
	n, err := h.svc.ExpireAsAdmin(c.Request.Context(), middleware.SessionFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"expired": n})
}

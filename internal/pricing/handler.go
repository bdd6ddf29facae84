package pricing

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conventionhub/backend/internal/conventions"
	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/response"
	"github.com/conventionhub/backend/pkg/validation"
)

// TierRequest is the body for tier create and update.
type TierRequest struct {
	Label        string `json:"label" binding:"required,max=120"`
	AmountCents  *int   `json:"amount_cents" binding:"required,min=0"`
	CurrencyCode string `json:"currency_code" binding:"omitempty,len=3"`
	SortOrder    int    `json:"sort_order"`
}

// DiscountRequest is one entry of a discount replace body.
type DiscountRequest struct {
	PriceTierID           uuid.UUID `json:"price_tier_id" binding:"required"`
	CutoffDate            time.Time `json:"cutoff_date" binding:"required"`
	DiscountedAmountCents *int      `json:"discounted_amount_cents" binding:"required,min=0"`
}

// ReplaceRequest is the body for PUT /conventions/:id/pricing/discounts.
type ReplaceRequest struct {
	Discounts []DiscountRequest `json:"discounts" binding:"max=500,dive"`
}

// ReplaceResponse summarizes a discount replace.
type ReplaceResponse struct {
	Inserted  int                    `json:"inserted"`
	Skipped   int                    `json:"skipped"`
	Discounts []models.PriceDiscount `json:"discounts"`
}

// Handler serves pricing routes nested under a convention.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a pricing handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) fail(c *gin.Context, err error) {
	response.Error(c, h.logger, err, zap.String("convention_id", c.Param("id")))
}

func (h *Handler) convention(c *gin.Context) (*models.Convention, bool) {
	conv, err := conventions.FromContext(c)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return conv, true
}

// Get handles GET /conventions/:id/pricing.
func (h *Handler) Get(c *gin.Context) {
	conv, ok := h.convention(c)
	if !ok {
		return
	}
	tiers, err := h.svc.Tiers(c.Request.Context(), conv)
	if err != nil {
		h.fail(c, err)
		return
	}
	discounts, err := h.svc.Discounts(c.Request.Context(), conv)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{"tiers": tiers, "discounts": discounts})
}

func (h *Handler) saveTier(c *gin.Context, id uuid.UUID) {
	conv, ok := h.convention(c)
	if !ok {
		return
	}
	var req TierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, validation.FromBindError(err))
		return
	}
	t := &models.PriceTier{
		ID:           id,
		Label:        req.Label,
		AmountCents:  *req.AmountCents,
		CurrencyCode: req.CurrencyCode,
		SortOrder:    req.SortOrder,
	}
	if err := h.svc.SaveTier(c.Request.Context(), conv, t); err != nil {
		h.fail(c, err)
		return
	}
	if id == uuid.Nil {
		response.Created(c, t)
		return
	}
	response.OK(c, t)
}

// CreateTier handles POST /conventions/:id/pricing/tiers.
func (h *Handler) CreateTier(c *gin.Context) { h.saveTier(c, uuid.Nil) }

// UpdateTier handles PUT /conventions/:id/pricing/tiers/:itemId.
func (h *Handler) UpdateTier(c *gin.Context) {
	id, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		response.BadRequest(c, "invalid tier id")
		return
	}
	h.saveTier(c, id)
}

// DeleteTier handles DELETE /conventions/:id/pricing/tiers/:itemId.
func (h *Handler) DeleteTier(c *gin.Context) {
	conv, ok := h.convention(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		response.BadRequest(c, "invalid tier id")
		return
	}
	if err := h.svc.DeleteTier(c.Request.Context(), conv, id); err != nil {
		h.fail(c, err)
		return
	}
	response.NoContent(c)
}

// ReplaceDiscounts handles PUT /conventions/:id/pricing/discounts.
func (h *Handler) ReplaceDiscounts(c *gin.Context) {
	conv, ok := h.convention(c)
	if !ok {
		return
	}
	var req ReplaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, validation.FromBindError(err))
		return
	}
	discounts := make([]models.PriceDiscount, len(req.Discounts))
	for i, d := range req.Discounts {
		discounts[i] = models.PriceDiscount{
			PriceTierID:           d.PriceTierID,
			CutoffDate:            d.CutoffDate,
			DiscountedAmountCents: *d.DiscountedAmountCents,
		}
	}
	res, err := h.svc.ReplaceDiscounts(c.Request.Context(), conv, discounts)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, ReplaceResponse{Inserted: len(res.Inserted), Skipped: len(res.Skipped), Discounts: res.Inserted})
}

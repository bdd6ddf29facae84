package venues

import (
	"context"
	"strings"
	"time"

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
	ListVenues(ctx context.Context, conventionID uuid.UUID) ([]models.Venue, error)
	GetVenue(ctx context.Context, conventionID, id uuid.UUID) (*models.Venue, error)
	CreateVenue(ctx context.Context, v *models.Venue) error
	UpdateVenue(ctx context.Context, v *models.Venue) error
	DeleteVenue(ctx context.Context, conventionID, id uuid.UUID) error
	ListHotels(ctx context.Context, conventionID uuid.UUID) ([]models.Hotel, error)
	GetHotel(ctx context.Context, conventionID, id uuid.UUID) (*models.Hotel, error)
	CreateHotel(ctx context.Context, h *models.Hotel) error
	UpdateHotel(ctx context.Context, h *models.Hotel) error
	DeleteHotel(ctx context.Context, conventionID, id uuid.UUID) error
}

// PhotoRequest is one photo in a venue or hotel body.
type PhotoRequest struct {
	URL     string `json:"url" binding:"required,url,max=2048"`
	Caption string `json:"caption" binding:"max=300"`
}

// VenueRequest is the body for POST and PUT venue routes.
type VenueRequest struct {
	Name           string         `json:"name" binding:"required,max=200"`
	Address        string         `json:"address" binding:"max=500"`
	City           string         `json:"city" binding:"max=120"`
	CountryCode    *string        `json:"country_code" binding:"omitempty,len=2"`
	WebsiteURL     *string        `json:"website_url" binding:"omitempty,url"`
	Latitude       *float64       `json:"latitude" binding:"omitempty,min=-90,max=90"`
	Longitude      *float64       `json:"longitude" binding:"omitempty,min=-180,max=180"`
	IsPrimaryVenue bool           `json:"is_primary_venue"`
	Photos         []PhotoRequest `json:"photos" binding:"omitempty,max=50,dive"`
}

// HotelRequest is the body for POST and PUT hotel routes.
type HotelRequest struct {
	Name            string         `json:"name" binding:"required,max=200"`
	Address         string         `json:"address" binding:"max=500"`
	City            string         `json:"city" binding:"max=120"`
	CountryCode     *string        `json:"country_code" binding:"omitempty,len=2"`
	WebsiteURL      *string        `json:"website_url" binding:"omitempty,url"`
	BookingURL      *string        `json:"booking_url" binding:"omitempty,url"`
	GroupRateCode   *string        `json:"group_rate_code" binding:"omitempty,max=64"`
	GroupRateCutoff *time.Time     `json:"group_rate_cutoff"`
	IsPrimaryHotel  bool           `json:"is_primary_hotel"`
	Photos          []PhotoRequest `json:"photos" binding:"omitempty,max=50,dive"`
}

func photos(in []PhotoRequest) []models.Photo {
	out := make([]models.Photo, len(in))
	for i, p := range in {
		out[i] = models.Photo{URL: p.URL, Caption: p.Caption, SortOrder: i}
	}
	return out
}

func upper(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.ToUpper(*s)
	return &v
}

func (r VenueRequest) venue(conventionID uuid.UUID) *models.Venue {
	return &models.Venue{
		ConventionID:   conventionID,
		Name:           strings.TrimSpace(r.Name),
		Address:        r.Address,
		City:           r.City,
		CountryCode:    upper(r.CountryCode),
		WebsiteURL:     r.WebsiteURL,
		Latitude:       r.Latitude,
		Longitude:      r.Longitude,
		IsPrimaryVenue: r.IsPrimaryVenue,
		Photos:         photos(r.Photos),
	}
}

func (r HotelRequest) hotel(conventionID uuid.UUID) *models.Hotel {
	return &models.Hotel{
		ConventionID:    conventionID,
		Name:            strings.TrimSpace(r.Name),
		Address:         r.Address,
		City:            r.City,
		CountryCode:     upper(r.CountryCode),
		WebsiteURL:      r.WebsiteURL,
		BookingURL:      r.BookingURL,
		GroupRateCode:   r.GroupRateCode,
		GroupRateCutoff: r.GroupRateCutoff,
		IsPrimaryHotel:  r.IsPrimaryHotel,
		Photos:          photos(r.Photos),
	}
}

// Handler serves venues and hotels nested under a convention. Routes are
// mounted behind conventions.RequireManage or conventions.RequireVisible.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a venues handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

func (h *Handler) fail(c *gin.Context, err error) {
	response.Error(c, h.logger, err, zap.String("convention_id", c.Param("id")), zap.String("item_id", c.Param("itemId")))
}

// target resolves the convention from context and the optional :itemId.
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

// ListVenues handles GET /conventions/:id/venues.
func (h *Handler) ListVenues(c *gin.Context) {
	conv, _, ok := h.target(c, false)
	if !ok {
		return
	}
	list, err := h.store.ListVenues(c.Request.Context(), conv.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, list)
}

// CreateVenue handles POST /conventions/:id/venues.
func (h *Handler) CreateVenue(c *gin.Context) {
	conv, _, ok := h.target(c, false)
	if !ok {
		return
	}
	var req VenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, validation.FromBindError(err))
		return
	}
	v := req.venue(conv.ID)
	if err := h.store.CreateVenue(c.Request.Context(), v); err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, v)
}

// UpdateVenue handles PUT /conventions/:id/venues/:itemId.
func (h *Handler) UpdateVenue(c *gin.Context) {
	conv, id, ok := h.target(c, true)
	if !ok {
		return
	}
	var req VenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, validation.FromBindError(err))
		return
	}
	v := req.venue(conv.ID)
	v.ID = id
	if err := h.store.UpdateVenue(c.Request.Context(), v); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, v)
}

// GetVenue handles GET /conventions/:id/venues/:itemId.
func (h *Handler) GetVenue(c *gin.Context) {
	conv, id, ok := h.target(c, true)
	if !ok {
		return
	}
	v, err := h.store.GetVenue(c.Request.Context(), conv.ID, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, v)
}

// DeleteVenue handles DELETE /conventions/:id/venues/:itemId.
func (h *Handler) DeleteVenue(c *gin.Context) {
	conv, id, ok := h.target(c, true)
	if !ok {
		return
	}
	if err := h.store.DeleteVenue(c.Request.Context(), conv.ID, id); err != nil {
		h.fail(c, err)
		return
	}
	response.NoContent(c)
}

// ListHotels handles GET /conventions/:id/hotels.
func (h *Handler) ListHotels(c *gin.Context) {
	conv, _, ok := h.target(c, false)
	if !ok {
		return
	}
	list, err := h.store.ListHotels(c.Request.Context(), conv.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, list)
}

// GetHotel handles GET /conventions/:id/hotels/:itemId.
func (h *Handler) GetHotel(c *gin.Context) {
	conv, id, ok := h.target(c, true)
	if !ok {
		return
	}
	hotel, err := h.store.GetHotel(c.Request.Context(), conv.ID, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, hotel)
}

// CreateHotel handles POST /conventions/:id/hotels.
func (h *Handler) CreateHotel(c *gin.Context) {
	conv, _, ok := h.target(c, false)
	if !ok {
		return
	}
	var req HotelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, validation.FromBindError(err))
		return
	}
	hotel := req.hotel(conv.ID)
	if err := h.store.CreateHotel(c.Request.Context(), hotel); err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, hotel)
}

// UpdateHotel handles PUT /conventions/:id/hotels/:itemId.
func (h *Handler) UpdateHotel(c *gin.Context) {
	conv, id, ok := h.target(c, true)
	if !ok {
		return
	}
	var req HotelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, validation.FromBindError(err))
		return
	}
	hotel := req.hotel(conv.ID)
	hotel.ID = id
	if err := h.store.UpdateHotel(c.Request.Context(), hotel); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, hotel)
}

// DeleteHotel handles DELETE /conventions/:id/hotels/:itemId.
func (h *Handler) DeleteHotel(c *gin.Context) {
	conv, id, ok := h.target(c, true)
	if !ok {
		return
	}
	if err := h.store.DeleteHotel(c.Request.Context(), conv.ID, id); err != nil {
		h.fail(c, err)
		return
	}
	response.NoContent(c)
}

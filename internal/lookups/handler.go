package lookups

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/response"
)

// Store reads lookup tables.
type Store interface {
	Timezones(ctx context.Context) ([]models.Timezone, error)
	Countries(ctx context.Context) ([]models.Country, error)
	States(ctx context.Context, countryCode string) ([]models.State, error)
	Currencies(ctx context.Context) ([]models.Currency, error)
}

// Handler serves the public lookup lists used by convention forms.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a lookups handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

func reply[T any](h *Handler, c *gin.Context, list []T, err error) {
	if err != nil {
		response.Error(c, h.logger, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	response.OK(c, list)
}

// Timezones handles GET /lookups/timezones.
func (h *Handler) Timezones(c *gin.Context) {
	list, err := h.store.Timezones(c.Request.Context())
	reply(h, c, list, err)
}

// Countries handles GET /lookups/countries.
func (h *Handler) Countries(c *gin.Context) {
	list, err := h.store.Countries(c.Request.Context())
	reply(h, c, list, err)
}

// States handles GET /lookups/states?country=US.
func (h *Handler) States(c *gin.Context) {
	list, err := h.store.States(c.Request.Context(), strings.ToUpper(c.Query("country")))
	reply(h, c, list, err)
}

// Currencies handles GET /lookups/currencies.
func (h *Handler) Currencies(c *gin.Context) {
	list, err := h.store.Currencies(c.Request.Context())
	reply(h, c, list, err)
}

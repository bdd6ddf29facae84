package pricing

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conventionhub/backend/internal/models"
)

// Store is the persistence the pricing service needs.
type Store interface {
	ListTiers(ctx context.Context, conventionID uuid.UUID) ([]models.PriceTier, error)
	CreateTier(ctx context.Context, t *models.PriceTier) error
	UpdateTier(ctx context.Context, t *models.PriceTier) error
	DeleteTier(ctx context.Context, conventionID, id uuid.UUID) error
	ListDiscounts(ctx context.Context, conventionID uuid.UUID) ([]models.PriceDiscount, error)
	ReplaceDiscounts(ctx context.Context, conventionID uuid.UUID, discounts []models.PriceDiscount) (*ReplaceResult, error)
}

// Service manages tiers and discounts of a convention already authorized by
// the route middleware.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService creates a pricing service.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// DefaultCurrency is used when neither the tier nor the convention names one.
const DefaultCurrency = "USD"

func currencyFor(conv *models.Convention, requested string) string {
	if requested != "" {
		return strings.ToUpper(requested)
	}
	if conv.CurrencyCode != nil && *conv.CurrencyCode != "" {
		return *conv.CurrencyCode
	}
	return DefaultCurrency
}

// Tiers lists a convention's tiers.
func (s *Service) Tiers(ctx context.Context, conv *models.Convention) ([]models.PriceTier, error) {
	return s.store.ListTiers(ctx, conv.ID)
}

// SaveTier creates t when its ID is nil and updates it otherwise.
func (s *Service) SaveTier(ctx context.Context, conv *models.Convention, t *models.PriceTier) error {
	t.ConventionID = conv.ID
	t.Label = strings.TrimSpace(t.Label)
	t.CurrencyCode = currencyFor(conv, t.CurrencyCode)
	if t.ID == uuid.Nil {
		return s.store.CreateTier(ctx, t)
	}
	return s.store.UpdateTier(ctx, t)
}

// DeleteTier removes a tier.
func (s *Service) DeleteTier(ctx context.Context, conv *models.Convention, id uuid.UUID) error {
	return s.store.DeleteTier(ctx, conv.ID, id)
}

// Discounts lists a convention's discounts.
func (s *Service) Discounts(ctx context.Context, conv *models.Convention) ([]models.PriceDiscount, error) {
	return s.store.ListDiscounts(ctx, conv.ID)
}

// ReplaceDiscounts swaps the convention's discount set. Rows naming a tier
// outside the convention are skipped with a warning.
func (s *Service) ReplaceDiscounts(ctx context.Context, conv *models.Convention, discounts []models.PriceDiscount) (*ReplaceResult, error) {
	res, err := s.store.ReplaceDiscounts(ctx, conv.ID, discounts)
	if err != nil {
		return nil, err
	}
	for _, d := range res.Skipped {
		s.logger.Warn("discount skipped: tier not in convention",
			zap.String("convention_id", conv.ID.String()),
			zap.String("price_tier_id", d.PriceTierID.String()))
	}
	return res, nil
}

package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/apperrors"
)

type memStore struct {
	tiers     map[uuid.UUID]models.PriceTier
	discounts map[uuid.UUID][]models.PriceDiscount
	failNext  error
}

func newMemStore() *memStore {
	return &memStore{tiers: map[uuid.UUID]models.PriceTier{}, discounts: map[uuid.UUID][]models.PriceDiscount{}}
}

func (m *memStore) ListTiers(ctx context.Context, conventionID uuid.UUID) ([]models.PriceTier, error) {
	var out []models.PriceTier
	for _, t := range m.tiers {
		if t.ConventionID == conventionID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) CreateTier(ctx context.Context, t *models.PriceTier) error {
	t.ID = uuid.New()
	m.tiers[t.ID] = *t
	return nil
}

func (m *memStore) UpdateTier(ctx context.Context, t *models.PriceTier) error {
	old, ok := m.tiers[t.ID]
	if !ok || old.ConventionID != t.ConventionID {
		return apperrors.NotFound("price tier not found")
	}
	m.tiers[t.ID] = *t
	return nil
}

func (m *memStore) DeleteTier(ctx context.Context, conventionID, id uuid.UUID) error {
	delete(m.tiers, id)
	return nil
}

func (m *memStore) ListDiscounts(ctx context.Context, conventionID uuid.UUID) ([]models.PriceDiscount, error) {
	return m.discounts[conventionID], nil
}

// ReplaceDiscounts mirrors the transactional repository: nothing changes on error.
func (m *memStore) ReplaceDiscounts(ctx context.Context, conventionID uuid.UUID, in []models.PriceDiscount) (*ReplaceResult, error) {
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return nil, err
	}
	tiers := map[uuid.UUID]bool{}
	for id, t := range m.tiers {
		if t.ConventionID == conventionID {
			tiers[id] = true
		}
	}
	keep, skip := filterDiscounts(in, tiers)
	for i := range keep {
		keep[i].ID = uuid.New()
		keep[i].ConventionID = conventionID
	}
	m.discounts[conventionID] = keep
	return &ReplaceResult{Inserted: keep, Skipped: skip, Requested: len(in)}, nil
}

func TestFilterDiscounts(t *testing.T) {
	a, b, foreign := uuid.New(), uuid.New(), uuid.New()
	tiers := map[uuid.UUID]bool{a: true, b: true}
	cutoff := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		in       []models.PriceDiscount
		wantKeep int
		wantSkip int
	}{
		{"empty", nil, 0, 0},
		{"all valid", []models.PriceDiscount{{PriceTierID: a}, {PriceTierID: b}}, 2, 0},
		{"foreign tier skipped", []models.PriceDiscount{{PriceTierID: a}, {PriceTierID: foreign}}, 1, 1},
		{"missing tier skipped", []models.PriceDiscount{{PriceTierID: uuid.Nil}}, 0, 1},
		{"same tier twice kept", []models.PriceDiscount{{PriceTierID: a, CutoffDate: cutoff}, {PriceTierID: a}}, 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keep, skip := filterDiscounts(tt.in, tiers)
			assert.Len(t, keep, tt.wantKeep)
			assert.Len(t, skip, tt.wantSkip)
			assert.NotNil(t, keep)
			assert.NotNil(t, skip)
		})
	}

	keep, _ := filterDiscounts([]models.PriceDiscount{{PriceTierID: b}, {PriceTierID: foreign}, {PriceTierID: a}}, tiers)
	require.Len(t, keep, 2)
	assert.Equal(t, b, keep[0].PriceTierID)
	assert.Equal(t, a, keep[1].PriceTierID)
}

func TestReplaceDiscountsSkipsForeignTiers(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	store := newMemStore()
	svc := NewService(store, zap.New(core))
	ctx := context.Background()
	conv := &models.Convention{ID: uuid.New()}
	other := &models.Convention{ID: uuid.New()}

	mine := &models.PriceTier{Label: "Weekend", AmountCents: 5000}
	require.NoError(t, svc.SaveTier(ctx, conv, mine))
	theirs := &models.PriceTier{Label: "VIP", AmountCents: 9000}
	require.NoError(t, svc.SaveTier(ctx, other, theirs))

	cutoff := time.Now().Add(24 * time.Hour)
	res, err := svc.ReplaceDiscounts(ctx, conv, []models.PriceDiscount{
		{PriceTierID: mine.ID, CutoffDate: cutoff, DiscountedAmountCents: 4000},
		{PriceTierID: theirs.ID, CutoffDate: cutoff, DiscountedAmountCents: 1},
		{PriceTierID: uuid.New(), CutoffDate: cutoff, DiscountedAmountCents: 1},
	})
	require.NoError(t, err)
	assert.Len(t, res.Inserted, 1)
	assert.Len(t, res.Skipped, 2)
	assert.Equal(t, 3, res.Requested)
	assert.Equal(t, 2, logs.FilterMessage("discount skipped: tier not in convention").Len())

	stored, err := svc.Discounts(ctx, conv)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 4000, stored[0].DiscountedAmountCents)

	// Replacing with an empty list clears the set.
	res, err = svc.ReplaceDiscounts(ctx, conv, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Inserted)
	stored, _ = svc.Discounts(ctx, conv)
	assert.Empty(t, stored)
}

func TestReplaceDiscountsFailureLeavesSetIntact(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil)
	ctx := context.Background()
	conv := &models.Convention{ID: uuid.New()}
	tier := &models.PriceTier{Label: "Day", AmountCents: 2000}
	require.NoError(t, svc.SaveTier(ctx, conv, tier))
	_, err := svc.ReplaceDiscounts(ctx, conv, []models.PriceDiscount{{PriceTierID: tier.ID, DiscountedAmountCents: 1500}})
	require.NoError(t, err)

	store.failNext = apperrors.Internal("insert discount", nil)
	_, err = svc.ReplaceDiscounts(ctx, conv, nil)
	assert.Equal(t, apperrors.KindInternal, apperrors.KindOf(err))
	stored, _ := svc.Discounts(ctx, conv)
	assert.Len(t, stored, 1)
}

func TestSaveTierCurrency(t *testing.T) {
	svc := NewService(newMemStore(), nil)
	ctx := context.Background()
	eur := "EUR"

	tier := &models.PriceTier{Label: " Day "}
	require.NoError(t, svc.SaveTier(ctx, &models.Convention{ID: uuid.New()}, tier))
	assert.Equal(t, DefaultCurrency, tier.CurrencyCode)
	assert.Equal(t, "Day", tier.Label)

	tier = &models.PriceTier{Label: "Day"}
	require.NoError(t, svc.SaveTier(ctx, &models.Convention{ID: uuid.New(), CurrencyCode: &eur}, tier))
	assert.Equal(t, "EUR", tier.CurrencyCode)

	tier = &models.PriceTier{Label: "Day", CurrencyCode: "gbp"}
	require.NoError(t, svc.SaveTier(ctx, &models.Convention{ID: uuid.New(), CurrencyCode: &eur}, tier))
	assert.Equal(t, "GBP", tier.CurrencyCode)

	tier = &models.PriceTier{ID: uuid.New(), Label: "Ghost"}
	err := svc.SaveTier(ctx, &models.Convention{ID: uuid.New()}, tier)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// PriceTier is a ticket type with a base price.
type PriceTier struct {
	ID           uuid.UUID `json:"id"`
	ConventionID uuid.UUID `json:"convention_id"`
	Label        string    `json:"label"`
	AmountCents  int       `json:"amount_cents"`
	CurrencyCode string    `json:"currency_code"`
	SortOrder    int       `json:"sort_order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PriceDiscount lowers a tier's price for purchases before CutoffDate.
type PriceDiscount struct {
	ID                    uuid.UUID `json:"id"`
	ConventionID          uuid.UUID `json:"convention_id"`
	PriceTierID           uuid.UUID `json:"price_tier_id"`
	CutoffDate            time.Time `json:"cutoff_date"`
	DiscountedAmountCents int       `json:"discounted_amount_cents"`
	CreatedAt             time.Time `json:"created_at"`
}

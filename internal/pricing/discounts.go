package pricing

import (
	"github.com/google/uuid"

	"github.com/conventionhub/backend/internal/models"
)

// ReplaceResult reports the outcome of a discount bulk replace.
type ReplaceResult struct {
	Inserted  []models.PriceDiscount `json:"inserted"`
	Skipped   []models.PriceDiscount `json:"skipped"`
	Requested int                    `json:"requested"`
}

// filterDiscounts splits in into discounts whose tier belongs to the
// convention and those that must be skipped. Order is preserved.
func filterDiscounts(in []models.PriceDiscount, tiers map[uuid.UUID]bool) (keep, skip []models.PriceDiscount) {
	keep = []models.PriceDiscount{}
	skip = []models.PriceDiscount{}
	for _, d := range in {
		if tiers[d.PriceTierID] {
			keep = append(keep, d)
		} else {
			skip = append(skip, d)
		}
	}
	return keep, skip
}

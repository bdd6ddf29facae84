package pricing

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/apperrors"
	"github.com/conventionhub/backend/pkg/database"
)

// Repository handles price tiers and discounts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a pricing repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const tierColumns = `id, convention_id, label, amount_cents, currency_code, sort_order, created_at, updated_at`

func scanTier(row pgx.Row) (*models.PriceTier, error) {
	var t models.PriceTier
	err := row.Scan(&t.ID, &t.ConventionID, &t.Label, &t.AmountCents, &t.CurrencyCode, &t.SortOrder, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, apperrors.NotFound("price tier not found")
		}
		return nil, apperrors.Internal("price tier", err)
	}
	return &t, nil
}

// ListTiers returns a convention's tiers in display order.
func (r *Repository) ListTiers(ctx context.Context, conventionID uuid.UUID) ([]models.PriceTier, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+tierColumns+` FROM price_tiers
		WHERE convention_id = $1 ORDER BY sort_order, amount_cents`, conventionID)
	if err != nil {
		return nil, apperrors.Internal("list price tiers", err)
	}
	return collectTiers(rows)
}

func collectTiers(rows pgx.Rows) ([]models.PriceTier, error) {
	defer rows.Close()
	list := []models.PriceTier{}
	for rows.Next() {
		t, err := scanTier(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("list price tiers", err)
	}
	return list, nil
}

// CreateTier inserts a tier.
func (r *Repository) CreateTier(ctx context.Context, t *models.PriceTier) error {
	got, err := scanTier(r.pool.QueryRow(ctx, `INSERT INTO price_tiers (convention_id, label, amount_cents, currency_code, sort_order)
		VALUES ($1, $2, $3, $4, $5) RETURNING `+tierColumns, t.ConventionID, t.Label, t.AmountCents, t.CurrencyCode, t.SortOrder))
	if err != nil {
		return err
	}
	*t = *got
	return nil
}

// UpdateTier overwrites a tier of the convention.
func (r *Repository) UpdateTier(ctx context.Context, t *models.PriceTier) error {
	got, err := scanTier(r.pool.QueryRow(ctx, `UPDATE price_tiers
		SET label = $3, amount_cents = $4, currency_code = $5, sort_order = $6, updated_at = NOW()
		WHERE id = $1 AND convention_id = $2 RETURNING `+tierColumns,
		t.ID, t.ConventionID, t.Label, t.AmountCents, t.CurrencyCode, t.SortOrder))
	if err != nil {
		return err
	}
	*t = *got
	return nil
}

// DeleteTier removes a tier and, by cascade, its discounts.
func (r *Repository) DeleteTier(ctx context.Context, conventionID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM price_tiers WHERE id = $1 AND convention_id = $2`, id, conventionID)
	if err != nil {
		return apperrors.Internal("delete price tier", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("price tier not found")
	}
	return nil
}

// ListDiscounts returns a convention's discounts ordered by cutoff.
func (r *Repository) ListDiscounts(ctx context.Context, conventionID uuid.UUID) ([]models.PriceDiscount, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, convention_id, price_tier_id, cutoff_date, discounted_amount_cents, created_at
		FROM price_discounts WHERE convention_id = $1 ORDER BY cutoff_date, price_tier_id`, conventionID)
	if err != nil {
		return nil, apperrors.Internal("list discounts", err)
	}
	return collectDiscounts(rows)
}

func collectDiscounts(rows pgx.Rows) ([]models.PriceDiscount, error) {
	defer rows.Close()
	list := []models.PriceDiscount{}
	for rows.Next() {
		var d models.PriceDiscount
		if err := rows.Scan(&d.ID, &d.ConventionID, &d.PriceTierID, &d.CutoffDate, &d.DiscountedAmountCents, &d.CreatedAt); err != nil {
			return nil, apperrors.Internal("scan discount", err)
		}
		list = append(list, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("list discounts", err)
	}
	return list, nil
}

// ReplaceDiscounts deletes every discount of the convention and inserts the
// ones whose tier belongs to it, in one transaction. Others are returned as skipped.
func (r *Repository) ReplaceDiscounts(ctx context.Context, conventionID uuid.UUID, discounts []models.PriceDiscount) (*ReplaceResult, error) {
	res := &ReplaceResult{Requested: len(discounts)}
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM price_discounts WHERE convention_id = $1`, conventionID); err != nil {
			return apperrors.Internal("clear discounts", err)
		}
		rows, err := tx.Query(ctx, `SELECT id FROM price_tiers WHERE convention_id = $1`, conventionID)
		if err != nil {
			return apperrors.Internal("load tiers", err)
		}
		tiers := map[uuid.UUID]bool{}
		for rows.Next() {
			var id uuid.UUID
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return apperrors.Internal("scan tier", err)
			}
			tiers[id] = true
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return apperrors.Internal("load tiers", err)
		}

		keep, skip := filterDiscounts(discounts, tiers)
		for i := range keep {
			d := &keep[i]
			d.ConventionID = conventionID
			err := tx.QueryRow(ctx, `INSERT INTO price_discounts (convention_id, price_tier_id, cutoff_date, discounted_amount_cents)
				VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
				conventionID, d.PriceTierID, d.CutoffDate, d.DiscountedAmountCents).Scan(&d.ID, &d.CreatedAt)
			if err != nil {
				return apperrors.Internal("insert discount", err)
			}
		}
		res.Inserted, res.Skipped = keep, skip
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

package lookups

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/apperrors"
)

// Repository reads the seeded lookup tables.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a lookups repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Timezones returns zones ordered by offset then name.
func (r *Repository) Timezones(ctx context.Context) ([]models.Timezone, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, iana_name, label, utc_offset_minutes FROM timezones ORDER BY utc_offset_minutes, iana_name`)
	if err != nil {
		return nil, apperrors.Internal("list timezones", err)
	}
	defer rows.Close()
	list := []models.Timezone{}
	for rows.Next() {
		var t models.Timezone
		if err := rows.Scan(&t.ID, &t.IANAName, &t.Label, &t.UTCOffsetMinutes); err != nil {
			return nil, apperrors.Internal("scan timezone", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// Countries returns countries ordered by name.
func (r *Repository) Countries(ctx context.Context) ([]models.Country, error) {
	rows, err := r.pool.Query(ctx, `SELECT code, name FROM countries ORDER BY name`)
	if err != nil {
		return nil, apperrors.Internal("list countries", err)
	}
	defer rows.Close()
	list := []models.Country{}
	for rows.Next() {
		var c models.Country
		if err := rows.Scan(&c.Code, &c.Name); err != nil {
			return nil, apperrors.Internal("scan country", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// States returns states, optionally for one country, ordered by name.
func (r *Repository) States(ctx context.Context, countryCode string) ([]models.State, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, country_code, code, name FROM states
		WHERE ($1 = '' OR country_code = $1) ORDER BY country_code, name`, countryCode)
	if err != nil {
		return nil, apperrors.Internal("list states", err)
	}
	defer rows.Close()
	list := []models.State{}
	for rows.Next() {
		var s models.State
		if err := rows.Scan(&s.ID, &s.CountryCode, &s.Code, &s.Name); err != nil {
			return nil, apperrors.Internal("scan state", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// Currencies returns currencies ordered by code.
func (r *Repository) Currencies(ctx context.Context) ([]models.Currency, error) {
	rows, err := r.pool.Query(ctx, `SELECT code, name, symbol FROM currencies ORDER BY code`)
	if err != nil {
		return nil, apperrors.Internal("list currencies", err)
	}
	defer rows.Close()
	list := []models.Currency{}
	for rows.Next() {
		var c models.Currency
		if err := rows.Scan(&c.Code, &c.Name, &c.Symbol); err != nil {
			return nil, apperrors.Internal("scan currency", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

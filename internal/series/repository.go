package series

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/apperrors"
	"github.com/conventionhub/backend/pkg/database"
)

// Repository handles convention series persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a series repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `id, organizer_user_id, name, description, logo_url, created_at, updated_at`

func scan(row pgx.Row) (*models.ConventionSeries, error) {
	var s models.ConventionSeries
	err := row.Scan(&s.ID, &s.OrganizerUserID, &s.Name, &s.Description, &s.LogoURL, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, apperrors.NotFound("series not found")
		}
		if database.IsForeignKeyViolation(err) {
			return nil, apperrors.Invalid("organizer does not exist")
		}
		return nil, apperrors.Internal("load series", err)
	}
	return &s, nil
}

// Create inserts a series.
func (r *Repository) Create(ctx context.Context, s *models.ConventionSeries) error {
	got, err := scan(r.pool.QueryRow(ctx, `INSERT INTO convention_series (organizer_user_id, name, description, logo_url)
		VALUES ($1, $2, $3, $4) RETURNING `+columns, s.OrganizerUserID, s.Name, s.Description, s.LogoURL))
	if err != nil {
		return err
	}
	*s = *got
	return nil
}

// GetByID returns one series.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.ConventionSeries, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM convention_series WHERE id = $1`, id))
}

// ListByOrganizer returns series owned by organizerID, or all when organizerID is nil.
func (r *Repository) ListByOrganizer(ctx context.Context, organizerID *uuid.UUID) ([]models.ConventionSeries, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM convention_series
		WHERE ($1::uuid IS NULL OR organizer_user_id = $1) ORDER BY name`, organizerID)
	if err != nil {
		return nil, apperrors.Internal("list series", err)
	}
	defer rows.Close()
	list := []models.ConventionSeries{}
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("list series", err)
	}
	return list, nil
}

// Update writes name, description and logo.
func (r *Repository) Update(ctx context.Context, s *models.ConventionSeries) error {
	got, err := scan(r.pool.QueryRow(ctx, `UPDATE convention_series
		SET name = $2, description = $3, logo_url = $4, updated_at = NOW()
		WHERE id = $1 RETURNING `+columns, s.ID, s.Name, s.Description, s.LogoURL))
	if err != nil {
		return err
	}
	*s = *got
	return nil
}

// Delete removes a series. Its conventions keep existing and fall back to
// their creator as owner.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM convention_series WHERE id = $1`, id)
	if err != nil {
		return apperrors.Internal("delete series", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("series not found")
	}
	return nil
}

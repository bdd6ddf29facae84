package uploads

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/apperrors"
	"github.com/conventionhub/backend/pkg/database"
)

// Repository handles convention media rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a media repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns a convention's media in display order.
func (r *Repository) List(ctx context.Context, conventionID uuid.UUID) ([]models.ConventionMedia, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, convention_id, url, storage_key, media_type, caption, sort_order, created_at
		FROM convention_media WHERE convention_id = $1 ORDER BY sort_order, created_at`, conventionID)
	if err != nil {
		return nil, apperrors.Internal("list media", err)
	}
	defer rows.Close()
	list := []models.ConventionMedia{}
	for rows.Next() {
		var m models.ConventionMedia
		if err := rows.Scan(&m.ID, &m.ConventionID, &m.URL, &m.StorageKey, &m.MediaType, &m.Caption, &m.SortOrder, &m.CreatedAt); err != nil {
			return nil, apperrors.Internal("scan media", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// Create inserts a media row placed after the existing ones.
func (r *Repository) Create(ctx context.Context, m *models.ConventionMedia) error {
	err := r.pool.QueryRow(ctx, `INSERT INTO convention_media (convention_id, url, storage_key, media_type, caption, sort_order)
		VALUES ($1, $2, $3, $4, $5, (SELECT COALESCE(MAX(sort_order) + 1, 0) FROM convention_media WHERE convention_id = $1))
		RETURNING id, sort_order, created_at`,
		m.ConventionID, m.URL, m.StorageKey, m.MediaType, m.Caption).Scan(&m.ID, &m.SortOrder, &m.CreatedAt)
	if err != nil {
		return apperrors.Internal("create media", err)
	}
	return nil
}

// Delete removes a media row and returns it so the object can be deleted too.
func (r *Repository) Delete(ctx context.Context, conventionID, id uuid.UUID) (*models.ConventionMedia, error) {
	var m models.ConventionMedia
	err := r.pool.QueryRow(ctx, `DELETE FROM convention_media WHERE id = $1 AND convention_id = $2
		RETURNING id, convention_id, url, storage_key, media_type, caption, sort_order, created_at`, id, conventionID).
		Scan(&m.ID, &m.ConventionID, &m.URL, &m.StorageKey, &m.MediaType, &m.Caption, &m.SortOrder, &m.CreatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, apperrors.NotFound("media not found")
		}
		return nil, apperrors.Internal("delete media", err)
	}
	return &m, nil
}

package conventions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/apperrors"
	"github.com/conventionhub/backend/pkg/database"
)

const selectColumns = `c.id, c.series_id, c.created_by, COALESCE(s.organizer_user_id, c.created_by),
	c.name, c.slug, c.original_slug, c.status, c.description, c.start_date, c.end_date,
	c.city, c.state_code, c.country_code, c.timezone, c.currency_code, c.website_url,
	c.cover_image_url, c.deleted_at, c.created_at, c.updated_at`

const fromJoin = ` FROM conventions c LEFT JOIN convention_series s ON s.id = c.series_id`

// Repository handles convention persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a convention repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanConvention(row pgx.Row, c *models.Convention) error {
	return row.Scan(&c.ID, &c.SeriesID, &c.CreatedBy, &c.OwnerID,
		&c.Name, &c.Slug, &c.OriginalSlug, &c.Status, &c.Description, &c.StartDate, &c.EndDate,
		&c.City, &c.StateCode, &c.CountryCode, &c.Timezone, &c.CurrencyCode, &c.WebsiteURL,
		&c.CoverImageURL, &c.DeletedAt, &c.CreatedAt, &c.UpdatedAt)
}

func mapWriteErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if database.IsUniqueViolation(err) {
		return apperrors.Conflict("slug is already in use")
	}
	if database.IsForeignKeyViolation(err) {
		return apperrors.Invalid("referenced record does not exist")
	}
	return apperrors.Internal("failed to "+what, err)
}

func mapReadErr(err error) error {
	if database.IsNoRows(err) {
		return apperrors.NotFound("convention not found")
	}
	return apperrors.Internal("failed to load convention", err)
}

const insertConvention = `INSERT INTO conventions (series_id, created_by, name, slug, status, description,
		start_date, end_date, city, state_code, country_code, timezone, currency_code, website_url, cover_image_url)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	RETURNING id, created_at, updated_at`

func insertArgs(c *models.Convention) []interface{} {
	return []interface{}{c.SeriesID, c.CreatedBy, c.Name, c.Slug, c.Status, c.Description,
		c.StartDate, c.EndDate, c.City, c.StateCode, c.CountryCode, c.Timezone, c.CurrencyCode,
		c.WebsiteURL, c.CoverImageURL}
}

// Create inserts a convention. A concurrent slug collision surfaces as Conflict.
func (r *Repository) Create(ctx context.Context, c *models.Convention) error {
	err := r.pool.QueryRow(ctx, insertConvention, insertArgs(c)...).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return mapWriteErr(err, "create convention")
	}
	return r.fillOwner(ctx, c)
}

func (r *Repository) fillOwner(ctx context.Context, c *models.Convention) error {
	c.OwnerID = c.CreatedBy
	if c.SeriesID == nil {
		return nil
	}
	owner, err := r.SeriesOwner(ctx, *c.SeriesID)
	if err != nil {
		return err
	}
	c.OwnerID = owner
	return nil
}

// CreateCopy inserts c and copies venues, hotels, price tiers and the
// schedule of sourceID into it, in one transaction.
func (r *Repository) CreateCopy(ctx context.Context, c *models.Convention, sourceID uuid.UUID) error {
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, insertConvention, insertArgs(c)...).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return err
		}
		stmts := []string{
			`INSERT INTO venues (convention_id, name, address, city, country_code, website_url, latitude, longitude, is_primary_venue)
				SELECT $1, name, address, city, country_code, website_url, latitude, longitude, is_primary_venue
				FROM venues WHERE convention_id = $2`,
			`INSERT INTO hotels (convention_id, name, address, city, country_code, website_url, booking_url, group_rate_code, group_rate_cutoff, is_primary_hotel)
				SELECT $1, name, address, city, country_code, website_url, booking_url, group_rate_code, group_rate_cutoff, is_primary_hotel
				FROM hotels WHERE convention_id = $2`,
			`INSERT INTO price_tiers (convention_id, label, amount_cents, currency_code, sort_order)
				SELECT $1, label, amount_cents, currency_code, sort_order FROM price_tiers WHERE convention_id = $2`,
			`INSERT INTO schedule_days (convention_id, day_offset, label)
				SELECT $1, day_offset, label FROM schedule_days WHERE convention_id = $2`,
			`INSERT INTO convention_schedule_items (convention_id, schedule_day_id, title, description, location, start_time_minutes, duration_minutes)
				SELECT $1, nd.id, i.title, i.description, i.location, i.start_time_minutes, i.duration_minutes
				FROM convention_schedule_items i
				JOIN schedule_days od ON od.id = i.schedule_day_id
				JOIN schedule_days nd ON nd.convention_id = $1 AND nd.day_offset = od.day_offset
				WHERE i.convention_id = $2`,
		}
		for _, q := range stmts {
			if _, err := tx.Exec(ctx, q, c.ID, sourceID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return mapWriteErr(err, "duplicate convention")
	}
	return r.fillOwner(ctx, c)
}

// GetByID returns a convention by ID, including soft-deleted ones.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Convention, error) {
	var c models.Convention
	if err := scanConvention(r.pool.QueryRow(ctx, `SELECT `+selectColumns+fromJoin+` WHERE c.id = $1`, id), &c); err != nil {
		return nil, mapReadErr(err)
	}
	return &c, nil
}

// GetBySlug returns the active convention holding slug.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*models.Convention, error) {
	var c models.Convention
	q := `SELECT ` + selectColumns + fromJoin + ` WHERE c.slug = $1 AND c.deleted_at IS NULL`
	if err := scanConvention(r.pool.QueryRow(ctx, q, slug), &c); err != nil {
		return nil, mapReadErr(err)
	}
	return &c, nil
}

// FindActiveBySlug returns the active convention holding slug other than excludeID, or nil.
func (r *Repository) FindActiveBySlug(ctx context.Context, slug string, excludeID *uuid.UUID) (*models.Convention, error) {
	q := `SELECT ` + selectColumns + fromJoin + ` WHERE c.slug = $1 AND c.deleted_at IS NULL AND ($2::uuid IS NULL OR c.id <> $2)`
	var c models.Convention
	err := scanConvention(r.pool.QueryRow(ctx, q, slug, excludeID), &c)
	if database.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Internal("failed to check slug", err)
	}
	return &c, nil
}

// ListByIDs returns the conventions among ids that exist.
func (r *Repository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Convention, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+selectColumns+fromJoin+` WHERE c.id = ANY($1)`, ids)
	if err != nil {
		return nil, apperrors.Internal("failed to load conventions", err)
	}
	defer rows.Close()
	return collect(rows)
}

func collect(rows pgx.Rows) ([]models.Convention, error) {
	list := []models.Convention{}
	for rows.Next() {
		var c models.Convention
		if err := scanConvention(rows, &c); err != nil {
			return nil, apperrors.Internal("failed to read conventions", err)
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("failed to read conventions", err)
	}
	return list, nil
}

// whereClause builds the WHERE for f. Arguments are numbered from 1.
func whereClause(f ListFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	switch {
	case f.OnlyDeleted:
		conds = append(conds, "c.deleted_at IS NOT NULL")
	case !f.IncludeDeleted:
		conds = append(conds, "c.deleted_at IS NULL")
	}
	if f.Status != nil {
		add("c.status = $%d", *f.Status)
	}
	if f.OwnerID != nil {
		add("COALESCE(s.organizer_user_id, c.created_by) = $%d", *f.OwnerID)
	}
	if f.SeriesID != nil {
		add("c.series_id = $%d", *f.SeriesID)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		add("(c.name ILIKE $%[1]d OR c.city ILIKE $%[1]d)", "%"+q+"%")
	}
	if f.CountryCode != "" {
		add("c.country_code = $%d", strings.ToUpper(f.CountryCode))
	}
	if f.UpcomingAfter != nil {
		add("COALESCE(c.end_date, c.start_date) >= $%d", *f.UpcomingAfter)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns a page of conventions matching f and the total count.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]models.Convention, int, error) {
	where, args := whereClause(f)
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+fromJoin+where, args...).Scan(&total); err != nil {
		return nil, 0, apperrors.Internal("failed to count conventions", err)
	}
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	args = append(args, limit, f.Offset)
	q := `SELECT ` + selectColumns + fromJoin + where +
		fmt.Sprintf(` ORDER BY c.start_date ASC NULLS LAST, c.created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, apperrors.Internal("failed to list conventions", err)
	}
	defer rows.Close()
	list, err := collect(rows)
	return list, total, err
}

// Update writes the editable fields of c.
func (r *Repository) Update(ctx context.Context, c *models.Convention) error {
	const q = `UPDATE conventions SET series_id = $1, name = $2, slug = $3, description = $4,
			start_date = $5, end_date = $6, city = $7, state_code = $8, country_code = $9, timezone = $10,
			currency_code = $11, website_url = $12, cover_image_url = $13, updated_at = NOW()
		WHERE id = $14 AND deleted_at IS NULL
		RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, c.SeriesID, c.Name, c.Slug, c.Description, c.StartDate, c.EndDate,
		c.City, c.StateCode, c.CountryCode, c.Timezone, c.CurrencyCode, c.WebsiteURL, c.CoverImageURL, c.ID).
		Scan(&c.UpdatedAt)
	if database.IsNoRows(err) {
		return apperrors.NotFound("convention not found")
	}
	if err != nil {
		return mapWriteErr(err, "update convention")
	}
	return r.fillOwner(ctx, c)
}

// SetStatus updates the status of an active convention.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status models.ConventionStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE conventions SET status = $1, updated_at = NOW() WHERE id = $2 AND deleted_at IS NULL`, status, id)
	if err != nil {
		return apperrors.Internal("failed to update status", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("convention not found")
	}
	return nil
}

// BulkSetStatus updates the status of every active convention in ids.
func (r *Repository) BulkSetStatus(ctx context.Context, ids []uuid.UUID, status models.ConventionStatus) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE conventions SET status = $1, updated_at = NOW() WHERE id = ANY($2) AND deleted_at IS NULL`, status, ids)
	if err != nil {
		return 0, apperrors.Internal("failed to update status", err)
	}
	return tag.RowsAffected(), nil
}

// SoftDelete marks a convention deleted, renaming its slug and keeping the original.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID, deletedSlug, originalSlug string, at time.Time) error {
	const q = `UPDATE conventions SET slug = $1, original_slug = $2, deleted_at = $3, updated_at = NOW()
		WHERE id = $4 AND deleted_at IS NULL`
	tag, err := r.pool.Exec(ctx, q, deletedSlug, originalSlug, at, id)
	if err != nil {
		return apperrors.Internal("failed to delete convention", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("convention not found")
	}
	return nil
}

// BulkSoftDelete soft-deletes every active convention in ids in one transaction.
func (r *Repository) BulkSoftDelete(ctx context.Context, ids []uuid.UUID, rename func(slug string) string, at time.Time) (int64, error) {
	var affected int64
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT id, slug FROM conventions WHERE id = ANY($1) AND deleted_at IS NULL FOR UPDATE`, ids)
		if err != nil {
			return err
		}
		type target struct {
			id   uuid.UUID
			slug string
		}
		var targets []target
		for rows.Next() {
			var t target
			if err := rows.Scan(&t.id, &t.slug); err != nil {
				rows.Close()
				return err
			}
			targets = append(targets, t)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		for _, t := range targets {
			const q = `UPDATE conventions SET slug = $1, original_slug = $2, deleted_at = $3, updated_at = NOW() WHERE id = $4`
			tag, err := tx.Exec(ctx, q, rename(t.slug), t.slug, at, t.id)
			if err != nil {
				return err
			}
			affected += tag.RowsAffected()
		}
		return nil
	})
	if err != nil {
		return 0, apperrors.Internal("failed to delete conventions", err)
	}
	return affected, nil
}

// Restore clears deleted_at and sets slug. A concurrent claim of slug surfaces as Conflict.
func (r *Repository) Restore(ctx context.Context, id uuid.UUID, slug string) error {
	const q = `UPDATE conventions SET slug = $1, original_slug = NULL, deleted_at = NULL, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NOT NULL`
	tag, err := r.pool.Exec(ctx, q, slug, id)
	if err != nil {
		return mapWriteErr(err, "restore convention")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("convention not found")
	}
	return nil
}

// ExpirePublished moves PUBLISHED conventions that ended before now to PAST.
func (r *Repository) ExpirePublished(ctx context.Context, now time.Time) (int64, error) {
	const q = `UPDATE conventions SET status = 'PAST', updated_at = NOW()
		WHERE status = 'PUBLISHED' AND deleted_at IS NULL AND end_date IS NOT NULL AND end_date < $1`
	tag, err := r.pool.Exec(ctx, q, now)
	if err != nil {
		return 0, apperrors.Internal("failed to expire conventions", err)
	}
	return tag.RowsAffected(), nil
}

// SeriesOwner returns the organizer that owns a series.
func (r *Repository) SeriesOwner(ctx context.Context, seriesID uuid.UUID) (uuid.UUID, error) {
	var owner uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT organizer_user_id FROM convention_series WHERE id = $1`, seriesID).Scan(&owner)
	if database.IsNoRows(err) {
		return uuid.Nil, apperrors.NotFound("series not found")
	}
	if err != nil {
		return uuid.Nil, apperrors.Internal("failed to load series", err)
	}
	return owner, nil
}

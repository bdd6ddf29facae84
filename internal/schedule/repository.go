package schedule

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/apperrors"
	"github.com/conventionhub/backend/pkg/database"
)

// Repository handles schedule days and items.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a schedule repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func dayErr(err error) error {
	switch {
	case database.IsNoRows(err):
		return apperrors.NotFound("schedule day not found")
	case database.IsUniqueViolation(err):
		return apperrors.Conflict("a schedule day with this offset already exists")
	}
	return apperrors.Internal("schedule day", err)
}

// Days returns the convention's days with their items.
func (r *Repository) Days(ctx context.Context, conventionID uuid.UUID) ([]models.ScheduleDay, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, convention_id, day_offset, label FROM schedule_days WHERE convention_id = $1`, conventionID)
	if err != nil {
		return nil, apperrors.Internal("list schedule days", err)
	}
	var days []models.ScheduleDay
	for rows.Next() {
		var d models.ScheduleDay
		if err := rows.Scan(&d.ID, &d.ConventionID, &d.DayOffset, &d.Label); err != nil {
			rows.Close()
			return nil, apperrors.Internal("scan schedule day", err)
		}
		days = append(days, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("list schedule days", err)
	}

	rows, err = r.pool.Query(ctx, `SELECT `+itemColumns+` FROM convention_schedule_items WHERE convention_id = $1`, conventionID)
	if err != nil {
		return nil, apperrors.Internal("list schedule items", err)
	}
	defer rows.Close()
	var items []models.ConventionScheduleItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, apperrors.Internal("scan schedule item", err)
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("list schedule items", err)
	}
	return assemble(days, items), nil
}

// CreateDay inserts a day.
func (r *Repository) CreateDay(ctx context.Context, d *models.ScheduleDay) error {
	err := r.pool.QueryRow(ctx, `INSERT INTO schedule_days (convention_id, day_offset, label)
		VALUES ($1, $2, $3) RETURNING id`, d.ConventionID, d.DayOffset, d.Label).Scan(&d.ID)
	if err != nil {
		return dayErr(err)
	}
	d.Items = []models.ConventionScheduleItem{}
	return nil
}

// UpdateDay changes a day's offset and label.
func (r *Repository) UpdateDay(ctx context.Context, d *models.ScheduleDay) error {
	err := r.pool.QueryRow(ctx, `UPDATE schedule_days SET day_offset = $3, label = $4
		WHERE id = $1 AND convention_id = $2 RETURNING id`, d.ID, d.ConventionID, d.DayOffset, d.Label).Scan(&d.ID)
	if err != nil {
		return dayErr(err)
	}
	return nil
}

// DeleteDay removes a day and its items.
func (r *Repository) DeleteDay(ctx context.Context, conventionID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM schedule_days WHERE id = $1 AND convention_id = $2`, id, conventionID)
	if err != nil {
		return apperrors.Internal("delete schedule day", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("schedule day not found")
	}
	return nil
}

const itemColumns = `id, convention_id, schedule_day_id, title, description, location,
	start_time_minutes, duration_minutes, created_at, updated_at`

func scanItem(row pgx.Row) (*models.ConventionScheduleItem, error) {
	var it models.ConventionScheduleItem
	err := row.Scan(&it.ID, &it.ConventionID, &it.ScheduleDayID, &it.Title, &it.Description, &it.Location,
		&it.StartTimeMinutes, &it.DurationMinutes, &it.CreatedAt, &it.UpdatedAt)
	return &it, err
}

// CreateItem inserts an item. The day must belong to the same convention.
func (r *Repository) CreateItem(ctx context.Context, it *models.ConventionScheduleItem) error {
	got, err := scanItem(r.pool.QueryRow(ctx, `INSERT INTO convention_schedule_items
		(convention_id, schedule_day_id, title, description, location, start_time_minutes, duration_minutes)
		SELECT $1, $2, $3, $4, $5, $6, $7
		WHERE EXISTS (SELECT 1 FROM schedule_days WHERE id = $2 AND convention_id = $1)
		RETURNING `+itemColumns,
		it.ConventionID, it.ScheduleDayID, it.Title, it.Description, it.Location, it.StartTimeMinutes, it.DurationMinutes))
	if err != nil {
		if database.IsNoRows(err) {
			return apperrors.Validation(map[string]string{"schedule_day_id": "is not a day of this convention"})
		}
		return apperrors.Internal("create schedule item", err)
	}
	*it = *got
	return nil
}

// UpdateItem overwrites an item. Moving it to another day requires that day
// to belong to the same convention.
func (r *Repository) UpdateItem(ctx context.Context, it *models.ConventionScheduleItem) error {
	got, err := scanItem(r.pool.QueryRow(ctx, `UPDATE convention_schedule_items SET
		schedule_day_id = $3, title = $4, description = $5, location = $6,
		start_time_minutes = $7, duration_minutes = $8, updated_at = NOW()
		WHERE id = $1 AND convention_id = $2
		AND EXISTS (SELECT 1 FROM schedule_days WHERE id = $3 AND convention_id = $2)
		RETURNING `+itemColumns,
		it.ID, it.ConventionID, it.ScheduleDayID, it.Title, it.Description, it.Location, it.StartTimeMinutes, it.DurationMinutes))
	if err != nil {
		if database.IsNoRows(err) {
			return apperrors.NotFound("schedule item not found")
		}
		return apperrors.Internal("update schedule item", err)
	}
	*it = *got
	return nil
}

// DeleteItem removes an item.
func (r *Repository) DeleteItem(ctx context.Context, conventionID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM convention_schedule_items WHERE id = $1 AND convention_id = $2`, id, conventionID)
	if err != nil {
		return apperrors.Internal("delete schedule item", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("schedule item not found")
	}
	return nil
}

package roleapps

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/apperrors"
	"github.com/conventionhub/backend/pkg/database"
)

const selectApplication = `SELECT a.id, a.user_id, a.requested_role, a.status, a.message, a.reviewed_by,
	a.reviewed_at, a.review_note, a.created_at, a.updated_at, u.email, u.name
	FROM role_applications a JOIN users u ON u.id = a.user_id`

// Repository handles role application persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a role application repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanApplication(row pgx.Row, a *models.RoleApplication) error {
	return row.Scan(&a.ID, &a.UserID, &a.RequestedRole, &a.Status, &a.Message, &a.ReviewedBy,
		&a.ReviewedAt, &a.ReviewNote, &a.CreatedAt, &a.UpdatedAt, &a.UserEmail, &a.UserName)
}

// Create inserts a PENDING application.
func (r *Repository) Create(ctx context.Context, a *models.RoleApplication) error {
	const q = `INSERT INTO role_applications (user_id, requested_role, status, message)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at`
	if err := r.pool.QueryRow(ctx, q, a.UserID, a.RequestedRole, a.Status, a.Message).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return apperrors.Internal("failed to create application", err)
	}
	return nil
}

// GetByID returns an application by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.RoleApplication, error) {
	var a models.RoleApplication
	err := scanApplication(r.pool.QueryRow(ctx, selectApplication+` WHERE a.id = $1`, id), &a)
	if database.IsNoRows(err) {
		return nil, apperrors.NotFound("application not found")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load application", err)
	}
	return &a, nil
}

// HasActive reports whether the user has a PENDING or APPROVED application for requestedRole.
func (r *Repository) HasActive(ctx context.Context, userID uuid.UUID, requestedRole string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM role_applications
		WHERE user_id = $1 AND requested_role = $2 AND status IN ('PENDING', 'APPROVED'))`
	var exists bool
	if err := r.pool.QueryRow(ctx, q, userID, requestedRole).Scan(&exists); err != nil {
		return false, apperrors.Internal("failed to check applications", err)
	}
	return exists, nil
}

func (r *Repository) query(ctx context.Context, q string, args ...interface{}) ([]models.RoleApplication, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, apperrors.Internal("failed to list applications", err)
	}
	defer rows.Close()
	list := []models.RoleApplication{}
	for rows.Next() {
		var a models.RoleApplication
		if err := scanApplication(rows, &a); err != nil {
			return nil, apperrors.Internal("failed to read applications", err)
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("failed to read applications", err)
	}
	return list, nil
}

// ListByUser returns a user's applications, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.RoleApplication, error) {
	return r.query(ctx, selectApplication+` WHERE a.user_id = $1 ORDER BY a.created_at DESC`, userID)
}

// List returns applications filtered by status, oldest pending first.
func (r *Repository) List(ctx context.Context, status *models.ApplicationStatus, limit, offset int) ([]models.RoleApplication, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var st *string
	if status != nil {
		v := string(*status)
		st = &v
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM role_applications WHERE ($1::text IS NULL OR status = $1)`, st).Scan(&total); err != nil {
		return nil, 0, apperrors.Internal("failed to count applications", err)
	}
	list, err := r.query(ctx, selectApplication+` WHERE ($1::text IS NULL OR a.status = $1)
		ORDER BY a.created_at ASC LIMIT $2 OFFSET $3`, st, limit, offset)
	return list, total, err
}

// Approve marks a PENDING application APPROVED and appends role to the
// user's roles if missing, in one transaction.
func (r *Repository) Approve(ctx context.Context, id, reviewerID uuid.UUID, note string, role models.Role, at time.Time) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var userID uuid.UUID
		const mark = `UPDATE role_applications
			SET status = 'APPROVED', reviewed_by = $2, reviewed_at = $3, review_note = $4, updated_at = NOW()
			WHERE id = $1 AND status = 'PENDING'
			RETURNING user_id`
		err := tx.QueryRow(ctx, mark, id, reviewerID, at, note).Scan(&userID)
		if database.IsNoRows(err) {
			return apperrors.Conflict("application was already processed")
		}
		if err != nil {
			return apperrors.Internal("failed to approve application", err)
		}
		const grant = `UPDATE users SET roles = array_append(roles, $1::text), updated_at = NOW()
			WHERE id = $2 AND NOT ($1::text = ANY(roles))`
		if _, err := tx.Exec(ctx, grant, string(role), userID); err != nil {
			return apperrors.Internal("failed to grant role", err)
		}
		return nil
	})
}

// Reject marks a PENDING application REJECTED.
func (r *Repository) Reject(ctx context.Context, id, reviewerID uuid.UUID, note string, at time.Time) error {
	const q = `UPDATE role_applications
		SET status = 'REJECTED', reviewed_by = $2, reviewed_at = $3, review_note = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'`
	tag, err := r.pool.Exec(ctx, q, id, reviewerID, at, note)
	if err != nil {
		return apperrors.Internal("failed to reject application", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.Conflict("application was already processed")
	}
	return nil
}

// GetUser loads the applicant with its current role set.
func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	var roles []string
	err := r.pool.QueryRow(ctx, `SELECT id, email, name, roles FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.Name, &roles)
	if database.IsNoRows(err) {
		return nil, apperrors.NotFound("user not found")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load user", err)
	}
	u.Roles = make([]models.Role, len(roles))
	for i, role := range roles {
		u.Roles[i] = models.Role(role)
	}
	return &u, nil
}

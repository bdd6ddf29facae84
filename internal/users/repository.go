package users

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/apperrors"
	"github.com/conventionhub/backend/pkg/database"
)

// Repository handles user persistence for profile and admin endpoints.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a users repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectUser = `SELECT id, email, password_hash, name, image_url, roles, email_verified_at, created_at, updated_at FROM users`

func scan(row pgx.Row) (*models.User, error) {
	var u models.User
	var roles []string
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.ImageURL, &roles,
		&u.EmailVerifiedAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Roles = toRoles(roles)
	return &u, nil
}

func toRoles(ss []string) []models.Role {
	out := make([]models.Role, len(ss))
	for i, s := range ss {
		out[i] = models.Role(s)
	}
	return out
}

func one(row pgx.Row) (*models.User, error) {
	u, err := scan(row)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, apperrors.Internal("load user", err)
	}
	return u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return one(r.pool.QueryRow(ctx, selectUser+` WHERE id = $1`, id))
}

// UpdateProfile sets the non-nil profile fields.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, p Profile) (*models.User, error) {
	return one(r.pool.QueryRow(ctx, `UPDATE users SET
		name = COALESCE($2, name),
		image_url = CASE WHEN $3::text IS NULL THEN image_url ELSE NULLIF($3, '') END,
		updated_at = NOW()
		WHERE id = $1
		RETURNING id, email, password_hash, name, image_url, roles, email_verified_at, created_at, updated_at`,
		id, p.Name, p.ImageURL))
}

// List returns users matching q on email or name, newest first.
func (r *Repository) List(ctx context.Context, q string, limit, offset int) ([]models.User, int, error) {
	pattern := ""
	if q = strings.TrimSpace(q); q != "" {
		pattern = "%" + q + "%"
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users
		WHERE ($1 = '' OR email ILIKE $1 OR name ILIKE $1)`, pattern).Scan(&total); err != nil {
		return nil, 0, apperrors.Internal("count users", err)
	}
	rows, err := r.pool.Query(ctx, selectUser+` WHERE ($1 = '' OR email ILIKE $1 OR name ILIKE $1)
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, pattern, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("list users", err)
	}
	defer rows.Close()
	var list []models.User
	for rows.Next() {
		u, err := scan(rows)
		if err != nil {
			return nil, 0, apperrors.Internal("scan user", err)
		}
		list = append(list, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperrors.Internal("list users", err)
	}
	return list, total, nil
}

// SetRoles replaces the user's role set.
func (r *Repository) SetRoles(ctx context.Context, id uuid.UUID, roles []models.Role) (*models.User, error) {
	ss := make([]string, len(roles))
	for i, role := range roles {
		ss[i] = string(role)
	}
	return one(r.pool.QueryRow(ctx, `UPDATE users SET roles = $2, updated_at = NOW() WHERE id = $1
		RETURNING id, email, password_hash, name, image_url, roles, email_verified_at, created_at, updated_at`, id, ss))
}

// Delete removes a user. Owned series and conventions cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return apperrors.Internal("delete user", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("user not found")
	}
	return nil
}

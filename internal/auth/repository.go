package auth

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

// Repository handles user and verification token persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectUser = `SELECT id, email, password_hash, name, image_url, roles, email_verified_at, created_at, updated_at FROM users`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var roles []string
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.ImageURL, &roles,
		&u.EmailVerifiedAt, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if database.IsNoRows(err) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, apperrors.Internal("load user", err)
	}
	u.Roles = make([]models.Role, len(roles))
	for i, r := range roles {
		u.Roles[i] = models.Role(r)
	}
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, selectUser+` WHERE id = $1`, id))
}

// GetByEmail returns a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, selectUser+` WHERE email = $1`, email))
}

// Create inserts a new user with the USER role.
func (r *Repository) Create(ctx context.Context, email, passwordHash, name string) (*models.User, error) {
	const q = `INSERT INTO users (email, password_hash, name, roles)
		VALUES ($1, $2, $3, ARRAY['USER'])
		RETURNING id, email, password_hash, name, image_url, roles, email_verified_at, created_at, updated_at`
	u, err := scanUser(r.pool.QueryRow(ctx, q, email, passwordHash, name))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("email already registered")
		}
		return nil, err
	}
	return u, nil
}

// CreateToken stores a single-use token.
func (r *Repository) CreateToken(ctx context.Context, t *models.VerificationToken) error {
	const q = `INSERT INTO verification_tokens (identifier, token, purpose, expires_at)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	if err := r.pool.QueryRow(ctx, q, t.Identifier, t.Token, t.Purpose, t.ExpiresAt).Scan(&t.ID, &t.CreatedAt); err != nil {
		return apperrors.Internal("create token", err)
	}
	return nil
}

// consume marks an unused, unexpired token used and returns its identifier.
func consume(ctx context.Context, tx pgx.Tx, token, purpose string, now time.Time) (string, error) {
	var identifier string
	err := tx.QueryRow(ctx, `UPDATE verification_tokens SET used_at = $3
		WHERE token = $1 AND purpose = $2 AND used_at IS NULL AND expires_at > $3
		RETURNING identifier`, token, purpose, now).Scan(&identifier)
	if err != nil {
		if database.IsNoRows(err) {
			return "", apperrors.Invalid("invalid or expired token")
		}
		return "", apperrors.Internal("consume token", err)
	}
	return identifier, nil
}

// ResetPassword consumes a password reset token and sets the new hash in one transaction.
func (r *Repository) ResetPassword(ctx context.Context, token, passwordHash string, now time.Time) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		email, err := consume(ctx, tx, token, models.TokenPurposePasswordReset, now)
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE email = $2`, passwordHash, email)
		if err != nil {
			return apperrors.Internal("update password", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NotFound("user not found")
		}
		return nil
	})
}

// VerifyEmail consumes a verification token and marks the address verified.
func (r *Repository) VerifyEmail(ctx context.Context, token string, now time.Time) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		email, err := consume(ctx, tx, token, models.TokenPurposeEmailVerification, now)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE users SET email_verified_at = COALESCE(email_verified_at, $1), updated_at = NOW()
			WHERE email = $2`, now, email)
		if err != nil {
			return apperrors.Internal("verify email", err)
		}
		return nil
	})
}

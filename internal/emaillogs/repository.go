package emaillogs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/apperrors"
)

// Filter narrows an admin listing.
type Filter struct {
	Status    string
	EmailType string
	Recipient string
	Limit     int
	Offset    int
}

// Repository handles email_logs persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an email logs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create records an email as pending before it is handed to the provider.
func (r *Repository) Create(ctx context.Context, el *models.EmailLog) error {
	if el.Status == "" {
		el.Status = models.EmailLogStatusPending
	}
	return r.pool.QueryRow(ctx, `INSERT INTO email_logs (user_id, email_type, recipient_email, subject, status)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5) RETURNING id, created_at`,
		el.UserID, el.EmailType, el.RecipientEmail, el.Subject, el.Status).Scan(&el.ID, &el.CreatedAt)
}

// MarkSent records delivery.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE email_logs SET status = $2, sent_at = $3, error_message = NULL WHERE id = $1`,
		id, models.EmailLogStatusSent, at)
	return err
}

// MarkFailed records the last delivery error.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := r.pool.Exec(ctx, `UPDATE email_logs SET status = $2, error_message = $3 WHERE id = $1`,
		id, models.EmailLogStatusFailed, reason)
	return err
}

const filterWhere = ` WHERE ($1 = '' OR status = $1)
	AND ($2 = '' OR email_type = $2)
	AND ($3 = '' OR recipient_email ILIKE '%' || $3 || '%')`

// List returns email logs newest first.
func (r *Repository) List(ctx context.Context, f Filter) ([]models.EmailLog, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM email_logs`+filterWhere,
		f.Status, f.EmailType, f.Recipient).Scan(&total); err != nil {
		return nil, 0, apperrors.Internal("count email logs", err)
	}
	rows, err := r.pool.Query(ctx, `SELECT id, user_id, email_type, recipient_email, subject, status, sent_at, error_message, created_at
		FROM email_logs`+filterWhere+` ORDER BY created_at DESC LIMIT $4 OFFSET $5`,
		f.Status, f.EmailType, f.Recipient, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, apperrors.Internal("list email logs", err)
	}
	defer rows.Close()
	list := []models.EmailLog{}
	for rows.Next() {
		var el models.EmailLog
		var subject, errMsg *string
		if err := rows.Scan(&el.ID, &el.UserID, &el.EmailType, &el.RecipientEmail, &subject, &el.Status, &el.SentAt, &errMsg, &el.CreatedAt); err != nil {
			return nil, 0, apperrors.Internal("scan email log", err)
		}
		if subject != nil {
			el.Subject = *subject
		}
		if errMsg != nil {
			el.ErrorMessage = *errMsg
		}
		list = append(list, el)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperrors.Internal("list email logs", err)
	}
	return list, total, nil
}

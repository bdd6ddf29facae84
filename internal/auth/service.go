package auth

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conventionhub/backend/internal/access"
	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/apperrors"
	"github.com/conventionhub/backend/pkg/queue"
	"github.com/conventionhub/backend/pkg/utils"
)

const (
	// ResetTokenTTL bounds password reset links.
	ResetTokenTTL = time.Hour
	// VerifyTokenTTL bounds email verification links.
	VerifyTokenTTL = 24 * time.Hour
)

// Store is the persistence auth needs.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, email, passwordHash, name string) (*models.User, error)
	CreateToken(ctx context.Context, t *models.VerificationToken) error
	ResetPassword(ctx context.Context, token, passwordHash string, now time.Time) error
	VerifyEmail(ctx context.Context, token string, now time.Time) error
}

// Service implements registration, login and token flows.
type Service struct {
	store   Store
	jwt     *JWTService
	emails  queue.Publisher
	baseURL string
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates the auth service. emails may be nil.
func NewService(store Store, jwt *JWTService, emails queue.Publisher, appBaseURL string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, jwt: jwt, emails: emails, baseURL: appBaseURL, logger: logger, now: time.Now}
}

// Result is a user plus a fresh session token.
type Result struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) issue(u *models.User) (*Result, error) {
	token, err := s.jwt.Generate(u)
	if err != nil {
		return nil, apperrors.Internal("failed to generate token", err)
	}
	return &Result{Token: token, User: u.ToPublic()}, nil
}

// Register creates a USER account and sends a verification email.
func (s *Service) Register(ctx context.Context, email, password, name string) (*Result, error) {
	email = normalizeEmail(email)
	if _, err := s.store.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.Conflict("email already registered")
	} else if !apperrors.Is(err, apperrors.KindNotFound) {
		return nil, err
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, apperrors.Internal("failed to hash password", err)
	}
	u, err := s.store.Create(ctx, email, hash, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	s.sendToken(ctx, u, models.TokenPurposeEmailVerification)
	return s.issue(u)
}

// Login checks credentials. Unknown email and wrong password look the same.
func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	u, err := s.store.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			return nil, apperrors.Unauthenticated("invalid email or password")
		}
		return nil, err
	}
	if !utils.CheckPassword(password, u.PasswordHash) {
		return nil, apperrors.Unauthenticated("invalid email or password")
	}
	return s.issue(u)
}

// Refresh reissues the session token with the user's current role set.
func (s *Service) Refresh(ctx context.Context, sess *access.Session) (*Result, error) {
	u, err := s.Me(ctx, sess)
	if err != nil {
		return nil, err
	}
	return s.issue(u)
}

// Me returns the session user.
func (s *Service) Me(ctx context.Context, sess *access.Session) (*models.User, error) {
	if err := access.Authorize(sess, access.CapAuthenticated, nil); err != nil {
		return nil, err
	}
	u, err := s.store.GetByID(ctx, sess.UserID)
	if apperrors.Is(err, apperrors.KindNotFound) {
		return nil, apperrors.Unauthenticated("account no longer exists")
	}
	return u, err
}

// ForgotPassword sends a reset link when the address is known. It reports
// success either way.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.store.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			return nil
		}
		return err
	}
	s.sendToken(ctx, u, models.TokenPurposePasswordReset)
	return nil
}

// ResetPassword sets a new password using an emailed token.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return apperrors.Internal("failed to hash password", err)
	}
	return s.store.ResetPassword(ctx, token, hash, s.now())
}

// VerifyEmail marks the token's address verified.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	return s.store.VerifyEmail(ctx, token, s.now())
}

// ResendVerification sends a new verification link to the session user.
func (s *Service) ResendVerification(ctx context.Context, sess *access.Session) error {
	u, err := s.Me(ctx, sess)
	if err != nil {
		return err
	}
	if u.EmailVerifiedAt != nil {
		return apperrors.Conflict("email already verified")
	}
	s.sendToken(ctx, u, models.TokenPurposeEmailVerification)
	return nil
}

// sendToken stores a token and enqueues its email. Failures are logged only.
func (s *Service) sendToken(ctx context.Context, u *models.User, purpose string) {
	log := s.logger.With(zap.String("user_id", u.ID.String()), zap.String("purpose", purpose))
	if s.emails == nil {
		log.Warn("token email skipped: no queue configured")
		return
	}
	raw, err := utils.RandomToken(32)
	if err != nil {
		log.Error("generate token", zap.Error(err))
		return
	}
	ttl, emailType, key, path := VerifyTokenTTL, models.EmailTypeEmailVerification, "verify_url", "/verify-email"
	if purpose == models.TokenPurposePasswordReset {
		ttl, emailType, key, path = ResetTokenTTL, models.EmailTypePasswordReset, "reset_url", "/reset-password"
	}
	t := &models.VerificationToken{
		Identifier: u.Email,
		Token:      raw,
		Purpose:    purpose,
		ExpiresAt:  s.now().Add(ttl),
	}
	if err := s.store.CreateToken(ctx, t); err != nil {
		log.Error("store token", zap.Error(err))
		return
	}
	uid := u.ID
	err = s.emails.EnqueueEmail(ctx, queue.EmailPayload{
		EmailType:      emailType,
		UserID:         &uid,
		RecipientEmail: u.Email,
		RecipientName:  u.Name,
		Data:           map[string]string{key: s.baseURL + path + "?token=" + url.QueryEscape(raw)},
	})
	if err != nil {
		log.Error("enqueue token email", zap.Error(err))
	}
}

package roleapps

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conventionhub/backend/internal/access"
	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/internal/realtime"
	"github.com/conventionhub/backend/pkg/apperrors"
	"github.com/conventionhub/backend/pkg/queue"
)

// Store is the persistence the workflow needs.
type Store interface {
	Create(ctx context.Context, app *models.RoleApplication) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.RoleApplication, error)
	HasActive(ctx context.Context, userID uuid.UUID, requestedRole string) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.RoleApplication, error)
	List(ctx context.Context, status *models.ApplicationStatus, limit, offset int) ([]models.RoleApplication, int, error)
	// Approve marks the application APPROVED and grants role in one
	// transaction. The role is appended only if absent.
	Approve(ctx context.Context, id, reviewerID uuid.UUID, note string, role models.Role, at time.Time) error
	Reject(ctx context.Context, id, reviewerID uuid.UUID, note string, at time.Time) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service runs the role application workflow.
type Service struct {
	store   Store
	emails  queue.Publisher
	events  realtime.Publisher
	baseURL string
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates the workflow service. emails and events may be nil.
func NewService(store Store, emails queue.Publisher, events realtime.Publisher, appBaseURL string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, emails: emails, events: events, baseURL: appBaseURL, logger: logger, now: time.Now}
}

// ProcessedEvent is published when an admin approves or rejects an application.
type ProcessedEvent struct {
	ApplicationID uuid.UUID                `json:"application_id"`
	UserID        uuid.UUID                `json:"user_id"`
	RequestedRole string                   `json:"requested_role"`
	Status        models.ApplicationStatus `json:"status"`
}

// Apply creates a PENDING application unless the user already has a
// PENDING or APPROVED one for the same role.
func (s *Service) Apply(ctx context.Context, sess *access.Session, requestedRole, message string) (*models.RoleApplication, error) {
	if err := access.Authorize(sess, access.CapAuthenticated, nil); err != nil {
		return nil, err
	}
	role, err := MapRequestedRole(requestedRole)
	if err != nil {
		return nil, err
	}
	// Session roles may predate an admin change; the stored role set decides.
	user, err := s.store.GetUser(ctx, sess.UserID)
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			return nil, apperrors.Unauthenticated("user no longer exists")
		}
		return nil, err
	}
	if models.HasRole(user.Roles, role) {
		return nil, apperrors.Conflict("you already have this role")
	}
	active, err := s.store.HasActive(ctx, sess.UserID, string(role))
	if err != nil {
		return nil, err
	}
	if active {
		return nil, apperrors.Conflict("you already have a pending or approved application for this role")
	}
	app := &models.RoleApplication{
		UserID:        sess.UserID,
		RequestedRole: string(role),
		Status:        models.ApplicationPending,
		Message:       message,
	}
	if err := s.store.Create(ctx, app); err != nil {
		return nil, err
	}
	s.publish(ctx, realtime.TopicAdmin, realtime.EventRoleApplicationCreated, app)
	return app, nil
}

// Mine lists the session user's applications.
func (s *Service) Mine(ctx context.Context, sess *access.Session) ([]models.RoleApplication, error) {
	if err := access.Authorize(sess, access.CapAuthenticated, nil); err != nil {
		return nil, err
	}
	return s.store.ListByUser(ctx, sess.UserID)
}

// List lists applications for admins, optionally by status.
func (s *Service) List(ctx context.Context, sess *access.Session, status *models.ApplicationStatus, limit, offset int) ([]models.RoleApplication, int, error) {
	if err := access.Authorize(sess, access.CapAdmin, nil); err != nil {
		return nil, 0, err
	}
	return s.store.List(ctx, status, limit, offset)
}

// Approve grants the mapped role and marks the application APPROVED. For
// ORGANIZER a notification email is attempted once; its failure is logged
// and the approval stands.
func (s *Service) Approve(ctx context.Context, sess *access.Session, id uuid.UUID, note string) (*models.RoleApplication, error) {
	if err := access.Authorize(sess, access.CapAdmin, nil); err != nil {
		return nil, err
	}
	app, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Transition(app.Status, models.ApplicationApproved); err != nil {
		return nil, err
	}
	role, err := MapRequestedRole(app.RequestedRole)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.store.Approve(ctx, id, sess.UserID, note, role, now); err != nil {
		return nil, err
	}
	app.Status = models.ApplicationApproved
	app.ReviewedBy = &sess.UserID
	app.ReviewedAt = &now
	app.ReviewNote = note

	if role == models.RoleOrganizer {
		s.notifyOrganizer(ctx, app)
	}
	s.publishProcessed(ctx, app)
	return app, nil
}

// Reject marks the application REJECTED. It has no other side effects
// besides the notification event.
func (s *Service) Reject(ctx context.Context, sess *access.Session, id uuid.UUID, note string) (*models.RoleApplication, error) {
	if err := access.Authorize(sess, access.CapAdmin, nil); err != nil {
		return nil, err
	}
	app, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Transition(app.Status, models.ApplicationRejected); err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.store.Reject(ctx, id, sess.UserID, note, now); err != nil {
		return nil, err
	}
	app.Status = models.ApplicationRejected
	app.ReviewedBy = &sess.UserID
	app.ReviewedAt = &now
	app.ReviewNote = note
	s.publishProcessed(ctx, app)
	return app, nil
}

func (s *Service) notifyOrganizer(ctx context.Context, app *models.RoleApplication) {
	log := s.logger.With(zap.String("application_id", app.ID.String()), zap.String("user_id", app.UserID.String()))
	if s.emails == nil {
		log.Warn("organizer approval email skipped: no queue configured")
		return
	}
	user, err := s.store.GetUser(ctx, app.UserID)
	if err != nil {
		log.Error("organizer approval email: load user", zap.Error(err))
		return
	}
	uid := user.ID
	err = s.emails.EnqueueEmail(ctx, queue.EmailPayload{
		EmailType:      models.EmailTypeOrganizerApproved,
		UserID:         &uid,
		RecipientEmail: user.Email,
		RecipientName:  user.Name,
		Data:           map[string]string{"dashboard_url": s.baseURL + "/organizer"},
	})
	if err != nil {
		log.Error("organizer approval email: enqueue", zap.Error(err))
	}
}

func (s *Service) publishProcessed(ctx context.Context, app *models.RoleApplication) {
	ev := ProcessedEvent{
		ApplicationID: app.ID,
		UserID:        app.UserID,
		RequestedRole: app.RequestedRole,
		Status:        app.Status,
	}
	s.publish(ctx, realtime.TopicAdmin, realtime.EventRoleApplicationProcessed, ev)
	s.publish(ctx, realtime.UserTopic(app.UserID), realtime.EventRoleApplicationProcessed, ev)
}

func (s *Service) publish(ctx context.Context, topic, event string, payload interface{}) {
	if s.events != nil {
		s.events.Publish(ctx, topic, event, payload)
	}
}

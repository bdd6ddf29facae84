package conventions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conventionhub/backend/internal/access"
	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/internal/realtime"
	"github.com/conventionhub/backend/pkg/apperrors"
)

// ListFilter narrows convention listings.
type ListFilter struct {
	Status         *models.ConventionStatus
	OwnerID        *uuid.UUID
	SeriesID       *uuid.UUID
	Query          string
	CountryCode    string
	UpcomingAfter  *time.Time
	IncludeDeleted bool
	OnlyDeleted    bool
	Limit          int
	Offset         int
}

// Store is the persistence the service needs. Lookups return a NotFound
// apperror when nothing matches; FindActiveBySlug returns nil, nil instead.
type Store interface {
	Create(ctx context.Context, c *models.Convention) error
	CreateCopy(ctx context.Context, c *models.Convention, sourceID uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Convention, error)
	GetBySlug(ctx context.Context, slug string) (*models.Convention, error)
	FindActiveBySlug(ctx context.Context, slug string, excludeID *uuid.UUID) (*models.Convention, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Convention, error)
	List(ctx context.Context, f ListFilter) ([]models.Convention, int, error)
	Update(ctx context.Context, c *models.Convention) error
	SetStatus(ctx context.Context, id uuid.UUID, status models.ConventionStatus) error
	BulkSetStatus(ctx context.Context, ids []uuid.UUID, status models.ConventionStatus) (int64, error)
	SoftDelete(ctx context.Context, id uuid.UUID, deletedSlug, originalSlug string, at time.Time) error
	BulkSoftDelete(ctx context.Context, ids []uuid.UUID, rename func(slug string) string, at time.Time) (int64, error)
	Restore(ctx context.Context, id uuid.UUID, slug string) error
	ExpirePublished(ctx context.Context, now time.Time) (int64, error)
	SeriesOwner(ctx context.Context, seriesID uuid.UUID) (uuid.UUID, error)
}

// Service implements the convention lifecycle.
type Service struct {
	store  Store
	events realtime.Publisher
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a convention service. events may be nil.
func NewService(store Store, events realtime.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, events: events, logger: logger, now: time.Now}
}

// Input carries writable convention fields. Nil pointers leave a field unchanged on update.
type Input struct {
	SeriesID      *uuid.UUID
	Name          *string
	Slug          *string
	Description   *string
	StartDate     *time.Time
	EndDate       *time.Time
	City          *string
	StateCode     *string
	CountryCode   *string
	Timezone      *string
	CurrencyCode  *string
	WebsiteURL    *string
	CoverImageURL *string
}

func (in Input) apply(c *models.Convention) {
	if in.SeriesID != nil {
		c.SeriesID = in.SeriesID
	}
	if in.Name != nil {
		c.Name = *in.Name
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.StartDate != nil {
		c.StartDate = in.StartDate
	}
	if in.EndDate != nil {
		c.EndDate = in.EndDate
	}
	if in.City != nil {
		c.City = *in.City
	}
	if in.StateCode != nil {
		c.StateCode = in.StateCode
	}
	if in.CountryCode != nil {
		c.CountryCode = in.CountryCode
	}
	if in.Timezone != nil {
		c.Timezone = in.Timezone
	}
	if in.CurrencyCode != nil {
		c.CurrencyCode = in.CurrencyCode
	}
	if in.WebsiteURL != nil {
		c.WebsiteURL = in.WebsiteURL
	}
	if in.CoverImageURL != nil {
		c.CoverImageURL = in.CoverImageURL
	}
}

func validateDates(c *models.Convention) error {
	if c.StartDate != nil && c.EndDate != nil && c.EndDate.Before(*c.StartDate) {
		return apperrors.Validation(map[string]string{"end_date": "must not be before start_date"})
	}
	return nil
}

// reserveSlug returns candidate if no active convention other than excludeID holds it.
func (s *Service) reserveSlug(ctx context.Context, candidate string, excludeID *uuid.UUID) (string, error) {
	other, err := s.store.FindActiveBySlug(ctx, candidate, excludeID)
	if err != nil {
		return "", err
	}
	if other != nil {
		return "", apperrors.Conflict("slug is already in use").WithDetails(details{"slug": candidate})
	}
	return candidate, nil
}

// details is a small JSON object attached to errors and events.
type details = map[string]interface{}

func (s *Service) checkSeries(ctx context.Context, sess *access.Session, seriesID *uuid.UUID) error {
	if seriesID == nil {
		return nil
	}
	owner, err := s.store.SeriesOwner(ctx, *seriesID)
	if err != nil {
		return err
	}
	return access.Authorize(sess, access.CapOrganizerOwns, &owner)
}

// Create inserts a new DRAFT convention owned by the session user.
func (s *Service) Create(ctx context.Context, sess *access.Session, in Input) (*models.Convention, error) {
	if err := access.Authorize(sess, access.CapOrganizer, nil); err != nil {
		return nil, err
	}
	if in.Name == nil || *in.Name == "" {
		return nil, apperrors.Validation(map[string]string{"name": "is required"})
	}
	if err := s.checkSeries(ctx, sess, in.SeriesID); err != nil {
		return nil, err
	}
	c := &models.Convention{CreatedBy: sess.UserID, Status: models.ConventionDraft}
	in.apply(c)
	if err := validateDates(c); err != nil {
		return nil, err
	}
	candidate := Slugify(c.Name)
	if in.Slug != nil && *in.Slug != "" {
		explicit, err := ExplicitSlug(*in.Slug)
		if err != nil {
			return nil, err
		}
		candidate = explicit
	}
	slug, err := s.reserveSlug(ctx, candidate, nil)
	if err != nil {
		return nil, err
	}
	c.Slug = slug
	if err := s.store.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// manageable loads a convention and checks the session may manage it.
func (s *Service) manageable(ctx context.Context, sess *access.Session, id uuid.UUID) (*models.Convention, error) {
	if err := access.Authorize(sess, access.CapAuthenticated, nil); err != nil {
		return nil, err
	}
	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(sess, access.CapOrganizerOwns, &c.OwnerID); err != nil {
		return nil, err
	}
	return c, nil
}

// Manageable returns the convention if sess may manage it, deleted or not.
func (s *Service) Manageable(ctx context.Context, sess *access.Session, id uuid.UUID) (*models.Convention, error) {
	return s.manageable(ctx, sess, id)
}

func activeOnly(c *models.Convention) error {
	if c.IsDeleted() {
		return apperrors.NotFound("convention not found")
	}
	return nil
}

// Get returns a convention by id. Unpublished or deleted conventions are
// visible only to those who may manage them.
func (s *Service) Get(ctx context.Context, sess *access.Session, id uuid.UUID) (*models.Convention, error) {
	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return visible(sess, c)
}

// GetBySlug returns an active convention by slug, with the same visibility as Get.
func (s *Service) GetBySlug(ctx context.Context, sess *access.Session, slug string) (*models.Convention, error) {
	c, err := s.store.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return visible(sess, c)
}

func visible(sess *access.Session, c *models.Convention) (*models.Convention, error) {
	if c.Status != models.ConventionDraft && !c.IsDeleted() {
		return c, nil
	}
	if sess != nil && access.CanManage(sess, c.OwnerID) {
		return c, nil
	}
	return nil, apperrors.NotFound("convention not found")
}

// ListPublic lists non-deleted PUBLISHED conventions.
func (s *Service) ListPublic(ctx context.Context, f ListFilter) ([]models.Convention, int, error) {
	published := models.ConventionPublished
	f.Status = &published
	f.OwnerID = nil
	f.IncludeDeleted, f.OnlyDeleted = false, false
	return s.store.List(ctx, f)
}

// ListMine lists conventions owned by the session user.
func (s *Service) ListMine(ctx context.Context, sess *access.Session, f ListFilter) ([]models.Convention, int, error) {
	if err := access.Authorize(sess, access.CapOrganizer, nil); err != nil {
		return nil, 0, err
	}
	f.OwnerID = &sess.UserID
	return s.store.List(ctx, f)
}

// ListAll lists every convention (admin).
func (s *Service) ListAll(ctx context.Context, sess *access.Session, f ListFilter) ([]models.Convention, int, error) {
	if err := access.Authorize(sess, access.CapAdmin, nil); err != nil {
		return nil, 0, err
	}
	return s.store.List(ctx, f)
}

// Update changes convention fields. A new slug is re-validated against other active conventions.
func (s *Service) Update(ctx context.Context, sess *access.Session, id uuid.UUID, in Input) (*models.Convention, error) {
	c, err := s.manageable(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if err := activeOnly(c); err != nil {
		return nil, err
	}
	if in.Name != nil && *in.Name == "" {
		return nil, apperrors.Validation(map[string]string{"name": "must not be empty"})
	}
	if in.SeriesID != nil && (c.SeriesID == nil || *c.SeriesID != *in.SeriesID) {
		if err := s.checkSeries(ctx, sess, in.SeriesID); err != nil {
			return nil, err
		}
	}
	in.apply(c)
	if err := validateDates(c); err != nil {
		return nil, err
	}
	if in.Slug != nil && *in.Slug != c.Slug {
		candidate, err := ExplicitSlug(*in.Slug)
		if err != nil {
			return nil, err
		}
		slug, err := s.reserveSlug(ctx, candidate, &c.ID)
		if err != nil {
			return nil, err
		}
		c.Slug = slug
	}
	if err := s.store.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// SetStatus applies a manual status change through CheckTransition.
func (s *Service) SetStatus(ctx context.Context, sess *access.Session, id uuid.UUID, to models.ConventionStatus) (*models.Convention, error) {
	c, err := s.manageable(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if err := activeOnly(c); err != nil {
		return nil, err
	}
	if err := CheckTransition(c.Status, to, sess.IsAdmin()); err != nil {
		return nil, err
	}
	if c.Status == to {
		return c, nil
	}
	if err := s.store.SetStatus(ctx, id, to); err != nil {
		return nil, err
	}
	c.Status = to
	return c, nil
}

// Delete soft-deletes a convention, suffixing its slug and keeping the original.
func (s *Service) Delete(ctx context.Context, sess *access.Session, id uuid.UUID) error {
	c, err := s.manageable(ctx, sess, id)
	if err != nil {
		return err
	}
	if c.IsDeleted() {
		return apperrors.Conflict("convention is already deleted")
	}
	now := s.now()
	return s.store.SoftDelete(ctx, id, DeletedSlug(c.Slug, now), c.Slug, now)
}

// Restore clears the soft delete if the original slug is still free.
// On conflict nothing is written and the colliding convention is reported.
func (s *Service) Restore(ctx context.Context, sess *access.Session, id uuid.UUID) (*models.Convention, error) {
	c, err := s.manageable(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if !c.IsDeleted() {
		return nil, apperrors.Conflict("convention is not deleted")
	}
	slug, err := RestoredSlug(c)
	if err != nil {
		s.logger.Error("restore: unrecoverable slug", zap.String("convention_id", id.String()), zap.String("slug", c.Slug))
		return nil, err
	}
	other, err := s.store.FindActiveBySlug(ctx, slug, &c.ID)
	if err != nil {
		return nil, err
	}
	if other != nil {
		return nil, apperrors.Conflict("another convention already uses this slug").WithDetails(details{
			"slug":             slug,
			"conflicting_id":   other.ID,
			"conflicting_name": other.Name,
		})
	}
	if err := s.store.Restore(ctx, id, slug); err != nil {
		return nil, err
	}
	c.Slug = slug
	c.OriginalSlug = nil
	c.DeletedAt = nil
	return c, nil
}

// Duplicate copies a convention (and its venues, hotels, tiers and schedule)
// into a new DRAFT named "X (Copy)".
func (s *Service) Duplicate(ctx context.Context, sess *access.Session, id uuid.UUID) (*models.Convention, error) {
	src, err := s.manageable(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if err := activeOnly(src); err != nil {
		return nil, err
	}
	var slug string
	for _, candidate := range duplicateCandidates(src.Slug, s.now()) {
		other, err := s.store.FindActiveBySlug(ctx, candidate, nil)
		if err != nil {
			return nil, err
		}
		if other == nil {
			slug = candidate
			break
		}
	}
	if slug == "" {
		return nil, apperrors.Conflict("could not find a free slug for the copy")
	}
	cp := *src
	cp.ID = uuid.Nil
	cp.Name = CopyName(src.Name)
	cp.Slug = slug
	cp.OriginalSlug = nil
	cp.Status = models.ConventionDraft
	cp.CreatedBy = sess.UserID
	cp.DeletedAt = nil
	if err := s.store.CreateCopy(ctx, &cp, src.ID); err != nil {
		return nil, err
	}
	return &cp, nil
}

// BulkAction names a bulk operation.
type BulkAction string

const (
	BulkDelete BulkAction = "delete"
	BulkStatus BulkAction = "status"
)

// BulkResult reports how many rows a bulk action changed.
type BulkResult struct {
	Action   BulkAction `json:"action"`
	Affected int64      `json:"affected"`
}

// Bulk applies action to every id, or to none: if the caller may not manage
// every requested convention the whole batch is rejected with Forbidden.
func (s *Service) Bulk(ctx context.Context, sess *access.Session, action BulkAction, ids []uuid.UUID, status models.ConventionStatus) (*BulkResult, error) {
	if err := access.Authorize(sess, access.CapAuthenticated, nil); err != nil {
		return nil, err
	}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, apperrors.Validation(map[string]string{"ids": "must contain at least one id"})
	}
	switch action {
	case BulkDelete, BulkStatus:
	default:
		return nil, apperrors.Validation(map[string]string{"action": "must be one of: delete status"})
	}

	found, err := s.store.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	verified := make([]models.Convention, 0, len(found))
	for _, c := range found {
		if c.IsDeleted() {
			continue
		}
		if access.CanManage(sess, c.OwnerID) {
			verified = append(verified, c)
		}
	}
	if len(verified) != len(ids) {
		return nil, apperrors.Forbidden("you are not allowed to modify all selected conventions")
	}

	now := s.now()
	switch action {
	case BulkDelete:
		n, err := s.store.BulkSoftDelete(ctx, ids, func(slug string) string { return DeletedSlug(slug, now) }, now)
		if err != nil {
			return nil, err
		}
		return &BulkResult{Action: action, Affected: n}, nil
	default:
		if _, ok := models.ParseConventionStatus(string(status)); !ok {
			return nil, apperrors.Validation(map[string]string{"status": "must be one of: DRAFT PUBLISHED PAST"})
		}
		invalid := map[string]string{}
		for _, c := range verified {
			if err := CheckTransition(c.Status, status, sess.IsAdmin()); err != nil {
				msg := err.Error()
				if appErr, ok := apperrors.As(err); ok {
					msg = appErr.Message
				}
				invalid[c.ID.String()] = msg
			}
		}
		if len(invalid) > 0 {
			return nil, apperrors.Validation(invalid)
		}
		n, err := s.store.BulkSetStatus(ctx, ids, status)
		if err != nil {
			return nil, err
		}
		return &BulkResult{Action: action, Affected: n}, nil
	}
}

// Expire moves PUBLISHED conventions whose end date has passed to PAST.
// Re-running only touches newly expired rows.
func (s *Service) Expire(ctx context.Context) (int64, error) {
	n, err := s.store.ExpirePublished(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("conventions expired", zap.Int64("count", n))
		if s.events != nil {
			s.events.Publish(ctx, realtime.TopicAdmin, realtime.EventConventionsExpired, details{"count": n})
		}
	}
	return n, nil
}

// ExpireAsAdmin runs Expire on behalf of an admin request.
func (s *Service) ExpireAsAdmin(ctx context.Context, sess *access.Session) (int64, error) {
	if err := access.Authorize(sess, access.CapAdmin, nil); err != nil {
		return 0, err
	}
	return s.Expire(ctx)
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

package series

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/conventionhub/backend/internal/access"
	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/apperrors"
)

// Store is the persistence the series service needs.
type Store interface {
	Create(ctx context.Context, s *models.ConventionSeries) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ConventionSeries, error)
	ListByOrganizer(ctx context.Context, organizerID *uuid.UUID) ([]models.ConventionSeries, error)
	Update(ctx context.Context, s *models.ConventionSeries) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Input holds writable series fields. Nil fields are left unchanged on update.
type Input struct {
	Name            *string
	Description     *string
	LogoURL         *string
	OrganizerUserID *uuid.UUID
}

// Service applies ownership rules to series.
type Service struct {
	store Store
}

// NewService creates a series service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

func (in Input) apply(s *models.ConventionSeries) error {
	if in.Name != nil {
		s.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		s.Description = *in.Description
	}
	if in.LogoURL != nil {
		if *in.LogoURL == "" {
			s.LogoURL = nil
		} else {
			v := *in.LogoURL
			s.LogoURL = &v
		}
	}
	if s.Name == "" {
		return apperrors.Validation(map[string]string{"name": "is required"})
	}
	return nil
}

// Create adds a series owned by the session organizer. Admins may name
// another organizer.
func (s *Service) Create(ctx context.Context, sess *access.Session, in Input) (*models.ConventionSeries, error) {
	if err := access.Authorize(sess, access.CapOrganizer, nil); err != nil {
		return nil, err
	}
	cs := &models.ConventionSeries{OrganizerUserID: sess.UserID}
	if in.OrganizerUserID != nil && sess.IsAdmin() {
		cs.OrganizerUserID = *in.OrganizerUserID
	}
	if err := in.apply(cs); err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, cs); err != nil {
		return nil, err
	}
	return cs, nil
}

// Get returns a series. Series are public.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.ConventionSeries, error) {
	return s.store.GetByID(ctx, id)
}

// Mine lists the session organizer's series; admins see all.
func (s *Service) Mine(ctx context.Context, sess *access.Session) ([]models.ConventionSeries, error) {
	if err := access.Authorize(sess, access.CapOrganizer, nil); err != nil {
		return nil, err
	}
	if sess.IsAdmin() {
		return s.store.ListByOrganizer(ctx, nil)
	}
	return s.store.ListByOrganizer(ctx, &sess.UserID)
}

func (s *Service) owned(ctx context.Context, sess *access.Session, id uuid.UUID) (*models.ConventionSeries, error) {
	if err := access.Authorize(sess, access.CapAuthenticated, nil); err != nil {
		return nil, err
	}
	cs, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(sess, access.CapOrganizerOwns, &cs.OrganizerUserID); err != nil {
		return nil, err
	}
	return cs, nil
}

// Update edits a series owned by the session organizer.
func (s *Service) Update(ctx context.Context, sess *access.Session, id uuid.UUID, in Input) (*models.ConventionSeries, error) {
	cs, err := s.owned(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if err := in.apply(cs); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, cs); err != nil {
		return nil, err
	}
	return cs, nil
}

// Delete removes a series owned by the session organizer.
func (s *Service) Delete(ctx context.Context, sess *access.Session, id uuid.UUID) error {
	if _, err := s.owned(ctx, sess, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

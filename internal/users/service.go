package users

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/conventionhub/backend/internal/access"
	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/apperrors"
)

// Profile holds self-editable fields. Nil means unchanged; an empty
// ImageURL clears the image.
type Profile struct {
	Name     *string
	ImageURL *string
}

// Store is the user persistence the service needs.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, p Profile) (*models.User, error)
	List(ctx context.Context, q string, limit, offset int) ([]models.User, int, error)
	SetRoles(ctx context.Context, id uuid.UUID, roles []models.Role) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service applies access rules to user operations.
type Service struct {
	store Store
}

// NewService creates a users service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Get returns a user to themselves or an admin.
func (s *Service) Get(ctx context.Context, sess *access.Session, id uuid.UUID) (*models.User, error) {
	if err := access.Authorize(sess, access.CapSelf, &id); err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, id)
}

// Update edits a user's own profile.
func (s *Service) Update(ctx context.Context, sess *access.Session, id uuid.UUID, p Profile) (*models.User, error) {
	if err := access.Authorize(sess, access.CapSelf, &id); err != nil {
		return nil, err
	}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, apperrors.Validation(map[string]string{"name": "must not be empty"})
		}
		p.Name = &name
	}
	return s.store.UpdateProfile(ctx, id, p)
}

// List returns users for admins.
func (s *Service) List(ctx context.Context, sess *access.Session, q string, limit, offset int) ([]models.User, int, error) {
	if err := access.Authorize(sess, access.CapAdmin, nil); err != nil {
		return nil, 0, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.List(ctx, q, limit, offset)
}

// NormalizeRoles validates names, drops duplicates and always keeps USER.
func NormalizeRoles(names []string) ([]models.Role, error) {
	out := []models.Role{models.RoleUser}
	for _, n := range names {
		r, ok := models.ParseRole(strings.ToUpper(strings.TrimSpace(n)))
		if !ok {
			return nil, apperrors.Validation(map[string]string{"roles": "unknown role " + n})
		}
		if !models.HasRole(out, r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// SetRoles replaces a user's role set. Admins cannot drop their own ADMIN role.
func (s *Service) SetRoles(ctx context.Context, sess *access.Session, id uuid.UUID, names []string) (*models.User, error) {
	if err := access.Authorize(sess, access.CapAdmin, nil); err != nil {
		return nil, err
	}
	roles, err := NormalizeRoles(names)
	if err != nil {
		return nil, err
	}
	if id == sess.UserID && !models.HasRole(roles, models.RoleAdmin) {
		return nil, apperrors.Conflict("you cannot remove your own admin role")
	}
	return s.store.SetRoles(ctx, id, roles)
}

// Delete removes a user. Only admins may delete, and not themselves.
func (s *Service) Delete(ctx context.Context, sess *access.Session, id uuid.UUID) error {
	if err := access.Authorize(sess, access.CapAdmin, nil); err != nil {
		return err
	}
	if id == sess.UserID {
		return apperrors.Conflict("you cannot delete your own account")
	}
	return s.store.Delete(ctx, id)
}

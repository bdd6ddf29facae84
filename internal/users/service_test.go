package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conventionhub/backend/internal/access"
	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/apperrors"
)

type memStore map[uuid.UUID]*models.User

func (m memStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, apperrors.NotFound("user not found")
	}
	cp := *u
	return &cp, nil
}

func (m memStore) UpdateProfile(ctx context.Context, id uuid.UUID, p Profile) (*models.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, apperrors.NotFound("user not found")
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.ImageURL != nil {
		if *p.ImageURL == "" {
			u.ImageURL = nil
		} else {
			v := *p.ImageURL
			u.ImageURL = &v
		}
	}
	return m.GetByID(ctx, id)
}

func (m memStore) List(ctx context.Context, q string, limit, offset int) ([]models.User, int, error) {
	var out []models.User
	for _, u := range m {
		out = append(out, *u)
	}
	return out, len(out), nil
}

func (m memStore) SetRoles(ctx context.Context, id uuid.UUID, roles []models.Role) (*models.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, apperrors.NotFound("user not found")
	}
	u.Roles = roles
	return m.GetByID(ctx, id)
}

func (m memStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m[id]; !ok {
		return apperrors.NotFound("user not found")
	}
	delete(m, id)
	return nil
}

func seed(store memStore, roles ...models.Role) *access.Session {
	id := uuid.New()
	store[id] = &models.User{ID: id, Email: id.String() + "@example.com", Name: "n", Roles: roles}
	return &access.Session{UserID: id, Roles: roles}
}

func TestSelfAccess(t *testing.T) {
	store := memStore{}
	svc := NewService(store)
	ctx := context.Background()
	alice := seed(store, models.RoleUser)
	bob := seed(store, models.RoleUser, models.RoleOrganizer)
	adm := seed(store, models.RoleUser, models.RoleAdmin)

	_, err := svc.Get(ctx, alice, alice.UserID)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, bob, alice.UserID)
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
	_, err = svc.Get(ctx, adm, alice.UserID)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, nil, alice.UserID)
	assert.Equal(t, apperrors.KindUnauthenticated, apperrors.KindOf(err))

	name := "  Alice  "
	u, err := svc.Update(ctx, alice, alice.UserID, Profile{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Name)

	blank := " "
	_, err = svc.Update(ctx, alice, alice.UserID, Profile{Name: &blank})
	assert.Equal(t, apperrors.KindValidationFailed, apperrors.KindOf(err))
	_, err = svc.Update(ctx, bob, alice.UserID, Profile{Name: &name})
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
}

func TestNormalizeRoles(t *testing.T) {
	roles, err := NormalizeRoles([]string{"organizer", "ORGANIZER", " talent"})
	require.NoError(t, err)
	assert.Equal(t, []models.Role{models.RoleUser, models.RoleOrganizer, models.RoleTalent}, roles)

	roles, err = NormalizeRoles(nil)
	require.NoError(t, err)
	assert.Equal(t, []models.Role{models.RoleUser}, roles)

	_, err = NormalizeRoles([]string{"WIZARD"})
	assert.Equal(t, apperrors.KindValidationFailed, apperrors.KindOf(err))
}

func TestAdminOperations(t *testing.T) {
	store := memStore{}
	svc := NewService(store)
	ctx := context.Background()
	alice := seed(store, models.RoleUser)
	adm := seed(store, models.RoleUser, models.RoleAdmin)

	_, err := svc.SetRoles(ctx, alice, alice.UserID, []string{"ADMIN"})
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))

	u, err := svc.SetRoles(ctx, adm, alice.UserID, []string{"ORGANIZER"})
	require.NoError(t, err)
	assert.Equal(t, []models.Role{models.RoleUser, models.RoleOrganizer}, u.Roles)

	_, err = svc.SetRoles(ctx, adm, adm.UserID, []string{"ORGANIZER"})
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(svc.Delete(ctx, alice, adm.UserID)))
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(svc.Delete(ctx, adm, adm.UserID)))
	require.NoError(t, svc.Delete(ctx, adm, alice.UserID))
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(svc.Delete(ctx, adm, alice.UserID)))

	list, total, err := svc.List(ctx, adm, "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, list, 1)
}

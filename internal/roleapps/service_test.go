package roleapps

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conventionhub/backend/internal/access"
	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/internal/realtime"
	"github.com/conventionhub/backend/pkg/apperrors"
	"github.com/conventionhub/backend/pkg/queue"
)

type memStore struct {
	mu    sync.Mutex
	apps  map[uuid.UUID]*models.RoleApplication
	users map[uuid.UUID]*models.User
}

func newMemStore() *memStore {
	return &memStore{apps: map[uuid.UUID]*models.RoleApplication{}, users: map[uuid.UUID]*models.User{}}
}

func (m *memStore) Create(ctx context.Context, a *models.RoleApplication) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	cp := *a
	m.apps[a.ID] = &cp
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id uuid.UUID) (*models.RoleApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.apps[id]
	if !ok {
		return nil, apperrors.NotFound("application not found")
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) HasActive(ctx context.Context, userID uuid.UUID, role string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.apps {
		if a.UserID == userID && a.RequestedRole == role &&
			(a.Status == models.ApplicationPending || a.Status == models.ApplicationApproved) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.RoleApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.RoleApplication
	for _, a := range m.apps {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memStore) List(ctx context.Context, status *models.ApplicationStatus, limit, offset int) ([]models.RoleApplication, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.RoleApplication
	for _, a := range m.apps {
		if status == nil || a.Status == *status {
			out = append(out, *a)
		}
	}
	return out, len(out), nil
}

// grant mirrors array_append ... WHERE NOT (role = ANY(roles)).
func (m *memStore) grant(userID uuid.UUID, role models.Role) {
	u := m.users[userID]
	if !models.HasRole(u.Roles, role) {
		u.Roles = append(u.Roles, role)
	}
}

func (m *memStore) Approve(ctx context.Context, id, reviewerID uuid.UUID, note string, role models.Role, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.apps[id]
	if a.Status != models.ApplicationPending {
		return apperrors.Conflict("application was already processed")
	}
	a.Status, a.ReviewedBy, a.ReviewedAt, a.ReviewNote = models.ApplicationApproved, &reviewerID, &at, note
	m.grant(a.UserID, role)
	return nil
}

func (m *memStore) Reject(ctx context.Context, id, reviewerID uuid.UUID, note string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.apps[id]
	if a.Status != models.ApplicationPending {
		return apperrors.Conflict("application was already processed")
	}
	a.Status, a.ReviewedBy, a.ReviewedAt, a.ReviewNote = models.ApplicationRejected, &reviewerID, &at, note
	return nil
}

func (m *memStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperrors.NotFound("user not found")
	}
	cp := *u
	return &cp, nil
}

type fakeEmails struct {
	sent []queue.EmailPayload
	err  error
}

func (f *fakeEmails) EnqueueEmail(ctx context.Context, p queue.EmailPayload) error {
	f.sent = append(f.sent, p)
	return f.err
}

type fakeEvents struct{ topics, events []string }

func (f *fakeEvents) Publish(ctx context.Context, topic, event string, payload interface{}) {
	f.topics = append(f.topics, topic)
	f.events = append(f.events, event)
}

type fixture struct {
	svc    *Service
	store  *memStore
	emails *fakeEmails
	events *fakeEvents
	user   *access.Session
	admin  *access.Session
}

func newFixture() *fixture {
	store := newMemStore()
	emails := &fakeEmails{}
	events := &fakeEvents{}
	user := &access.Session{UserID: uuid.New(), Roles: []models.Role{models.RoleUser}}
	adm := &access.Session{UserID: uuid.New(), Roles: []models.Role{models.RoleUser, models.RoleAdmin}}
	store.users[user.UserID] = &models.User{ID: user.UserID, Email: "u@example.com", Name: "U", Roles: []models.Role{models.RoleUser}}
	return &fixture{
		svc:    NewService(store, emails, events, "https://app.example.com", nil),
		store:  store,
		emails: emails,
		events: events,
		user:   user,
		admin:  adm,
	}
}

func TestTransition(t *testing.T) {
	assert.NoError(t, Transition(models.ApplicationPending, models.ApplicationApproved))
	assert.NoError(t, Transition(models.ApplicationPending, models.ApplicationRejected))
	assert.True(t, apperrors.Is(Transition(models.ApplicationPending, models.ApplicationPending), apperrors.KindValidationFailed))
	assert.True(t, apperrors.Is(Transition(models.ApplicationApproved, models.ApplicationRejected), apperrors.KindConflict))
	assert.True(t, apperrors.Is(Transition(models.ApplicationRejected, models.ApplicationApproved), apperrors.KindConflict))
}

func TestMapRequestedRole(t *testing.T) {
	tests := []struct {
		in   string
		want models.Role
		ok   bool
	}{
		{"ORGANIZER", models.RoleOrganizer, true},
		{"talent", models.RoleTalent, true},
		{" BRAND_CREATOR ", models.RoleBrandCreator, true},
		{"ADMIN", "", false},
		{"USER", "", false},
		{"WIZARD", "", false},
	}
	for _, tt := range tests {
		got, err := MapRequestedRole(tt.in)
		if !tt.ok {
			require.Error(t, err, tt.in)
			appErr, _ := apperrors.As(err)
			assert.Equal(t, "Unknown requested role", appErr.Message)
			assert.Equal(t, apperrors.KindValidationFailed, appErr.Kind)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestApproveOrganizerScenario(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	app, err := f.svc.Apply(ctx, f.user, "ORGANIZER", "I run a con")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationPending, app.Status)

	approved, err := f.svc.Approve(ctx, f.admin, app.ID, "welcome")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationApproved, approved.Status)
	assert.Equal(t, []models.Role{models.RoleUser, models.RoleOrganizer}, f.store.users[f.user.UserID].Roles)

	require.Len(t, f.emails.sent, 1)
	assert.Equal(t, models.EmailTypeOrganizerApproved, f.emails.sent[0].EmailType)
	assert.Equal(t, "u@example.com", f.emails.sent[0].RecipientEmail)
	assert.Equal(t, "https://app.example.com/organizer", f.emails.sent[0].Data["dashboard_url"])

	assert.Contains(t, f.events.events, realtime.EventRoleApplicationProcessed)
	assert.Contains(t, f.events.topics, realtime.UserTopic(f.user.UserID))
}

func TestApproveTwiceDoesNotDuplicateRole(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	app, err := f.svc.Apply(ctx, f.user, "ORGANIZER", "")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, f.admin, app.ID, "")
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, f.admin, app.ID, "")
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

	// A second approval at the store layer, as a racing request would issue.
	f.store.apps[app.ID].Status = models.ApplicationPending
	require.NoError(t, f.store.Approve(ctx, app.ID, f.admin.UserID, "", models.RoleOrganizer, time.Now()))
	assert.Equal(t, []models.Role{models.RoleUser, models.RoleOrganizer}, f.store.users[f.user.UserID].Roles)
	assert.Len(t, f.emails.sent, 1)
}

func TestApplyDuplicateGuard(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	app, err := f.svc.Apply(ctx, f.user, "ORGANIZER", "")
	require.NoError(t, err)

	_, err = f.svc.Apply(ctx, f.user, "ORGANIZER", "again")
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

	_, err = f.svc.Apply(ctx, f.user, "TALENT", "")
	assert.NoError(t, err)

	_, err = f.svc.Approve(ctx, f.admin, app.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Apply(ctx, f.user, "ORGANIZER", "still")
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
}

func TestApplyChecksStoredRolesNotSession(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// Granted by an admin after the token was issued.
	f.store.users[f.user.UserID].Roles = []models.Role{models.RoleUser, models.RoleOrganizer}
	_, err := f.svc.Apply(ctx, f.user, "ORGANIZER", "")
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

	// Revoked after the token was issued.
	stale := &access.Session{UserID: f.user.UserID, Roles: []models.Role{models.RoleUser, models.RoleTalent}}
	_, err = f.svc.Apply(ctx, stale, "TALENT", "")
	require.NoError(t, err)

	ghost := &access.Session{UserID: uuid.New(), Roles: []models.Role{models.RoleUser}}
	_, err = f.svc.Apply(ctx, ghost, "ORGANIZER", "")
	assert.Equal(t, apperrors.KindUnauthenticated, apperrors.KindOf(err))
}

func TestApplyAfterRejectionIsAllowed(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	app, err := f.svc.Apply(ctx, f.user, "ORGANIZER", "")
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, f.admin, app.ID, "not yet")
	require.NoError(t, err)
	assert.Equal(t, []models.Role{models.RoleUser}, f.store.users[f.user.UserID].Roles)
	assert.Empty(t, f.emails.sent)

	_, err = f.svc.Apply(ctx, f.user, "ORGANIZER", "try again")
	assert.NoError(t, err)
}

func TestApproveUnknownRoleFails(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	legacy := &models.RoleApplication{UserID: f.user.UserID, RequestedRole: "VENDOR", Status: models.ApplicationPending}
	require.NoError(t, f.store.Create(ctx, legacy))

	_, err := f.svc.Approve(ctx, f.admin, legacy.ID, "")
	require.Error(t, err)
	appErr, _ := apperrors.As(err)
	assert.Equal(t, apperrors.KindValidationFailed, appErr.Kind)
	assert.Equal(t, "Unknown requested role", appErr.Message)
	assert.Equal(t, models.ApplicationPending, f.store.apps[legacy.ID].Status)
	assert.Equal(t, []models.Role{models.RoleUser}, f.store.users[f.user.UserID].Roles)
}

func TestApproveEmailFailureKeepsApproval(t *testing.T) {
	f := newFixture()
	f.emails.err = errors.New("queue down")
	ctx := context.Background()
	app, err := f.svc.Apply(ctx, f.user, "ORGANIZER", "")
	require.NoError(t, err)

	approved, err := f.svc.Approve(ctx, f.admin, app.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationApproved, approved.Status)
	assert.Len(t, f.emails.sent, 1)
	assert.Equal(t, models.ApplicationApproved, f.store.apps[app.ID].Status)
}

func TestApproveNonOrganizerSendsNoEmail(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	app, err := f.svc.Apply(ctx, f.user, "TALENT", "")
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, f.admin, app.ID, "")
	require.NoError(t, err)
	assert.Empty(t, f.emails.sent)
	assert.Contains(t, f.store.users[f.user.UserID].Roles, models.RoleTalent)
}

func TestReviewRequiresAdmin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	app, err := f.svc.Apply(ctx, f.user, "ORGANIZER", "")
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, f.user, app.ID, "")
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
	_, err = f.svc.Reject(ctx, nil, app.ID, "")
	assert.Equal(t, apperrors.KindUnauthenticated, apperrors.KindOf(err))
	_, _, err = f.svc.List(ctx, f.user, nil, 0, 0)
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
}

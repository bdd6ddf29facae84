package access

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/apperrors"
)

func TestAuthorize(t *testing.T) {
	owner := uuid.New()
	other := uuid.New()

	organizer := &Session{UserID: owner, Roles: []models.Role{models.RoleUser, models.RoleOrganizer}}
	plainUser := &Session{UserID: owner, Roles: []models.Role{models.RoleUser}}
	otherOrganizer := &Session{UserID: other, Roles: []models.Role{models.RoleOrganizer}}
	admin := &Session{UserID: other, Roles: []models.Role{models.RoleAdmin}}

	tests := []struct {
		name    string
		session *Session
		cap     Capability
		owner   *uuid.UUID
		want    apperrors.Kind
	}{
		{"no session admin", nil, CapAdmin, nil, apperrors.KindUnauthenticated},
		{"no session self", nil, CapSelf, &owner, apperrors.KindUnauthenticated},
		{"nil user id", &Session{}, CapAuthenticated, nil, apperrors.KindUnauthenticated},
		{"authenticated", plainUser, CapAuthenticated, nil, ""},
		{"admin ok", admin, CapAdmin, nil, ""},
		{"admin denied", organizer, CapAdmin, nil, apperrors.KindForbidden},
		{"organizer ok", organizer, CapOrganizer, nil, ""},
		{"organizer denied", plainUser, CapOrganizer, nil, apperrors.KindForbidden},
		{"owns ok", organizer, CapOrganizerOwns, &owner, ""},
		{"owns other organizer", otherOrganizer, CapOrganizerOwns, &owner, apperrors.KindForbidden},
		{"owns without organizer role", plainUser, CapOrganizerOwns, &owner, apperrors.KindForbidden},
		{"owns nil owner", organizer, CapOrganizerOwns, nil, apperrors.KindForbidden},
		{"owns admin override", admin, CapOrganizerOwns, &owner, ""},
		{"self ok", plainUser, CapSelf, &owner, ""},
		{"self other", otherOrganizer, CapSelf, &owner, apperrors.KindForbidden},
		{"self admin", admin, CapSelf, &owner, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.session, tt.cap, tt.owner)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.want, apperrors.KindOf(err))
		})
	}
}

func TestCanManage(t *testing.T) {
	owner := uuid.New()
	s := &Session{UserID: owner, Roles: []models.Role{models.RoleOrganizer}}
	assert.True(t, CanManage(s, owner))
	assert.False(t, CanManage(s, uuid.New()))
	assert.False(t, CanManage(nil, owner))
}

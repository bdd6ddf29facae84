package roleapps

import (
	"fmt"
	"strings"

	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/apperrors"
)

// Transition validates an application state change. PENDING is the only
// non-terminal state.
func Transition(from, to models.ApplicationStatus) error {
	if from != models.ApplicationPending {
		return apperrors.Conflict(fmt.Sprintf("application is already %s", strings.ToLower(string(from))))
	}
	switch to {
	case models.ApplicationApproved, models.ApplicationRejected:
		return nil
	}
	return apperrors.Invalid(fmt.Sprintf("cannot move application to %s", to))
}

// requestable maps requested role strings to the role granted on approval.
var requestable = map[string]models.Role{
	string(models.RoleOrganizer):    models.RoleOrganizer,
	string(models.RoleTalent):       models.RoleTalent,
	string(models.RoleBrandCreator): models.RoleBrandCreator,
}

// MapRequestedRole returns the role granted for requested, or a validation error.
func MapRequestedRole(requested string) (models.Role, error) {
	if r, ok := requestable[strings.ToUpper(strings.TrimSpace(requested))]; ok {
		return r, nil
	}
	return "", apperrors.Invalid("Unknown requested role")
}

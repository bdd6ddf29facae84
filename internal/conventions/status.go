package conventions

import (
	"fmt"

	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/apperrors"
)

// transitions lists the manual status changes an organizer may make.
// PAST -> DRAFT is not allowed; an ended convention can only be re-listed.
var transitions = map[models.ConventionStatus][]models.ConventionStatus{
	models.ConventionDraft:     {models.ConventionPublished},
	models.ConventionPublished: {models.ConventionDraft, models.ConventionPast},
	models.ConventionPast:      {models.ConventionPublished},
}

// CheckTransition validates a manual status change. Every status mutation
// goes through here. Admins may force any change between known states.
// Same-state requests are accepted as no-ops.
func CheckTransition(from, to models.ConventionStatus, admin bool) error {
	if _, ok := models.ParseConventionStatus(string(to)); !ok {
		return apperrors.Validation(map[string]string{"status": "must be one of: DRAFT PUBLISHED PAST"})
	}
	if from == to || admin {
		return nil
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return nil
		}
	}
	return apperrors.Invalid(fmt.Sprintf("cannot change status from %s to %s", from, to))
}

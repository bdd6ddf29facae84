package conventions

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/apperrors"
)

func TestCheckTransition(t *testing.T) {
	const (
		draft     = models.ConventionDraft
		published = models.ConventionPublished
		past      = models.ConventionPast
	)
	tests := []struct {
		name    string
		from    models.ConventionStatus
		to      models.ConventionStatus
		admin   bool
		wantErr bool
	}{
		{"publish draft", draft, published, false, false},
		{"unpublish", published, draft, false, false},
		{"end published", published, past, false, false},
		{"relist past", past, published, false, false},
		{"same state", past, past, false, false},
		{"draft straight to past", draft, past, false, true},
		{"past back to draft", past, draft, false, true},
		{"admin forces past to draft", past, draft, true, false},
		{"unknown status", draft, "ACTIVE", false, true},
		{"admin unknown status", draft, "ACTIVE", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTransition(tt.from, tt.to, tt.admin)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, apperrors.KindValidationFailed, apperrors.KindOf(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

package emaillogs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/conventionhub/backend/internal/access"
	"github.com/conventionhub/backend/internal/middleware"
	"github.com/conventionhub/backend/internal/models"
)

type recordingLister struct{ got Filter }

func (r *recordingLister) List(ctx context.Context, f Filter) ([]models.EmailLog, int, error) {
	r.got = f
	return []models.EmailLog{{ID: uuid.New(), EmailType: models.EmailTypeOrganizerApproved, Status: models.EmailLogStatusSent}}, 1, nil
}

type sessions map[string]*access.Session

func (s sessions) Session(token string) (*access.Session, error) {
	if sess, ok := s[token]; ok {
		return sess, nil
	}
	return nil, errors.New("invalid token")
}

func TestListRequiresAdminAndPassesFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	lister := &recordingLister{}
	h := NewHandler(lister, nil)
	r := gin.New()
	r.GET("/admin/email-logs", middleware.JWT(sessions{
		"admin": {UserID: uuid.New(), Roles: []models.Role{models.RoleUser, models.RoleAdmin}},
		"user":  {UserID: uuid.New(), Roles: []models.Role{models.RoleUser}},
	}), h.List)

	get := func(token, query string) int {
		req := httptest.NewRequest(http.MethodGet, "/admin/email-logs"+query, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusForbidden, get("user", ""))
	assert.Equal(t, http.StatusOK, get("admin", "?status=failed&email_type=password_reset&limit=1000&offset=-3"))
	assert.Equal(t, Filter{Status: "failed", EmailType: "password_reset", Limit: 50, Offset: 0}, lister.got)
}

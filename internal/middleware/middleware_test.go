package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/conventionhub/backend/internal/access"
	"github.com/conventionhub/backend/internal/models"
)

type stubValidator map[string]*access.Session

func (s stubValidator) Session(token string) (*access.Session, error) {
	if sess, ok := s[token]; ok {
		return sess, nil
	}
	return nil, errors.New("bad token")
}

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append(mw, func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/", handlers...)
	return r
}

func do(r *gin.Engine, token string) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec.Code
}

func TestRequireRoleDistinguishesUnauthenticatedFromForbidden(t *testing.T) {
	v := stubValidator{
		"user":  {UserID: uuid.New(), Roles: []models.Role{models.RoleUser}},
		"org":   {UserID: uuid.New(), Roles: []models.Role{models.RoleOrganizer}},
		"admin": {UserID: uuid.New(), Roles: []models.Role{models.RoleAdmin}},
	}
	r := newRouter(JWT(v), RequireRole(models.RoleOrganizer))

	assert.Equal(t, http.StatusUnauthorized, do(r, ""))
	assert.Equal(t, http.StatusUnauthorized, do(r, "garbage"))
	assert.Equal(t, http.StatusForbidden, do(r, "user"))
	assert.Equal(t, http.StatusOK, do(r, "org"))
	assert.Equal(t, http.StatusOK, do(r, "admin"))
}

func TestRequireCapabilityAdmin(t *testing.T) {
	v := stubValidator{
		"org":   {UserID: uuid.New(), Roles: []models.Role{models.RoleOrganizer}},
		"admin": {UserID: uuid.New(), Roles: []models.Role{models.RoleAdmin}},
	}
	r := newRouter(OptionalJWT(v), RequireCapability(access.CapAdmin))

	assert.Equal(t, http.StatusUnauthorized, do(r, ""))
	assert.Equal(t, http.StatusForbidden, do(r, "org"))
	assert.Equal(t, http.StatusOK, do(r, "admin"))
}

func TestOptionalJWTContinuesAnonymously(t *testing.T) {
	var seen *access.Session
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", OptionalJWT(stubValidator{}), func(c *gin.Context) {
		seen = SessionFrom(c)
		c.Status(http.StatusOK)
	})
	assert.Equal(t, http.StatusOK, do(r, "whatever"))
	assert.Nil(t, seen)
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS("http://localhost:3000"))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

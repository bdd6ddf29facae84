package lookups

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/apperrors"
)

type fakeStore struct{ country string }

func (f *fakeStore) Timezones(ctx context.Context) ([]models.Timezone, error) {
	return []models.Timezone{{IANAName: "Europe/Berlin"}}, nil
}

func (f *fakeStore) Countries(ctx context.Context) ([]models.Country, error) {
	return nil, apperrors.Internal("list countries", nil)
}

func (f *fakeStore) States(ctx context.Context, countryCode string) ([]models.State, error) {
	f.country = countryCode
	return []models.State{{CountryCode: "US", Code: "CA", Name: "California"}}, nil
}

func (f *fakeStore) Currencies(ctx context.Context) ([]models.Currency, error) {
	return []models.Currency{}, nil
}

func TestLookups(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &fakeStore{}
	h := NewHandler(store, nil)
	r := gin.New()
	r.GET("/timezones", h.Timezones)
	r.GET("/countries", h.Countries)
	r.GET("/states", h.States)

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	w := get("/timezones")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Europe/Berlin")
	assert.Equal(t, "public, max-age=3600", w.Header().Get("Cache-Control"))

	w = get("/states?country=us")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "US", store.country)

	w = get("/countries")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "list countries")
}

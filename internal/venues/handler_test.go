package venues

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conventionhub/backend/internal/conventions"
	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/apperrors"
	"github.com/conventionhub/backend/pkg/validation"
)

type memStore struct {
	venues map[uuid.UUID]models.Venue
	hotels map[uuid.UUID]models.Hotel
}

func newMemStore() *memStore {
	return &memStore{venues: map[uuid.UUID]models.Venue{}, hotels: map[uuid.UUID]models.Hotel{}}
}

func (m *memStore) ListVenues(ctx context.Context, conventionID uuid.UUID) ([]models.Venue, error) {
	out := []models.Venue{}
	for _, v := range m.venues {
		if v.ConventionID == conventionID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *memStore) GetVenue(ctx context.Context, conventionID, id uuid.UUID) (*models.Venue, error) {
	v, ok := m.venues[id]
	if !ok || v.ConventionID != conventionID {
		return nil, apperrors.NotFound("venue not found")
	}
	return &v, nil
}

func (m *memStore) CreateVenue(ctx context.Context, v *models.Venue) error {
	v.ID = uuid.New()
	m.venues[v.ID] = *v
	return nil
}

func (m *memStore) UpdateVenue(ctx context.Context, v *models.Venue) error {
	if _, err := m.GetVenue(ctx, v.ConventionID, v.ID); err != nil {
		return err
	}
	m.venues[v.ID] = *v
	return nil
}

func (m *memStore) DeleteVenue(ctx context.Context, conventionID, id uuid.UUID) error {
	if _, err := m.GetVenue(ctx, conventionID, id); err != nil {
		return err
	}
	delete(m.venues, id)
	return nil
}

func (m *memStore) ListHotels(ctx context.Context, conventionID uuid.UUID) ([]models.Hotel, error) {
	out := []models.Hotel{}
	for _, h := range m.hotels {
		if h.ConventionID == conventionID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *memStore) GetHotel(ctx context.Context, conventionID, id uuid.UUID) (*models.Hotel, error) {
	h, ok := m.hotels[id]
	if !ok || h.ConventionID != conventionID {
		return nil, apperrors.NotFound("hotel not found")
	}
	return &h, nil
}

func (m *memStore) CreateHotel(ctx context.Context, h *models.Hotel) error {
	h.ID = uuid.New()
	m.hotels[h.ID] = *h
	return nil
}

func (m *memStore) UpdateHotel(ctx context.Context, h *models.Hotel) error {
	if _, err := m.GetHotel(ctx, h.ConventionID, h.ID); err != nil {
		return err
	}
	m.hotels[h.ID] = *h
	return nil
}

func (m *memStore) DeleteHotel(ctx context.Context, conventionID, id uuid.UUID) error {
	if _, err := m.GetHotel(ctx, conventionID, id); err != nil {
		return err
	}
	delete(m.hotels, id)
	return nil
}

// withConvention stands in for conventions.RequireManage.
func withConvention(conv *models.Convention) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(conventions.ContextConvention, conv)
		c.Next()
	}
}

func newRouter(store Store, conv *models.Convention) *gin.Engine {
	gin.SetMode(gin.TestMode)
	validation.Init()
	h := NewHandler(store, nil)
	r := gin.New()
	g := r.Group("/conventions/:id", withConvention(conv))
	g.GET("/venues", h.ListVenues)
	g.POST("/venues", h.CreateVenue)
	g.PUT("/venues/:itemId", h.UpdateVenue)
	g.DELETE("/venues/:itemId", h.DeleteVenue)
	g.POST("/hotels", h.CreateHotel)
	g.GET("/hotels/:itemId", h.GetHotel)
	return r
}

func send(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateVenueWithPhotos(t *testing.T) {
	store := newMemStore()
	conv := &models.Convention{ID: uuid.New()}
	r := newRouter(store, conv)
	base := "/conventions/" + conv.ID.String()

	w := send(t, r, http.MethodPost, base+"/venues", gin.H{
		"name":             "Hall A",
		"country_code":     "us",
		"is_primary_venue": true,
		"photos": []gin.H{
			{"url": "https://cdn.example.com/1.jpg"},
			{"url": "https://cdn.example.com/2.jpg", "caption": "stage"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Len(t, store.venues, 1)
	for _, v := range store.venues {
		assert.Equal(t, conv.ID, v.ConventionID)
		assert.Equal(t, "US", *v.CountryCode)
		require.Len(t, v.Photos, 2)
		assert.Equal(t, 0, v.Photos[0].SortOrder)
		assert.Equal(t, 1, v.Photos[1].SortOrder)
		assert.Equal(t, "stage", v.Photos[1].Caption)
	}
}

func TestVenueValidation(t *testing.T) {
	conv := &models.Convention{ID: uuid.New()}
	r := newRouter(newMemStore(), conv)
	base := "/conventions/" + conv.ID.String()

	w := send(t, r, http.MethodPost, base+"/venues", gin.H{"name": "Hall", "latitude": 123.0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "latitude")

	w = send(t, r, http.MethodPost, base+"/venues", gin.H{"name": "Hall", "photos": []gin.H{{"url": "not a url"}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVenueScopedToConvention(t *testing.T) {
	store := newMemStore()
	other := models.Venue{ID: uuid.New(), ConventionID: uuid.New(), Name: "Elsewhere"}
	store.venues[other.ID] = other
	conv := &models.Convention{ID: uuid.New()}
	r := newRouter(store, conv)
	base := "/conventions/" + conv.ID.String()

	w := send(t, r, http.MethodPut, base+"/venues/"+other.ID.String(), gin.H{"name": "Mine now"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = send(t, r, http.MethodDelete, base+"/venues/"+other.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Elsewhere", store.venues[other.ID].Name)

	w = send(t, r, http.MethodDelete, base+"/venues/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHotelRoundTrip(t *testing.T) {
	store := newMemStore()
	conv := &models.Convention{ID: uuid.New()}
	r := newRouter(store, conv)
	base := "/conventions/" + conv.ID.String()

	w := send(t, r, http.MethodPost, base+"/hotels", gin.H{
		"name":              "Grand",
		"booking_url":       "https://book.example.com",
		"group_rate_code":   "CON24",
		"group_rate_cutoff": "2024-05-01T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var env struct {
		Data models.Hotel `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))

	w = send(t, r, http.MethodGet, base+"/hotels/"+env.Data.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "CON24")
}

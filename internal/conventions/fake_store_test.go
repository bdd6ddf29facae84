package conventions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/apperrors"
)

// memStore mirrors the repository, including the partial unique index on
// active slugs.
type memStore struct {
	mu     sync.Mutex
	rows   map[uuid.UUID]*models.Convention
	series map[uuid.UUID]uuid.UUID
	writes int
	copies []uuid.UUID
}

func newMemStore() *memStore {
	return &memStore{rows: map[uuid.UUID]*models.Convention{}, series: map[uuid.UUID]uuid.UUID{}}
}

func (m *memStore) ownerOf(c *models.Convention) uuid.UUID {
	if c.SeriesID != nil {
		if o, ok := m.series[*c.SeriesID]; ok {
			return o
		}
	}
	return c.CreatedBy
}

func (m *memStore) slugTaken(slug string, except uuid.UUID) bool {
	for id, c := range m.rows {
		if id != except && c.DeletedAt == nil && c.Slug == slug {
			return true
		}
	}
	return false
}

func (m *memStore) insert(c *models.Convention) error {
	if m.slugTaken(c.Slug, uuid.Nil) {
		return apperrors.Conflict("slug is already in use")
	}
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	c.OwnerID = m.ownerOf(c)
	cp := *c
	m.rows[c.ID] = &cp
	m.writes++
	return nil
}

func (m *memStore) Create(ctx context.Context, c *models.Convention) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insert(c)
}

func (m *memStore) CreateCopy(ctx context.Context, c *models.Convention, sourceID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.insert(c); err != nil {
		return err
	}
	m.copies = append(m.copies, sourceID)
	return nil
}

func (m *memStore) get(id uuid.UUID) (*models.Convention, error) {
	c, ok := m.rows[id]
	if !ok {
		return nil, apperrors.NotFound("convention not found")
	}
	cp := *c
	cp.OwnerID = m.ownerOf(c)
	return &cp, nil
}

func (m *memStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Convention, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(id)
}

func (m *memStore) GetBySlug(ctx context.Context, slug string) (*models.Convention, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.rows {
		if c.DeletedAt == nil && c.Slug == slug {
			return m.get(id)
		}
	}
	return nil, apperrors.NotFound("convention not found")
}

func (m *memStore) FindActiveBySlug(ctx context.Context, slug string, excludeID *uuid.UUID) (*models.Convention, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.rows {
		if excludeID != nil && id == *excludeID {
			continue
		}
		if c.DeletedAt == nil && c.Slug == slug {
			return m.get(id)
		}
	}
	return nil, nil
}

func (m *memStore) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Convention, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Convention
	for _, id := range ids {
		if c, err := m.get(id); err == nil {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memStore) List(ctx context.Context, f ListFilter) ([]models.Convention, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Convention
	for id := range m.rows {
		c, _ := m.get(id)
		if f.OnlyDeleted && c.DeletedAt == nil {
			continue
		}
		if !f.OnlyDeleted && !f.IncludeDeleted && c.DeletedAt != nil {
			continue
		}
		if f.Status != nil && c.Status != *f.Status {
			continue
		}
		if f.OwnerID != nil && c.OwnerID != *f.OwnerID {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, len(out), nil
}

func (m *memStore) Update(ctx context.Context, c *models.Convention) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slugTaken(c.Slug, c.ID) {
		return apperrors.Conflict("slug is already in use")
	}
	cp := *c
	m.rows[c.ID] = &cp
	m.writes++
	return nil
}

func (m *memStore) SetStatus(ctx context.Context, id uuid.UUID, status models.ConventionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[id].Status = status
	m.writes++
	return nil
}

func (m *memStore) BulkSetStatus(ctx context.Context, ids []uuid.UUID, status models.ConventionStatus) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		if c, ok := m.rows[id]; ok && c.DeletedAt == nil {
			c.Status = status
			n++
		}
	}
	m.writes++
	return n, nil
}

func (m *memStore) SoftDelete(ctx context.Context, id uuid.UUID, deletedSlug, originalSlug string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.rows[id]
	orig := originalSlug
	c.Slug, c.OriginalSlug, c.DeletedAt = deletedSlug, &orig, &at
	m.writes++
	return nil
}

func (m *memStore) BulkSoftDelete(ctx context.Context, ids []uuid.UUID, rename func(string) string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		c, ok := m.rows[id]
		if !ok || c.DeletedAt != nil {
			continue
		}
		orig := c.Slug
		c.Slug, c.OriginalSlug, c.DeletedAt = rename(orig), &orig, &at
		n++
	}
	m.writes++
	return n, nil
}

func (m *memStore) Restore(ctx context.Context, id uuid.UUID, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slugTaken(slug, id) {
		return apperrors.Conflict("slug is already in use")
	}
	c := m.rows[id]
	c.Slug, c.OriginalSlug, c.DeletedAt = slug, nil, nil
	m.writes++
	return nil
}

func (m *memStore) ExpirePublished(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, c := range m.rows {
		if c.Status == models.ConventionPublished && c.DeletedAt == nil && c.EndDate != nil && c.EndDate.Before(now) {
			c.Status = models.ConventionPast
			n++
		}
	}
	return n, nil
}

func (m *memStore) SeriesOwner(ctx context.Context, seriesID uuid.UUID) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.series[seriesID]
	if !ok {
		return uuid.Nil, apperrors.NotFound("series not found")
	}
	return o, nil
}

// activeSlugs returns the slugs of all non-deleted rows.
func (m *memStore) activeSlugs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, c := range m.rows {
		if c.DeletedAt == nil {
			out = append(out, c.Slug)
		}
	}
	return out
}

func (m *memStore) raw(id uuid.UUID) models.Convention {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.rows[id]
}

package venues

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/apperrors"
	"github.com/conventionhub/backend/pkg/database"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// photoTable names a photo table and its parent column.
type photoTable struct {
	table  string
	parent string
}

var (
	venuePhotos = photoTable{table: "venue_photos", parent: "venue_id"}
	hotelPhotos = photoTable{table: "hotel_photos", parent: "hotel_id"}
)

// Repository handles venue and hotel persistence. Every query is scoped by
// convention id so ids from another convention read as not found.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a venues repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (p photoTable) replace(ctx context.Context, tx pgx.Tx, parentID uuid.UUID, photos []models.Photo) error {
	if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, p.table, p.parent), parentID); err != nil {
		return apperrors.Internal("clear photos", err)
	}
	for i := range photos {
		err := tx.QueryRow(ctx, fmt.Sprintf(`INSERT INTO %s (%s, url, caption, sort_order) VALUES ($1, $2, $3, $4) RETURNING id`,
			p.table, p.parent), parentID, photos[i].URL, photos[i].Caption, photos[i].SortOrder).Scan(&photos[i].ID)
		if err != nil {
			return apperrors.Internal("insert photo", err)
		}
	}
	return nil
}

func (p photoTable) load(ctx context.Context, q querier, parentIDs []uuid.UUID) (map[uuid.UUID][]models.Photo, error) {
	out := make(map[uuid.UUID][]models.Photo, len(parentIDs))
	if len(parentIDs) == 0 {
		return out, nil
	}
	rows, err := q.Query(ctx, fmt.Sprintf(`SELECT %s, id, url, caption, sort_order FROM %s
		WHERE %s = ANY($1) ORDER BY sort_order, id`, p.parent, p.table, p.parent), parentIDs)
	if err != nil {
		return nil, apperrors.Internal("load photos", err)
	}
	defer rows.Close()
	for rows.Next() {
		var parent uuid.UUID
		var ph models.Photo
		if err := rows.Scan(&parent, &ph.ID, &ph.URL, &ph.Caption, &ph.SortOrder); err != nil {
			return nil, apperrors.Internal("scan photo", err)
		}
		out[parent] = append(out[parent], ph)
	}
	return out, rows.Err()
}

func notFound(err error, what string) error {
	if database.IsNoRows(err) {
		return apperrors.NotFound(what + " not found")
	}
	return apperrors.Internal("write "+what, err)
}

const venueColumns = `id, convention_id, name, address, city, country_code, website_url,
	latitude, longitude, is_primary_venue, created_at, updated_at`

func scanVenue(row pgx.Row) (*models.Venue, error) {
	var v models.Venue
	err := row.Scan(&v.ID, &v.ConventionID, &v.Name, &v.Address, &v.City, &v.CountryCode, &v.WebsiteURL,
		&v.Latitude, &v.Longitude, &v.IsPrimaryVenue, &v.CreatedAt, &v.UpdatedAt)
	return &v, err
}

// ListVenues returns a convention's venues with photos, primary first.
func (r *Repository) ListVenues(ctx context.Context, conventionID uuid.UUID) ([]models.Venue, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+venueColumns+` FROM venues
		WHERE convention_id = $1 ORDER BY is_primary_venue DESC, name`, conventionID)
	if err != nil {
		return nil, apperrors.Internal("list venues", err)
	}
	defer rows.Close()
	list := []models.Venue{}
	var ids []uuid.UUID
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, apperrors.Internal("scan venue", err)
		}
		list = append(list, *v)
		ids = append(ids, v.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("list venues", err)
	}
	rows.Close()
	photos, err := venuePhotos.load(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Photos = withEmpty(photos[list[i].ID])
	}
	return list, nil
}

// GetVenue returns one venue of the convention.
func (r *Repository) GetVenue(ctx context.Context, conventionID, id uuid.UUID) (*models.Venue, error) {
	v, err := scanVenue(r.pool.QueryRow(ctx, `SELECT `+venueColumns+` FROM venues
		WHERE id = $1 AND convention_id = $2`, id, conventionID))
	if err != nil {
		return nil, notFound(err, "venue")
	}
	photos, err := venuePhotos.load(ctx, r.pool, []uuid.UUID{v.ID})
	if err != nil {
		return nil, err
	}
	v.Photos = withEmpty(photos[v.ID])
	return v, nil
}

// CreateVenue inserts a venue and its photos in one transaction.
func (r *Repository) CreateVenue(ctx context.Context, v *models.Venue) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		got, err := scanVenue(tx.QueryRow(ctx, `INSERT INTO venues
			(convention_id, name, address, city, country_code, website_url, latitude, longitude, is_primary_venue)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING `+venueColumns,
			v.ConventionID, v.Name, v.Address, v.City, v.CountryCode, v.WebsiteURL, v.Latitude, v.Longitude, v.IsPrimaryVenue))
		if err != nil {
			return notFound(err, "venue")
		}
		photos := v.Photos
		*v = *got
		v.Photos = withEmpty(photos)
		return venuePhotos.replace(ctx, tx, v.ID, v.Photos)
	})
}

// UpdateVenue overwrites a venue and replaces its photos in one transaction.
func (r *Repository) UpdateVenue(ctx context.Context, v *models.Venue) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		got, err := scanVenue(tx.QueryRow(ctx, `UPDATE venues SET
			name = $3, address = $4, city = $5, country_code = $6, website_url = $7,
			latitude = $8, longitude = $9, is_primary_venue = $10, updated_at = NOW()
			WHERE id = $1 AND convention_id = $2 RETURNING `+venueColumns,
			v.ID, v.ConventionID, v.Name, v.Address, v.City, v.CountryCode, v.WebsiteURL, v.Latitude, v.Longitude, v.IsPrimaryVenue))
		if err != nil {
			return notFound(err, "venue")
		}
		photos := v.Photos
		*v = *got
		v.Photos = withEmpty(photos)
		return venuePhotos.replace(ctx, tx, v.ID, v.Photos)
	})
}

// DeleteVenue removes a venue and, by cascade, its photos.
func (r *Repository) DeleteVenue(ctx context.Context, conventionID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM venues WHERE id = $1 AND convention_id = $2`, id, conventionID)
	if err != nil {
		return apperrors.Internal("delete venue", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("venue not found")
	}
	return nil
}

const hotelColumns = `id, convention_id, name, address, city, country_code, website_url,
	booking_url, group_rate_code, group_rate_cutoff, is_primary_hotel, created_at, updated_at`

func scanHotel(row pgx.Row) (*models.Hotel, error) {
	var h models.Hotel
	err := row.Scan(&h.ID, &h.ConventionID, &h.Name, &h.Address, &h.City, &h.CountryCode, &h.WebsiteURL,
		&h.BookingURL, &h.GroupRateCode, &h.GroupRateCutoff, &h.IsPrimaryHotel, &h.CreatedAt, &h.UpdatedAt)
	return &h, err
}

// ListHotels returns a convention's hotels with photos, primary first.
func (r *Repository) ListHotels(ctx context.Context, conventionID uuid.UUID) ([]models.Hotel, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+hotelColumns+` FROM hotels
		WHERE convention_id = $1 ORDER BY is_primary_hotel DESC, name`, conventionID)
	if err != nil {
		return nil, apperrors.Internal("list hotels", err)
	}
	defer rows.Close()
	list := []models.Hotel{}
	var ids []uuid.UUID
	for rows.Next() {
		h, err := scanHotel(rows)
		if err != nil {
			return nil, apperrors.Internal("scan hotel", err)
		}
		list = append(list, *h)
		ids = append(ids, h.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal("list hotels", err)
	}
	rows.Close()
	photos, err := hotelPhotos.load(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Photos = withEmpty(photos[list[i].ID])
	}
	return list, nil
}

// GetHotel returns one hotel of the convention.
func (r *Repository) GetHotel(ctx context.Context, conventionID, id uuid.UUID) (*models.Hotel, error) {
	h, err := scanHotel(r.pool.QueryRow(ctx, `SELECT `+hotelColumns+` FROM hotels
		WHERE id = $1 AND convention_id = $2`, id, conventionID))
	if err != nil {
		return nil, notFound(err, "hotel")
	}
	photos, err := hotelPhotos.load(ctx, r.pool, []uuid.UUID{h.ID})
	if err != nil {
		return nil, err
	}
	h.Photos = withEmpty(photos[h.ID])
	return h, nil
}

// CreateHotel inserts a hotel and its photos in one transaction.
func (r *Repository) CreateHotel(ctx context.Context, h *models.Hotel) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		got, err := scanHotel(tx.QueryRow(ctx, `INSERT INTO hotels
			(convention_id, name, address, city, country_code, website_url, booking_url, group_rate_code, group_rate_cutoff, is_primary_hotel)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING `+hotelColumns,
			h.ConventionID, h.Name, h.Address, h.City, h.CountryCode, h.WebsiteURL, h.BookingURL,
			h.GroupRateCode, h.GroupRateCutoff, h.IsPrimaryHotel))
		if err != nil {
			return notFound(err, "hotel")
		}
		photos := h.Photos
		*h = *got
		h.Photos = withEmpty(photos)
		return hotelPhotos.replace(ctx, tx, h.ID, h.Photos)
	})
}

// UpdateHotel overwrites a hotel and replaces its photos in one transaction.
func (r *Repository) UpdateHotel(ctx context.Context, h *models.Hotel) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		got, err := scanHotel(tx.QueryRow(ctx, `UPDATE hotels SET
			name = $3, address = $4, city = $5, country_code = $6, website_url = $7, booking_url = $8,
			group_rate_code = $9, group_rate_cutoff = $10, is_primary_hotel = $11, updated_at = NOW()
			WHERE id = $1 AND convention_id = $2 RETURNING `+hotelColumns,
			h.ID, h.ConventionID, h.Name, h.Address, h.City, h.CountryCode, h.WebsiteURL, h.BookingURL,
			h.GroupRateCode, h.GroupRateCutoff, h.IsPrimaryHotel))
		if err != nil {
			return notFound(err, "hotel")
		}
		photos := h.Photos
		*h = *got
		h.Photos = withEmpty(photos)
		return hotelPhotos.replace(ctx, tx, h.ID, h.Photos)
	})
}

// DeleteHotel removes a hotel and, by cascade, its photos.
func (r *Repository) DeleteHotel(ctx context.Context, conventionID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM hotels WHERE id = $1 AND convention_id = $2`, id, conventionID)
	if err != nil {
		return apperrors.Internal("delete hotel", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("hotel not found")
	}
	return nil
}

func withEmpty(p []models.Photo) []models.Photo {
	if p == nil {
		return []models.Photo{}
	}
	return p
}

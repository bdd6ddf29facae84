package models

import (
	"time"

	"github.com/google/uuid"
)

// Photo is an image attached to a venue or hotel.
type Photo struct {
	ID        uuid.UUID `json:"id"`
	URL       string    `json:"url"`
	Caption   string    `json:"caption"`
	SortOrder int       `json:"sort_order"`
}

// Venue is a location where a convention takes place.
type Venue struct {
	ID             uuid.UUID `json:"id"`
	ConventionID   uuid.UUID `json:"convention_id"`
	Name           string    `json:"name"`
	Address        string    `json:"address"`
	City           string    `json:"city"`
	CountryCode    *string   `json:"country_code,omitempty"`
	WebsiteURL     *string   `json:"website_url,omitempty"`
	Latitude       *float64  `json:"latitude,omitempty"`
	Longitude      *float64  `json:"longitude,omitempty"`
	IsPrimaryVenue bool      `json:"is_primary_venue"`
	Photos         []Photo   `json:"photos"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Hotel is a partner hotel for a convention.
type Hotel struct {
	ID              uuid.UUID  `json:"id"`
	ConventionID    uuid.UUID  `json:"convention_id"`
	Name            string     `json:"name"`
	Address         string     `json:"address"`
	City            string     `json:"city"`
	CountryCode     *string    `json:"country_code,omitempty"`
	WebsiteURL      *string    `json:"website_url,omitempty"`
	BookingURL      *string    `json:"booking_url,omitempty"`
	GroupRateCode   *string    `json:"group_rate_code,omitempty"`
	GroupRateCutoff *time.Time `json:"group_rate_cutoff,omitempty"`
	IsPrimaryHotel  bool       `json:"is_primary_hotel"`
	Photos          []Photo    `json:"photos"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

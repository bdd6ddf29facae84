package models

import (
	"time"

	"github.com/google/uuid"
)

// ConventionStatus is the lifecycle state of a convention.
// Soft deletion is tracked separately through DeletedAt.
type ConventionStatus string

const (
	ConventionDraft     ConventionStatus = "DRAFT"
	ConventionPublished ConventionStatus = "PUBLISHED"
	ConventionPast      ConventionStatus = "PAST"
)

// ParseConventionStatus validates s as a convention status.
func ParseConventionStatus(s string) (ConventionStatus, bool) {
	switch ConventionStatus(s) {
	case ConventionDraft, ConventionPublished, ConventionPast:
		return ConventionStatus(s), true
	}
	return "", false
}

// ConventionSeries groups yearly instances of an event owned by one organizer.
type ConventionSeries struct {
	ID              uuid.UUID `json:"id"`
	OrganizerUserID uuid.UUID `json:"organizer_user_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	LogoURL         *string   `json:"logo_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Convention is a single event instance.
type Convention struct {
	ID            uuid.UUID        `json:"id"`
	SeriesID      *uuid.UUID       `json:"series_id,omitempty"`
	CreatedBy     uuid.UUID        `json:"created_by"`
	OwnerID       uuid.UUID        `json:"owner_id"`
	Name          string           `json:"name"`
	Slug          string           `json:"slug"`
	OriginalSlug  *string          `json:"original_slug,omitempty"`
	Status        ConventionStatus `json:"status"`
	Description   string           `json:"description"`
	StartDate     *time.Time       `json:"start_date,omitempty"`
	EndDate       *time.Time       `json:"end_date,omitempty"`
	City          string           `json:"city"`
	StateCode     *string          `json:"state_code,omitempty"`
	CountryCode   *string          `json:"country_code,omitempty"`
	Timezone      *string          `json:"timezone,omitempty"`
	CurrencyCode  *string          `json:"currency_code,omitempty"`
	WebsiteURL    *string          `json:"website_url,omitempty"`
	CoverImageURL *string          `json:"cover_image_url,omitempty"`
	DeletedAt     *time.Time       `json:"deleted_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// IsDeleted reports whether the convention is soft-deleted.
func (c *Convention) IsDeleted() bool { return c.DeletedAt != nil }

// ConventionMedia is an uploaded image or video attached to a convention.
type ConventionMedia struct {
	ID           uuid.UUID `json:"id"`
	ConventionID uuid.UUID `json:"convention_id"`
	URL          string    `json:"url"`
	StorageKey   string    `json:"-"`
	MediaType    string    `json:"media_type"`
	Caption      string    `json:"caption"`
	SortOrder    int       `json:"sort_order"`
	CreatedAt    time.Time `json:"created_at"`
}

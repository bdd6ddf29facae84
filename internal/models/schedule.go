package models

import (
	"time"

	"github.com/google/uuid"
)

// ScheduleDay is one day of a convention, numbered from the start date.
type ScheduleDay struct {
	ID           uuid.UUID                `json:"id"`
	ConventionID uuid.UUID                `json:"convention_id"`
	DayOffset    int                      `json:"day_offset"`
	Label        string                   `json:"label"`
	Items        []ConventionScheduleItem `json:"items"`
}

// ConventionScheduleItem is a programme entry within a day.
type ConventionScheduleItem struct {
	ID               uuid.UUID `json:"id"`
	ConventionID     uuid.UUID `json:"convention_id"`
	ScheduleDayID    uuid.UUID `json:"schedule_day_id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Location         string    `json:"location"`
	StartTimeMinutes int       `json:"start_time_minutes"`
	DurationMinutes  int       `json:"duration_minutes"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

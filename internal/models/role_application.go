package models

import (
	"time"

	"github.com/google/uuid"
)

// ApplicationStatus is the state of a role application.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "PENDING"
	ApplicationApproved ApplicationStatus = "APPROVED"
	ApplicationRejected ApplicationStatus = "REJECTED"
)

// RoleApplication is a user's request to be granted an elevated role.
type RoleApplication struct {
	ID            uuid.UUID         `json:"id"`
	UserID        uuid.UUID         `json:"user_id"`
	RequestedRole string            `json:"requested_role"`
	Status        ApplicationStatus `json:"status"`
	Message       string            `json:"message"`
	ReviewedBy    *uuid.UUID        `json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time        `json:"reviewed_at,omitempty"`
	ReviewNote    string            `json:"review_note,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`

	// Populated on admin listings.
	UserEmail string `json:"user_email,omitempty"`
	UserName  string `json:"user_name,omitempty"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is one entry in a user's role set. A user may hold several.
type Role string

const (
	RoleUser         Role = "USER"
	RoleOrganizer    Role = "ORGANIZER"
	RoleAdmin        Role = "ADMIN"
	RoleTalent       Role = "TALENT"
	RoleBrandCreator Role = "BRAND_CREATOR"
)

// AllRoles lists every role the platform knows about.
var AllRoles = []Role{RoleUser, RoleOrganizer, RoleAdmin, RoleTalent, RoleBrandCreator}

// ParseRole returns the Role for s, or false if s is not a known role.
func ParseRole(s string) (Role, bool) {
	for _, r := range AllRoles {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// HasRole reports whether roles contains r.
func HasRole(roles []Role, r Role) bool {
	for _, have := range roles {
		if have == r {
			return true
		}
	}
	return false
}

// User represents a platform user.
type User struct {
	ID              uuid.UUID  `json:"id"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"`
	Name            string     `json:"name"`
	ImageURL        *string    `json:"image_url,omitempty"`
	Roles           []Role     `json:"roles"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	ImageURL      *string   `json:"image_url,omitempty"`
	Roles         []Role    `json:"roles"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		ImageURL:      u.ImageURL,
		Roles:         u.Roles,
		EmailVerified: u.EmailVerifiedAt != nil,
		CreatedAt:     u.CreatedAt,
	}
}

// VerificationToken purposes.
const (
	TokenPurposeEmailVerification = "email_verification"
	TokenPurposePasswordReset     = "password_reset"
)

// VerificationToken is a single-use token sent by email.
type VerificationToken struct {
	ID         uuid.UUID  `json:"id"`
	Identifier string     `json:"identifier"`
	Token      string     `json:"-"`
	Purpose    string     `json:"purpose"`
	ExpiresAt  time.Time  `json:"expires_at"`
	UsedAt     *time.Time `json:"used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

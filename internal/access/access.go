// Package access decides whether a session may perform an action.
//
// A missing session is always Unauthenticated; an authenticated session that
// lacks the role or ownership is Forbidden. Callers must not collapse the two.
package access

import (
	"github.com/google/uuid"

	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/apperrors"
)

// Session is the authenticated principal for a request.
type Session struct {
	UserID uuid.UUID
	Email  string
	Roles  []models.Role
}

// Has reports whether the session holds role r.
func (s *Session) Has(r models.Role) bool {
	return s != nil && models.HasRole(s.Roles, r)
}

// IsAdmin reports whether the session holds ADMIN.
func (s *Session) IsAdmin() bool { return s.Has(models.RoleAdmin) }

// Capability names an access rule.
type Capability int

const (
	// CapAuthenticated only requires a session.
	CapAuthenticated Capability = iota
	// CapAdmin requires the ADMIN role.
	CapAdmin
	// CapOrganizer requires the ORGANIZER role (or ADMIN).
	CapOrganizer
	// CapOrganizerOwns requires ORGANIZER and ownership of the resource, or ADMIN.
	CapOrganizerOwns
	// CapSelf requires the session user to be the resource's user, or ADMIN.
	CapSelf
)

func (c Capability) String() string {
	switch c {
	case CapAuthenticated:
		return "authenticated"
	case CapAdmin:
		return "admin"
	case CapOrganizer:
		return "organizer"
	case CapOrganizerOwns:
		return "organizer-owns"
	case CapSelf:
		return "self"
	}
	return "unknown"
}

// Authorize returns nil when s may act with capability cap on a resource
// owned by ownerID. ownerID is ignored for capabilities without ownership.
func Authorize(s *Session, cap Capability, ownerID *uuid.UUID) error {
	if s == nil || s.UserID == uuid.Nil {
		return apperrors.Unauthenticated("authentication required")
	}
	switch cap {
	case CapAuthenticated:
		return nil
	case CapAdmin:
		if s.IsAdmin() {
			return nil
		}
		return apperrors.Forbidden("admin role required")
	case CapOrganizer:
		if s.Has(models.RoleOrganizer) || s.IsAdmin() {
			return nil
		}
		return apperrors.Forbidden("organizer role required")
	case CapOrganizerOwns:
		if s.IsAdmin() {
			return nil
		}
		if !s.Has(models.RoleOrganizer) {
			return apperrors.Forbidden("organizer role required")
		}
		if ownerID == nil || *ownerID != s.UserID {
			return apperrors.Forbidden("you do not own this resource")
		}
		return nil
	case CapSelf:
		if s.IsAdmin() {
			return nil
		}
		if ownerID == nil || *ownerID != s.UserID {
			return apperrors.Forbidden("you can only act on your own account")
		}
		return nil
	}
	return apperrors.Forbidden("access denied")
}

// CanManage reports whether s may manage a resource owned by ownerID.
// It is the boolean form of CapOrganizerOwns used for filtering.
func CanManage(s *Session, ownerID uuid.UUID) bool {
	return Authorize(s, CapOrganizerOwns, &ownerID) == nil
}

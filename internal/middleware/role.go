package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/conventionhub/backend/internal/access"
	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/apperrors"
	"github.com/conventionhub/backend/pkg/response"
)

// RequireRole allows sessions holding at least one of roles. ADMIN always passes.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := SessionFrom(c)
		if s == nil {
			response.Error(c, nil, apperrors.Unauthenticated("authentication required"))
			c.Abort()
			return
		}
		if s.IsAdmin() {
			c.Next()
			return
		}
		for _, r := range roles {
			if s.Has(r) {
				c.Next()
				return
			}
		}
		response.Error(c, nil, apperrors.Forbidden("insufficient permissions"))
		c.Abort()
	}
}

// RequireCapability enforces an ownerless capability such as CapAdmin.
func RequireCapability(capability access.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := access.Authorize(SessionFrom(c), capability, nil); err != nil {
			response.Error(c, nil, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

package conventions

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/conventionhub/backend/internal/middleware"
	"github.com/conventionhub/backend/internal/models"
	"github.com/conventionhub/backend/pkg/apperrors"
	"github.com/conventionhub/backend/pkg/response"
)

// ContextConvention is the context key for the convention loaded by RequireManage.
const ContextConvention = "convention"

// RequireManage validates that the session may manage the convention named by
// the :id route param (its organizer, or an admin). Call after JWT.
// Soft-deleted conventions are rejected; nested resources are edited only on live rows.
func RequireManage(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.BadRequest(c, "invalid convention id")
			c.Abort()
			return
		}
		conv, err := svc.Manageable(c.Request.Context(), middleware.SessionFrom(c), id)
		if err == nil {
			err = activeOnly(conv)
		}
		if err != nil {
			response.Error(c, nil, err)
			c.Abort()
			return
		}
		c.Set(ContextConvention, conv)
		c.Next()
	}
}

// RequireVisible loads the convention named by :id for read-only routes:
// published conventions are public, drafts need manage rights.
func RequireVisible(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.BadRequest(c, "invalid convention id")
			c.Abort()
			return
		}
		conv, err := svc.Get(c.Request.Context(), middleware.SessionFrom(c), id)
		if err != nil {
			response.Error(c, nil, err)
			c.Abort()
			return
		}
		c.Set(ContextConvention, conv)
		c.Next()
	}
}

// FromContext returns the convention stored by RequireManage or RequireVisible.
func FromContext(c *gin.Context) (*models.Convention, error) {
	v, ok := c.Get(ContextConvention)
	if !ok {
		return nil, apperrors.Internal("convention not loaded", nil)
	}
	conv, ok := v.(*models.Convention)
	if !ok {
		return nil, apperrors.Internal("convention not loaded", nil)
	}
	return conv, nil
}

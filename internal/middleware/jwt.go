package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/conventionhub/backend/internal/access"
	"github.com/conventionhub/backend/pkg/response"
)

// ContextSession is the gin context key holding *access.Session.
const ContextSession = "session"

// SessionValidator turns a bearer token into a session.
type SessionValidator interface {
	Session(token string) (*access.Session, error)
}

// JWT returns a middleware that requires a valid bearer token and stores the session in context.
func JWT(v SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, "missing or invalid authorization header")
			c.Abort()
			return
		}
		s, err := v.Session(token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextSession, s)
		c.Next()
	}
}

// OptionalJWT stores the session when a valid bearer token is present and
// otherwise continues anonymously.
func OptionalJWT(v SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if s, err := v.Session(token); err == nil {
				c.Set(ContextSession, s)
			}
		}
		c.Next()
	}
}

// SessionFrom returns the request session, or nil for anonymous requests.
func SessionFrom(c *gin.Context) *access.Session {
	v, ok := c.Get(ContextSession)
	if !ok {
		return nil
	}
	s, _ := v.(*access.Session)
	return s
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nutrilens/backend/internal/services"
	"github.com/nutrilens/backend/pkg/response"
)

const (
	ContextUserID  = "user_id"
	ContextEmail   = "email"
	ContextIsAdmin = "is_admin"
)

// Verifier resolves a bearer token to a caller identity.
type Verifier interface {
	Verify(token string) (services.Identity, error)
}

// AuthRequired validates the Authorization header against the identity
// provider and puts the resolved identity into the request context.
func AuthRequired(verifier Verifier, quota *services.QuotaService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "authorization header required")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header format")
			c.Abort()
			return
		}

		id, err := verifier.Verify(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid authentication token")
			c.Abort()
			return
		}

		c.Set(ContextUserID, id.UserID)
		c.Set(ContextEmail, id.Email)
		c.Set(ContextIsAdmin, quota.IsPrivileged(id.UserID))

		c.Next()
	}
}

// AdminRequired rejects callers that are not the configured admin identity.
// It must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			response.Forbidden(c, "admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetIdentity returns the resolved identity from the request context.
func GetIdentity(c *gin.Context) services.Identity {
	return services.Identity{
		UserID: c.GetString(ContextUserID),
		Email:  c.GetString(ContextEmail),
	}
}

// IsAdmin reports whether the current caller is the privileged identity.
func IsAdmin(c *gin.Context) bool {
	return c.GetBool(ContextIsAdmin)
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/openfund/pooling/internal/auth"
	"github.com/openfund/pooling/internal/domain"
)

// Context key constants for gin.Context values set by middleware.
const (
	CtxPrincipal = "principal"
)

// ──────────────────────────────────────────────────────────────────────────────
// PrincipalMiddleware
// ──────────────────────────────────────────────────────────────────────────────

// PrincipalMiddleware validates the Bearer token in the Authorization header.
// On success it stores the caller's principal (uuid.UUID) in the gin context.
// There are no roles: operator status is per pool, enforced in the services
// against the pool's own operator column.
func PrincipalMiddleware(jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": domain.ErrUnauthorized.Error(),
			})
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		principal, err := auth.ParseToken(jwtSecret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": domain.ErrTokenInvalid.Error(),
			})
			return
		}

		c.Set(CtxPrincipal, principal)
		c.Next()
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper — extract the principal from context (for use in handlers)
// ──────────────────────────────────────────────────────────────────────────────

// GetPrincipal retrieves the authenticated caller's UUID from the gin context.
// Returns uuid.Nil if the middleware was not applied or the value is missing.
func GetPrincipal(c *gin.Context) uuid.UUID {
	v, exists := c.Get(CtxPrincipal)
	if !exists {
		return uuid.Nil
	}
	id, _ := v.(uuid.UUID)
	return id
}

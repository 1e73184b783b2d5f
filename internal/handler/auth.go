package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/grainly/storefront/internal/domain/admin"
)

// callerKey is the gin context key holding the authenticated admin.
const callerKey = "admin-caller"

// requireAuth authenticates the bearer token and stores the resolved admin in
// the request context. Requests without a valid token are rejected with 401.
func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "authorization required"})
			return
		}

		a, err := h.admins.Authenticate(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid or expired token"})
			return
		}

		c.Set(callerKey, a)
		c.Next()
	}
}

// requireRole rejects authenticated callers that hold none of the allowed
// roles. Must be mounted after requireAuth.
func (h *Handler) requireRole(allowed ...admin.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		a := caller(c)
		if a == nil || !a.HasRole(allowed...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "insufficient permissions"})
			return
		}
		c.Next()
	}
}

// caller returns the authenticated admin stored by requireAuth, or nil.
func caller(c *gin.Context) *admin.Admin {
	if v, ok := c.Get(callerKey); ok {
		if a, ok := v.(*admin.Admin); ok {
			return a
		}
	}
	return nil
}

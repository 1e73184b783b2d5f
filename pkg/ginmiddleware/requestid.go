// Package ginmiddleware provides the HTTP middleware stack: request ids,
// panic recovery, request logging, rate limiting, and Prometheus metrics.
package ginmiddleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// requestIDKey is the gin context key for the request ID value.
const requestIDKey = "request-id"

// RequestIDFrom extracts the request ID from the gin context. It returns an
// empty string if no request ID is present.
func RequestIDFrom(c *gin.Context) string {
	if id, ok := c.Get(requestIDKey); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

// RequestID ensures every request has a unique identifier. If the incoming
// request already carries a valid X-Request-ID header, that value is reused.
// Otherwise a new UUID v4 is generated. Incoming values are validated: they
// must be at most 128 bytes and contain only printable ASCII.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if !isValidRequestID(id) {
			id = uuid.New().String()
		}

		c.Header("X-Request-ID", id)
		c.Set(requestIDKey, id)
		c.Next()
	}
}

// isValidRequestID checks that id is non-empty, at most 128 bytes, and
// contains only printable ASCII (0x20-0x7E).
func isValidRequestID(id string) bool {
	if len(id) == 0 || len(id) > 128 {
		return false
	}
	for i := range len(id) {
		if id[i] < 0x20 || id[i] > 0x7E {
			return false
		}
	}
	return true
}

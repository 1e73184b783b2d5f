package ginmiddleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// InjectLogger stores lg in every request context so downstream code can
// retrieve it with zctx.From. The request id, when present, is attached as a
// logger field.
func InjectLogger(lg *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLg := lg
		if id := RequestIDFrom(c); id != "" {
			reqLg = lg.With(zap.String("request_id", id))
		}
		c.Request = c.Request.WithContext(zctx.Base(c.Request.Context(), reqLg))
		c.Next()
	}
}

// LogRequests writes one access log line per request after it completes.
func LogRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		zctx.From(c.Request.Context()).Info("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger writes one access line per request: matched route alongside the raw
// path, identifiers set by earlier middleware, and any error gin collected.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		log.Printf("[HTTP] request_id=%s method=%s route=%s path=%s status=%d user_id=%d latency_ms=%.3f ip=%s errors=%s",
			GetRequestID(c),
			c.Request.Method,
			route,
			c.Request.URL.Path,
			c.Writer.Status(),
			UserID(c),
			float64(time.Since(start).Microseconds())/1000.0,
			c.ClientIP(),
			c.Errors.String(),
		)
	}
}

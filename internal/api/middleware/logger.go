package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dsyorkd/emr-controller/internal/logger"
)

// probe paths are hit every few seconds by orchestration; logging them
// would drown out the lifecycle traffic.
var unloggedPaths = map[string]bool{
	"/health": true,
	"/ready":  true,
}

// AccessLog emits one structured line per completed request, carrying
// the request identifier and acting user when present.
func AccessLog(log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		if unloggedPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"ip":         c.ClientIP(),
			"latency_ms": time.Since(start).Milliseconds(),
		}
		if user := GetUser(c); user != "" {
			fields["user"] = user
		}

		entry := RequestLogger(c, log).WithFields(fields)
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch {
		case c.Writer.Status() >= 500:
			entry.Error("Request failed")
		case c.Writer.Status() >= 400:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request completed")
		}
	}
}

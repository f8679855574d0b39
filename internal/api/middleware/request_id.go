package middleware

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/gin-gonic/gin"

	"github.com/dsyorkd/emr-controller/internal/logger"
)

const (
	// RequestIDHeader is the header the request identifier is read from
	// and echoed back on.
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	requestLogKey   = "request_logger"
)

// RequestID tags every request with an identifier and seeds a
// request-scoped logger carrying it. Identifiers presented by the
// caller are kept so lifecycle operations can be correlated across
// services; everything downstream picks the logger up through
// RequestLogger.
func RequestID(log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = newRequestID()
		}

		c.Header(RequestIDHeader, requestID)
		c.Set(requestIDKey, requestID)
		c.Set(requestLogKey, log.WithField("request_id", requestID))
		c.Next()
	}
}

func newRequestID() string {
	buf := make([]byte, 12)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}

// GetRequestID returns the request identifier, or "" before RequestID
// has run.
func GetRequestID(c *gin.Context) string {
	if requestID, exists := c.Get(requestIDKey); exists {
		return requestID.(string)
	}
	return ""
}

// RequestLogger returns the request-scoped logger seeded by RequestID,
// falling back to the given logger when the middleware has not run.
func RequestLogger(c *gin.Context, fallback logger.Interface) logger.Interface {
	if entry, exists := c.Get(requestLogKey); exists {
		if log, ok := entry.(logger.Interface); ok {
			return log
		}
	}
	return fallback
}

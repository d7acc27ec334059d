package middleware

import (
	"time" // Request latency

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/google/uuid"     // Request identifiers
	"github.com/sirupsen/logrus" // Structured logging
)

// RequestIDHeader is echoed back on every response
const RequestIDHeader = "X-Request-ID"

// RequestID assigns an identifier to each request, keeping one supplied by the client
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader) // Reuse the caller's id if present
		if id == "" {
			id = uuid.NewString() // Otherwise generate one
		}
		c.Set("requestID", id)                     // Store id in context
		c.Writer.Header().Set(RequestIDHeader, id) // Echo id to the client
		c.Next()
	}
}

// RequestLogger logs one line per request with logrus
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now() // Request start time
		c.Next()            // Process request
		entry := logrus.WithFields(logrus.Fields{
			"request_id": c.GetString("requestID"),   // Request identifier
			"method":     c.Request.Method,           // HTTP method
			"path":       c.Request.URL.Path,         // Request path
			"status":     c.Writer.Status(),          // Response status
			"latency":    time.Since(start).String(), // Time spent
			"client_ip":  c.ClientIP(),               // Caller address
		})
		switch {
		case c.Writer.Status() >= 500:
			entry.Error("Request failed") // Server side failure
		case c.Writer.Status() >= 400:
			entry.Warn("Request rejected") // Client side failure
		default:
			entry.Info("Request handled")
		}
	}
}

package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// LoggingMiddleware tags every request with an id and writes one access log
// line per request. Probe and scrape endpoints are not logged.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("requestId", requestID)
		c.Header(RequestIDHeader, requestID)

		path := c.Request.URL.Path
		if path == "/health" || path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		userID := c.GetString(ctxUserID)
		if userID == "" {
			userID = "-"
		}
		log.Printf("%s %s %s %d %s %s user=%s", requestID, c.Request.Method, path, c.Writer.Status(), latency, c.ClientIP(), userID)
	}
}

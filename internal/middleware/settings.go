package middleware

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/cfmail/console/internal/models"
	"github.com/gin-gonic/gin"
)

// ConfigSource supplies the live system settings.
type ConfigSource interface {
	Get(ctx context.Context) (*models.SystemConfig, error)
}

// Limiter counts hits per subject; see redis.FixedWindowLimiter.
type Limiter interface {
	Allow(ctx context.Context, subject string, limit int) (bool, error)
}

// RateLimitWindow is the window apiRateLimit is expressed in.
const RateLimitWindow = time.Minute

// MaintenanceGate answers 503 to non-admin callers while maintenance mode is
// on. Place it after AuthMiddleware where a role is available.
func MaintenanceGate(settings ConfigSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg, err := settings.Get(c.Request.Context())
		if err != nil {
			log.Printf("MaintenanceGate: settings unavailable: %v", err)
			c.Next()
			return
		}
		if cfg.MaintenanceMode && !IsAdmin(c) {
			RespondWithError(c, http.StatusServiceUnavailable, "The system is under maintenance, please try again later")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RateLimit enforces apiRateLimit requests per minute per user, or per
// client IP for anonymous callers. Limiter errors let the request through.
func RateLimit(limiter Limiter, settings ConfigSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg, err := settings.Get(c.Request.Context())
		if err != nil {
			log.Printf("RateLimit: settings unavailable: %v", err)
			c.Next()
			return
		}

		subject := c.GetString(ctxUserID)
		if subject == "" {
			subject = "ip:" + c.ClientIP()
		}

		allowed, err := limiter.Allow(c.Request.Context(), subject, cfg.APIRateLimit)
		if err != nil {
			log.Printf("RateLimit: limiter error for %s: %v", subject, err)
			c.Next()
			return
		}
		if !allowed {
			c.Header("Retry-After", "60")
			RespondWithError(c, http.StatusTooManyRequests, "Too many requests, please slow down")
			c.Abort()
			return
		}
		c.Next()
	}
}

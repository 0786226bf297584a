package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/salonspace/booking-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

// RateLimiter counts requests per key in fixed windows
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error)
}

// RateLimit limits requests per caller for one route class. A nil limiter or
// a non-positive limit disables it; limiter errors let the request through.
func RateLimit(limiter RateLimiter, class string, limit int, window time.Duration, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limit <= 0 {
			c.Next()
			return
		}

		key := class + ":" + callerKey(c)
		allowed, retryAfter, err := limiter.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			logger.WithError(err).WithField("key", key).Warn("Rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		if !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate_limited",
				"message":     "Too many requests. Please try again shortly.",
				"retry_after": seconds,
			})
			return
		}

		c.Next()
	}
}

// callerKey prefers the profile, then the user, then the client IP
func callerKey(c *gin.Context) string {
	if profile, ok := GetProfile(c); ok {
		return "profile:" + profile.ID.String()
	}
	if userCtx, ok := GetUserContext(c); ok {
		return "user:" + userCtx.UserID.String()
	}
	return "ip:" + utils.GetRealIP(c)
}

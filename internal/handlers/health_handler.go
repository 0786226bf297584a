package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// HealthCheck probes one backing service
type HealthCheck func(ctx context.Context) error

// HealthHandler reports service health
type HealthHandler struct {
	database HealthCheck
	redis    HealthCheck
	timeout  time.Duration
	logger   *logrus.Logger
}

// NewHealthHandler creates a new health handler. redis may be nil.
func NewHealthHandler(database, redis HealthCheck, timeout time.Duration, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{
		database: database,
		redis:    redis,
		timeout:  timeout,
		logger:   logger,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	if err := h.database(ctx); err != nil {
		h.logger.WithError(err).Error("Health check failed: database unreachable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "disconnected",
		})
		return
	}

	body := gin.H{
		"status":   "healthy",
		"database": "connected",
		"time":     time.Now().UTC().Format(time.RFC3339),
	}

	// Rate limiting fails open, so redis only degrades the report
	if h.redis != nil {
		if err := h.redis(ctx); err != nil {
			h.logger.WithError(err).Warn("Health check: redis unreachable")
			body["redis"] = "disconnected"
		} else {
			body["redis"] = "connected"
		}
	}

	c.JSON(http.StatusOK, body)
}

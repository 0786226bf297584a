package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/salonspace/booking-backend/internal/models"
	"github.com/salonspace/booking-backend/internal/services"
	"github.com/salonspace/booking-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

// maxWebhookBodyBytes matches the provider's documented payload ceiling
const maxWebhookBodyBytes = 65536

// WebhookProcessor handles one signed provider delivery
type WebhookProcessor interface {
	HandleEvent(ctx context.Context, payload []byte, signature string, meta *utils.RequestMeta) (*services.WebhookOutcome, error)
}

// WebhookHandler receives payment provider webhooks
type WebhookHandler struct {
	processor WebhookProcessor
	logger    *logrus.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(processor WebhookProcessor, logger *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{
		processor: processor,
		logger:    logger,
	}
}

// HandleStripeWebhook handles POST /api/v1/webhooks/stripe
// The raw body is required for signature verification, so it is read before
// any JSON binding.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes+1))
	if err != nil {
		h.logger.WithError(err).Warn("Failed to read webhook body")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   string(models.ErrKindInvalidInput),
			Message: "Failed to read request body",
		})
		return
	}
	if len(payload) > maxWebhookBodyBytes {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:   string(models.ErrKindInvalidInput),
			Message: "Request body too large",
		})
		return
	}

	meta := utils.NewRequestMeta(c)
	outcome, err := h.processor.HandleEvent(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"), &meta)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if outcome.Kind == services.WebhookOutcomeIgnored {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"booking_id": outcome.BookingID,
	})
}

package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/salonspace/booking-backend/internal/models"
	"github.com/salonspace/booking-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

// CheckoutCreator starts a hosted checkout for a booking request
type CheckoutCreator interface {
	CreateCheckout(ctx context.Context, renter *models.Profile, req *models.CreateBookingPaymentRequest, origin string, meta *utils.RequestMeta) (*models.CreateBookingPaymentResponse, error)
}

// PaymentChecker reports the state of a checkout session
type PaymentChecker interface {
	Verify(ctx context.Context, caller *models.Profile, sessionID string, meta *utils.RequestMeta) (*models.VerifyPaymentResponse, error)
}

// PaymentHandler handles booking payment HTTP requests
type PaymentHandler struct {
	checkout CheckoutCreator
	verifier PaymentChecker
	origins  *OriginResolver
	logger   *logrus.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(checkout CheckoutCreator, verifier PaymentChecker, origins *OriginResolver, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{
		checkout: checkout,
		verifier: verifier,
		origins:  origins,
		logger:   logger,
	}
}

// CreateCheckout handles POST /api/v1/payments/checkout
func (h *PaymentHandler) CreateCheckout(c *gin.Context) {
	renter, ok := requireProfile(c)
	if !ok {
		return
	}

	var req models.CreateBookingPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   string(models.ErrKindInvalidInput),
			Message: "Invalid request body",
		})
		return
	}

	meta := utils.NewRequestMeta(c)
	resp, err := h.checkout.CreateCheckout(c.Request.Context(), renter, &req, h.origins.Resolve(c), &meta)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// VerifyPayment handles POST /api/v1/payments/verify
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	caller, ok := requireProfile(c)
	if !ok {
		return
	}

	var req models.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   string(models.ErrKindInvalidInput),
			Message: "Invalid request body",
		})
		return
	}

	meta := utils.NewRequestMeta(c)
	resp, err := h.verifier.Verify(c.Request.Context(), caller, req.SessionID, &meta)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// OriginResolver picks the web app origin used in redirect URLs. A request
// Origin is only trusted when it is an allowed CORS origin.
type OriginResolver struct {
	allowed  map[string]struct{}
	fallback string
}

// NewOriginResolver creates a resolver for the given allowed origins
func NewOriginResolver(allowedOrigins []string, fallback string) *OriginResolver {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin != "" && origin != "*" {
			allowed[origin] = struct{}{}
		}
	}
	return &OriginResolver{
		allowed:  allowed,
		fallback: strings.TrimRight(fallback, "/"),
	}
}

// Resolve returns the trusted origin for the request
func (r *OriginResolver) Resolve(c *gin.Context) string {
	origin := strings.TrimRight(c.GetHeader("Origin"), "/")
	if _, ok := r.allowed[origin]; ok && origin != "" {
		return origin
	}
	return r.fallback
}

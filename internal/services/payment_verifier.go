package services

import (
	"context"
	"strings"
	"time"

	"github.com/salonspace/booking-backend/internal/metrics"
	"github.com/salonspace/booking-backend/internal/models"
	"github.com/salonspace/booking-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

// PaymentVerifier answers client polls about a checkout session. It never
// writes bookings, so it is safe to call any number of times while the
// webhook is still in flight.
type PaymentVerifier struct {
	gateway      PaymentGateway
	materializer *BookingMaterializer
	audit        *AuditService
	timeouts     Timeouts
	logger       *logrus.Logger
}

// NewPaymentVerifier creates a new payment verifier
func NewPaymentVerifier(gateway PaymentGateway, materializer *BookingMaterializer, audit *AuditService, timeouts Timeouts, logger *logrus.Logger) *PaymentVerifier {
	return &PaymentVerifier{
		gateway:      gateway,
		materializer: materializer,
		audit:        audit,
		timeouts:     timeouts,
		logger:       logger,
	}
}

// Verify reports the payment status of a session owned by the caller
func (v *PaymentVerifier) Verify(ctx context.Context, caller *models.Profile, sessionID string, meta *utils.RequestMeta) (*models.VerifyPaymentResponse, error) {
	start := time.Now()
	sessionID = strings.TrimSpace(sessionID)
	audit := models.NewPaymentAudit(models.PaymentEventVerifyRequested, models.PaymentSourceUser).
		SetProfile(caller.ID).
		SetSession(sessionID, "")

	resp, err := v.verify(ctx, caller, sessionID, audit)
	if err != nil {
		kind := models.KindOf(err)
		metrics.ObserveVerification(string(kind))
		if kind == models.ErrKindUnauthorized {
			audit.EventType = models.PaymentEventVerifyUnauthorized
			v.logger.WithFields(logrus.Fields{
				"profile_id": caller.ID,
				"session_id": sessionID,
			}).Warn("Payment verification attempted for another renter's session")
		}
		v.audit.recordFailure(ctx, audit, err, start, meta)
		return nil, err
	}

	metrics.ObserveVerification(metrics.OutcomeSuccess)
	audit.SetProcessingTime(start)
	v.audit.Record(ctx, audit, meta)

	return resp, nil
}

func (v *PaymentVerifier) verify(ctx context.Context, caller *models.Profile, sessionID string, audit *models.PaymentAudit) (*models.VerifyPaymentResponse, error) {
	if sessionID == "" {
		return nil, models.InvalidInput("Session ID is required")
	}

	providerCtx, cancel := v.timeouts.provider(ctx)
	defer cancel()

	providerStart := time.Now()
	session, err := v.gateway.GetCheckoutSession(providerCtx, sessionID)
	metrics.ObserveProviderCall("get_checkout_session", providerStart, err)
	if err != nil {
		return nil, classifyUpstream(providerCtx, err, models.ErrKindInternal, "Failed to verify payment")
	}

	// The renter recorded at checkout must be the caller. Nothing about the
	// session is revealed otherwise.
	if session.Metadata[models.MetadataRenterID] != caller.ID.String() {
		return nil, models.NewAppError(models.ErrKindUnauthorized, "Unauthorized")
	}

	audit.SetSession(session.ID, session.PaymentIntentID)
	audit.SetPaymentStatus(session.PaymentStatus)

	resp := &models.VerifyPaymentResponse{
		Verified:      session.IsPaid(),
		PaymentStatus: session.PaymentStatus,
		Amount:        session.AmountTotal,
	}

	if session.PaymentIntentID == "" {
		return resp, nil
	}

	booking, err := v.materializer.Find(ctx, session.PaymentIntentID)
	if err != nil {
		return nil, err
	}
	if booking != nil {
		resp.BookingExists = true
		bookingID := booking.ID
		resp.BookingID = &bookingID
		audit.SetBooking(booking.ID)
	}

	return resp, nil
}

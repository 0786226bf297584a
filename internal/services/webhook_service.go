package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/salonspace/booking-backend/internal/metrics"
	"github.com/salonspace/booking-backend/internal/models"
	"github.com/salonspace/booking-backend/internal/utils"
	"github.com/salonspace/booking-backend/pkg/validator"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v81"
)

// WebhookOutcomeKind tells the handler how to acknowledge a delivery
type WebhookOutcomeKind string

const (
	WebhookOutcomeIgnored      WebhookOutcomeKind = "ignored"
	WebhookOutcomeMaterialized WebhookOutcomeKind = "materialized"
	WebhookOutcomeDuplicate    WebhookOutcomeKind = "duplicate"
)

// WebhookOutcome is the result of a successfully handled delivery
type WebhookOutcome struct {
	Kind      WebhookOutcomeKind
	EventID   string
	EventType string
	BookingID uuid.UUID
}

// webhookEvent is the closed set of provider events the ingestor understands
type webhookEvent interface {
	eventID() string
	eventType() string
}

// checkoutCompleted is a "checkout.session.completed" delivery
type checkoutCompleted struct {
	id      string
	session *CheckoutSession
}

func (e checkoutCompleted) eventID() string   { return e.id }
func (e checkoutCompleted) eventType() string { return string(stripe.EventTypeCheckoutSessionCompleted) }

// unhandledEvent is any other event kind; it is acknowledged and dropped
type unhandledEvent struct {
	id   string
	kind string
}

func (e unhandledEvent) eventID() string   { return e.id }
func (e unhandledEvent) eventType() string { return e.kind }

// WebhookService ingests signed payment events:
// verify → parse → extract → confirm paid → materialize
type WebhookService struct {
	verifier     EventVerifier
	materializer *BookingMaterializer
	audit        *AuditService
	logger       *logrus.Logger
}

// NewWebhookService creates a new webhook service
func NewWebhookService(verifier EventVerifier, materializer *BookingMaterializer, audit *AuditService, logger *logrus.Logger) *WebhookService {
	return &WebhookService{
		verifier:     verifier,
		materializer: materializer,
		audit:        audit,
		logger:       logger,
	}
}

// HandleEvent processes one raw webhook delivery
func (s *WebhookService) HandleEvent(ctx context.Context, payload []byte, signature string, meta *utils.RequestMeta) (*WebhookOutcome, error) {
	start := time.Now()

	// 1. Verify
	raw, err := s.verifier.ConstructEvent(payload, signature)
	if err != nil {
		s.logger.WithError(err).Warn("Webhook signature verification failed")
		metrics.ObserveWebhook("", string(models.KindOf(err)))
		s.audit.recordFailure(ctx, models.NewPaymentAudit(models.PaymentEventWebhookRejected, models.PaymentSourceStripeWebhook), err, start, meta)
		return nil, err
	}

	// 2. Parse
	event, err := parseWebhookEvent(raw)
	if err != nil {
		s.reject(ctx, raw.ID, string(raw.Type), nil, err, start, meta)
		return nil, err
	}

	completed, ok := event.(checkoutCompleted)
	if !ok {
		s.logger.WithFields(logrus.Fields{
			"event_id":   event.eventID(),
			"event_type": event.eventType(),
		}).Info("Unhandled webhook event type")
		metrics.ObserveWebhook(event.eventType(), metrics.OutcomeIgnored)
		audit := models.NewPaymentAudit(models.PaymentEventWebhookIgnored, models.PaymentSourceStripeWebhook).
			SetProviderEvent(event.eventID()).
			SetDetails(map[string]interface{}{"event_type": event.eventType()})
		audit.SetProcessingTime(start)
		s.audit.Record(ctx, audit, meta)
		return &WebhookOutcome{Kind: WebhookOutcomeIgnored, EventID: event.eventID(), EventType: event.eventType()}, nil
	}

	session := completed.session
	s.logger.WithFields(logrus.Fields{
		"event_id":   completed.id,
		"session_id": session.ID,
	}).Info("Processing completed checkout session")

	// 3. Extract
	checkout, err := extractPaidCheckout(session)
	if err != nil {
		s.reject(ctx, completed.id, completed.eventType(), session, err, start, meta)
		return nil, err
	}

	// 4. Confirm paid
	if !session.IsPaid() {
		err := models.NewAppError(models.ErrKindPaymentNotCompleted, "Payment not completed")
		s.reject(ctx, completed.id, completed.eventType(), session, err, start, meta)
		return nil, err
	}
	if checkout.PaymentIntentID == "" {
		err := models.NewAppError(models.ErrKindMalformedMetadata, "Missing payment intent")
		s.reject(ctx, completed.id, completed.eventType(), session, err, start, meta)
		return nil, err
	}

	// 5-8. Deduplicate, re-validate dates, materialize
	result, err := s.materializer.Materialize(ctx, checkout)
	if err != nil {
		audit := s.sessionAudit(models.PaymentEventWebhookRejected, completed.id, session)
		if models.KindOf(err) == models.ErrKindInternal || models.KindOf(err) == models.ErrKindProviderTimeout {
			audit.EventType = models.PaymentEventBookingConfirmFail
		}
		s.logger.WithError(err).WithField("session_id", session.ID).Error("Failed to materialize booking")
		metrics.ObserveWebhook(completed.eventType(), string(models.KindOf(err)))
		s.audit.recordFailure(ctx, audit, err, start, meta)
		return nil, err
	}

	outcome := &WebhookOutcome{
		Kind:      WebhookOutcomeMaterialized,
		EventID:   completed.id,
		EventType: completed.eventType(),
		BookingID: result.Booking.ID,
	}
	audit := s.sessionAudit(models.PaymentEventBookingConfirmed, completed.id, session).
		SetBooking(result.Booking.ID)
	metricOutcome := metrics.OutcomeSuccess
	if !result.Created {
		outcome.Kind = WebhookOutcomeDuplicate
		audit.EventType = models.PaymentEventBookingDuplicate
		audit.MarkAsDuplicate()
		metricOutcome = metrics.OutcomeDuplicate
	}
	metrics.ObserveWebhook(completed.eventType(), metricOutcome)
	audit.SetProcessingTime(start)
	s.audit.Record(ctx, audit, meta)

	return outcome, nil
}

func (s *WebhookService) reject(ctx context.Context, eventID, eventType string, session *CheckoutSession, err error, start time.Time, meta *utils.RequestMeta) {
	s.logger.WithError(err).WithFields(logrus.Fields{
		"event_id":   eventID,
		"event_type": eventType,
	}).Warn("Webhook event rejected")
	metrics.ObserveWebhook(eventType, string(models.KindOf(err)))
	s.audit.recordFailure(ctx, s.sessionAudit(models.PaymentEventWebhookRejected, eventID, session), err, start, meta)
}

func (s *WebhookService) sessionAudit(eventType models.PaymentEventType, eventID string, session *CheckoutSession) *models.PaymentAudit {
	audit := models.NewPaymentAudit(eventType, models.PaymentSourceStripeWebhook).SetProviderEvent(eventID)
	if session == nil {
		return audit
	}
	audit.SetSession(session.ID, session.PaymentIntentID)
	audit.SetPaymentStatus(session.PaymentStatus)
	received := session.AmountTotal
	audit.ReceivedAmount = &received
	if session.Currency != "" {
		currency := session.Currency
		audit.Currency = &currency
	}
	if id, err := validator.ParseID(session.Metadata[models.MetadataListingID]); err == nil {
		audit.SetListing(id)
	}
	if id, err := validator.ParseID(session.Metadata[models.MetadataRenterID]); err == nil {
		audit.SetProfile(id)
	}
	return audit
}

// parseWebhookEvent narrows a verified event into the known variants
func parseWebhookEvent(event stripe.Event) (webhookEvent, error) {
	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		return unhandledEvent{id: event.ID, kind: string(event.Type)}, nil
	}

	if event.Data == nil || len(event.Data.Raw) == 0 {
		return nil, models.NewAppError(models.ErrKindMalformedMetadata, "Missing event data")
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, models.WrapAppError(models.ErrKindMalformedMetadata, "Invalid checkout session payload", err)
	}

	return checkoutCompleted{id: event.ID, session: toCheckoutSession(&session)}, nil
}

// extractPaidCheckout reads booking parameters from session metadata.
// Dates are passed through as strings and validated by the materializer.
func extractPaidCheckout(session *CheckoutSession) (*PaidCheckout, error) {
	md := session.Metadata
	if len(md) == 0 {
		return nil, models.NewAppError(models.ErrKindMalformedMetadata, "No metadata")
	}

	required := []string{
		models.MetadataListingID,
		models.MetadataRenterID,
		models.MetadataStartDate,
		models.MetadataEndDate,
		models.MetadataBookingType,
	}
	for _, key := range required {
		if md[key] == "" {
			return nil, models.NewAppError(models.ErrKindMalformedMetadata, "Missing metadata: "+key)
		}
	}

	listingID, err := validator.ParseID(md[models.MetadataListingID])
	if err != nil {
		return nil, models.WrapAppError(models.ErrKindMalformedMetadata, "Invalid metadata: "+models.MetadataListingID, err)
	}
	renterID, err := validator.ParseID(md[models.MetadataRenterID])
	if err != nil {
		return nil, models.WrapAppError(models.ErrKindMalformedMetadata, "Invalid metadata: "+models.MetadataRenterID, err)
	}
	bookingType := models.BookingType(md[models.MetadataBookingType])
	if !bookingType.IsValid() {
		return nil, models.NewAppError(models.ErrKindMalformedMetadata, "Invalid metadata: "+models.MetadataBookingType)
	}
	return &PaidCheckout{
		SessionID:       session.ID,
		PaymentIntentID: session.PaymentIntentID,
		AmountTotal:     session.AmountTotal,
		ListingID:       listingID,
		RenterID:        renterID,
		StartDate:       md[models.MetadataStartDate],
		EndDate:         md[models.MetadataEndDate],
		BookingType:     bookingType,
	}, nil
}

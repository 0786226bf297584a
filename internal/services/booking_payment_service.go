package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/salonspace/booking-backend/internal/metrics"
	"github.com/salonspace/booking-backend/internal/models"
	"github.com/salonspace/booking-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

// ListingSnapshotProvider reads a listing together with its owner's payout state
type ListingSnapshotProvider interface {
	GetSnapshot(ctx context.Context, listingID uuid.UUID) (*models.ListingSnapshot, error)
}

// BookingPaymentService runs the checkout flow:
// quote validation → split payment intent → hosted checkout session.
// It writes nothing to the booking table; bookings are only created by the
// webhook once the provider reports the payment as paid.
type BookingPaymentService struct {
	listings ListingSnapshotProvider
	quotes   *QuoteValidator
	builder  *SplitPaymentBuilder
	sessions *CheckoutSessionFactory
	audit    *AuditService
	timeouts Timeouts
	logger   *logrus.Logger
}

// NewBookingPaymentService creates a new booking payment service
func NewBookingPaymentService(
	listings ListingSnapshotProvider,
	quotes *QuoteValidator,
	builder *SplitPaymentBuilder,
	sessions *CheckoutSessionFactory,
	audit *AuditService,
	timeouts Timeouts,
	logger *logrus.Logger,
) *BookingPaymentService {
	return &BookingPaymentService{
		listings: listings,
		quotes:   quotes,
		builder:  builder,
		sessions: sessions,
		audit:    audit,
		timeouts: timeouts,
		logger:   logger,
	}
}

// ============================================================================
// CREATE CHECKOUT
// ============================================================================

// CreateCheckout validates a renter's booking request and returns a hosted
// checkout URL. origin is the web app base URL used for redirects.
func (s *BookingPaymentService) CreateCheckout(
	ctx context.Context,
	renter *models.Profile,
	req *models.CreateBookingPaymentRequest,
	origin string,
	meta *utils.RequestMeta,
) (*models.CreateBookingPaymentResponse, error) {
	start := time.Now()
	audit := models.NewPaymentAudit(models.PaymentEventCheckoutRejected, models.PaymentSourceUser).
		SetProfile(renter.ID)

	resp, err := s.createCheckout(ctx, renter, req, origin, audit)
	if err != nil {
		kind := models.KindOf(err)
		metrics.ObserveCheckout(string(kind))
		if kind == models.ErrKindPaymentSetupFailed || kind == models.ErrKindProviderTimeout || kind == models.ErrKindInternal {
			audit.EventType = models.PaymentEventCheckoutFailed
		}
		s.audit.recordFailure(ctx, audit, err, start, meta)

		s.logger.WithError(err).WithFields(logrus.Fields{
			"profile_id": renter.ID,
			"kind":       kind,
		}).Warn("Checkout rejected")
		return nil, err
	}

	metrics.ObserveCheckout(metrics.OutcomeSuccess)
	audit.EventType = models.PaymentEventCheckoutCreated
	audit.SetProcessingTime(start)
	s.audit.Record(ctx, audit, meta)

	return resp, nil
}

func (s *BookingPaymentService) createCheckout(
	ctx context.Context,
	renter *models.Profile,
	req *models.CreateBookingPaymentRequest,
	origin string,
	audit *models.PaymentAudit,
) (*models.CreateBookingPaymentResponse, error) {
	// 1. Validate request shape and dates
	quote, err := s.quotes.ValidateRequest(req)
	if err != nil {
		return nil, err
	}
	audit.SetListing(quote.ListingID)

	// 2. Read the listing snapshot
	listing, err := s.getSnapshot(ctx, quote.ListingID)
	if err != nil {
		return nil, err
	}

	// 3. Recompute the price and check the owner can be paid
	expected, err := s.quotes.Quote(listing, quote)
	if listing != nil {
		audit.SetAmounts(expected, quote.TotalAmount, s.builder.currency)
	}
	if err != nil {
		return nil, err
	}

	// 4. Split the payment and register the intent
	intent, err := s.builder.Build(listing, quote, renter.ID)
	if err != nil {
		return nil, err
	}
	audit.SetPlatformFee(intent.Split.PlatformFee)

	providerCtx, cancel := s.timeouts.provider(ctx)
	defer cancel()

	paymentIntentID, err := s.builder.Register(providerCtx, intent)
	if err != nil {
		return nil, err
	}
	audit.SetSession("", paymentIntentID)

	// 5. Wrap it in a hosted checkout session
	sessionCtx, cancelSession := s.timeouts.provider(ctx)
	defer cancelSession()

	session, err := s.sessions.Create(sessionCtx, intent, listing, origin, renter.Email)
	if err != nil {
		return nil, err
	}
	audit.SetSession(session.ID, session.PaymentIntentID)
	audit.SetDetails(map[string]interface{}{
		"booking_type":      string(quote.BookingType),
		"days":              quote.Days,
		"start_date":        quote.StartDate.Format(models.DateLayout),
		"end_date":          quote.EndDate.Format(models.DateLayout),
		"owner_payout":      intent.Split.OwnerPayout,
		"registered_intent": paymentIntentID,
	})

	s.logger.WithFields(logrus.Fields{
		"session_id":   session.ID,
		"listing_id":   quote.ListingID,
		"profile_id":   renter.ID,
		"amount":       quote.TotalAmount,
		"platform_fee": intent.Split.PlatformFee,
	}).Info("Checkout session created")

	return &models.CreateBookingPaymentResponse{
		CheckoutURL: session.URL,
		SessionID:   session.ID,
	}, nil
}

func (s *BookingPaymentService) getSnapshot(ctx context.Context, listingID uuid.UUID) (*models.ListingSnapshot, error) {
	dbCtx, cancel := s.timeouts.database(ctx)
	defer cancel()

	listing, err := s.listings.GetSnapshot(dbCtx, listingID)
	if err != nil {
		return nil, classifyUpstream(dbCtx, err, models.ErrKindInternal, "Failed to load listing")
	}
	return listing, nil
}

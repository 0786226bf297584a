package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/salonspace/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// BookingStore is the persistence the materializer needs. UpsertFromPayment
// must be keyed on the payment intent id and report whether it inserted.
type BookingStore interface {
	GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Booking, error)
	UpsertFromPayment(ctx context.Context, booking *models.Booking) (*models.Booking, bool, error)
}

// PaidCheckout is a verified, paid checkout session with parsed metadata
type PaidCheckout struct {
	SessionID       string
	PaymentIntentID string
	AmountTotal     int64
	ListingID       uuid.UUID
	RenterID        uuid.UUID
	StartDate       string
	EndDate         string
	BookingType     models.BookingType
}

// MaterializeResult is the booking stored for a payment
type MaterializeResult struct {
	Booking *models.Booking
	Created bool
}

// BookingMaterializer is the single writer turning paid checkouts into
// bookings. At most one booking exists per payment intent id: replays and
// concurrent deliveries resolve to the row that won the insert.
type BookingMaterializer struct {
	store    BookingStore
	quotes   *QuoteValidator
	timeouts Timeouts
	logger   *logrus.Logger
}

// NewBookingMaterializer creates a new booking materializer
func NewBookingMaterializer(store BookingStore, quotes *QuoteValidator, timeouts Timeouts, logger *logrus.Logger) *BookingMaterializer {
	return &BookingMaterializer{
		store:    store,
		quotes:   quotes,
		timeouts: timeouts,
		logger:   logger,
	}
}

// Materialize returns the booking for a paid checkout, creating it if needed
func (m *BookingMaterializer) Materialize(ctx context.Context, checkout *PaidCheckout) (*MaterializeResult, error) {
	// 1. Replay of an already materialized payment
	existing, err := m.lookup(ctx, checkout.PaymentIntentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		m.logger.WithFields(logrus.Fields{
			"booking_id":        existing.ID,
			"payment_intent_id": checkout.PaymentIntentID,
		}).Info("Booking already exists for payment intent")
		return &MaterializeResult{Booking: existing, Created: false}, nil
	}

	// 2. Dates are checked again, the session may be replayed long after checkout
	start, end, err := m.quotes.ValidateDateRange(checkout.StartDate, checkout.EndDate)
	if err != nil {
		return nil, err
	}

	// 3. Insert or fetch the row that won a concurrent insert
	paymentIntentID := checkout.PaymentIntentID
	booking := &models.Booking{
		ID:                    uuid.New(),
		ListingID:             checkout.ListingID,
		RenterID:              checkout.RenterID,
		StartDate:             start,
		EndDate:               end,
		TotalAmount:           checkout.AmountTotal,
		BookingType:           checkout.BookingType,
		Status:                models.BookingStatusConfirmed,
		StripePaymentIntentID: &paymentIntentID,
	}

	dbCtx, cancel := m.timeouts.database(ctx)
	defer cancel()

	stored, created, err := m.store.UpsertFromPayment(dbCtx, booking)
	if err != nil {
		return nil, classifyUpstream(dbCtx, err, models.ErrKindInternal, "Booking creation failed")
	}

	fields := logrus.Fields{
		"booking_id":        stored.ID,
		"payment_intent_id": paymentIntentID,
		"session_id":        checkout.SessionID,
	}
	if created {
		m.logger.WithFields(fields).Info("Booking created from payment")
	} else {
		m.logger.WithFields(fields).Info("Concurrent delivery already created booking")
	}

	return &MaterializeResult{Booking: stored, Created: created}, nil
}

// Find returns the booking for a payment intent id without writing
func (m *BookingMaterializer) Find(ctx context.Context, paymentIntentID string) (*models.Booking, error) {
	return m.lookup(ctx, paymentIntentID)
}

func (m *BookingMaterializer) lookup(ctx context.Context, paymentIntentID string) (*models.Booking, error) {
	dbCtx, cancel := m.timeouts.database(ctx)
	defer cancel()

	booking, err := m.store.GetByPaymentIntentID(dbCtx, paymentIntentID)
	if err != nil {
		return nil, classifyUpstream(dbCtx, err, models.ErrKindInternal, "Failed to look up booking")
	}
	return booking, nil
}

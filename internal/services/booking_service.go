package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/salonspace/booking-backend/internal/models"
	"github.com/salonspace/booking-backend/internal/utils"
	"github.com/salonspace/booking-backend/pkg/validator"
	"github.com/sirupsen/logrus"
)

const (
	defaultBookingPageSize = 20
	maxBookingPageSize     = 100
)

// BookingReader is the booking persistence used outside the payment flow
type BookingReader interface {
	GetWithListing(ctx context.Context, bookingID uuid.UUID) (*models.BookingWithListing, error)
	ListByRenter(ctx context.Context, renterID uuid.UUID, limit, offset int) ([]models.BookingWithListing, error)
	Cancel(ctx context.Context, bookingID, renterID uuid.UUID) (*models.Booking, error)
	CompletePastBookings(ctx context.Context, today time.Time) (int64, error)
}

// BookingService handles reads and renter-driven changes of bookings
type BookingService struct {
	bookings BookingReader
	audit    *AuditService
	timeouts Timeouts
	logger   *logrus.Logger
}

// NewBookingService creates a new booking service
func NewBookingService(bookings BookingReader, audit *AuditService, timeouts Timeouts, logger *logrus.Logger) *BookingService {
	return &BookingService{
		bookings: bookings,
		audit:    audit,
		timeouts: timeouts,
		logger:   logger,
	}
}

// ListForRenter returns a page of the renter's bookings
func (s *BookingService) ListForRenter(ctx context.Context, renter *models.Profile, limit, offset int) ([]models.BookingWithListing, error) {
	if limit <= 0 {
		limit = defaultBookingPageSize
	}
	if limit > maxBookingPageSize {
		limit = maxBookingPageSize
	}
	if offset < 0 {
		offset = 0
	}

	dbCtx, cancel := s.timeouts.database(ctx)
	defer cancel()

	bookings, err := s.bookings.ListByRenter(dbCtx, renter.ID, limit, offset)
	if err != nil {
		return nil, classifyUpstream(dbCtx, err, models.ErrKindInternal, "Failed to list bookings")
	}
	return bookings, nil
}

// Get returns a booking visible to the renter who made it or the owner of
// the listing
func (s *BookingService) Get(ctx context.Context, caller *models.Profile, bookingID uuid.UUID) (*models.BookingWithListing, error) {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.RenterID != caller.ID && booking.ListingOwnerID != caller.ID {
		return nil, models.NewAppError(models.ErrKindUnauthorized, "You do not have access to this booking")
	}

	return booking, nil
}

// Cancel cancels a renter's pending or confirmed booking. No refund is
// issued here.
func (s *BookingService) Cancel(ctx context.Context, renter *models.Profile, bookingID uuid.UUID, meta *utils.RequestMeta) (*models.Booking, error) {
	start := time.Now()

	dbCtx, cancel := s.timeouts.database(ctx)
	defer cancel()

	booking, err := s.bookings.Cancel(dbCtx, bookingID, renter.ID)
	if err != nil {
		return nil, classifyUpstream(dbCtx, err, models.ErrKindInternal, "Failed to cancel booking")
	}

	if booking == nil {
		// Nothing matched; tell apart a missing booking from a wrong status
		current, err := s.load(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		if current.RenterID != renter.ID {
			return nil, models.NewAppError(models.ErrKindUnauthorized, "Only the renter can cancel this booking")
		}
		return nil, models.NewAppError(models.ErrKindConflict,
			fmt.Sprintf("Booking cannot be cancelled from status %s", current.Status))
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"profile_id": renter.ID,
	}).Info("Booking cancelled")

	audit := models.NewPaymentAudit(models.PaymentEventBookingCancelled, models.PaymentSourceUser).
		SetBooking(booking.ID).
		SetListing(booking.ListingID).
		SetProfile(renter.ID)
	if booking.StripePaymentIntentID != nil {
		audit.SetSession("", *booking.StripePaymentIntentID)
	}
	audit.SetProcessingTime(start)
	s.audit.Record(ctx, audit, meta)

	return booking, nil
}

// CompletePastBookings closes confirmed bookings whose end date has passed
func (s *BookingService) CompletePastBookings(ctx context.Context, now time.Time) (int64, error) {
	dbCtx, cancel := s.timeouts.database(ctx)
	defer cancel()

	count, err := s.bookings.CompletePastBookings(dbCtx, validator.StartOfDay(now))
	if err != nil {
		return 0, fmt.Errorf("failed to complete past bookings: %w", err)
	}
	return count, nil
}

func (s *BookingService) load(ctx context.Context, bookingID uuid.UUID) (*models.BookingWithListing, error) {
	dbCtx, cancel := s.timeouts.database(ctx)
	defer cancel()

	booking, err := s.bookings.GetWithListing(dbCtx, bookingID)
	if err != nil {
		return nil, classifyUpstream(dbCtx, err, models.ErrKindInternal, "Failed to load booking")
	}
	if booking == nil {
		return nil, models.NewAppError(models.ErrKindNotFound, "Booking not found")
	}
	return booking, nil
}

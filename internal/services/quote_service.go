package services

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/salonspace/booking-backend/internal/config"
	"github.com/salonspace/booking-backend/internal/models"
	"github.com/salonspace/booking-backend/pkg/validator"
)

const (
	hoursPerDay = 24
	daysPerWeek = 7
)

// BookingQuote is a checkout request that passed input validation
type BookingQuote struct {
	ListingID   uuid.UUID
	StartDate   time.Time
	EndDate     time.Time
	Days        int64
	TotalAmount int64
	BookingType models.BookingType
}

// QuoteValidator recomputes booking prices on the server and rejects
// requests whose client-side quote does not match the listing rates
type QuoteValidator struct {
	maxAmount int64
	maxDays   int64
	now       func() time.Time
}

// NewQuoteValidator creates a quote validator from the payment rules
func NewQuoteValidator(cfg config.PaymentConfig) *QuoteValidator {
	return &QuoteValidator{
		maxAmount: cfg.MaxBookingAmount,
		maxDays:   int64(cfg.MaxBookingDays),
		now:       time.Now,
	}
}

// ValidateRequest checks the shape of a checkout request without touching storage.
// Checks run in order: listing id, dates, booking type, amount, duration.
func (v *QuoteValidator) ValidateRequest(req *models.CreateBookingPaymentRequest) (*BookingQuote, error) {
	if req == nil {
		return nil, models.InvalidInput("Request body is required")
	}

	listingID, err := validator.ParseID(req.ListingID)
	if err != nil {
		return nil, models.InvalidInput("Invalid listing ID format")
	}

	start, end, err := v.ValidateDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	bookingType := models.BookingType(req.BookingType)
	if !bookingType.IsValid() {
		return nil, models.InvalidInput("Invalid booking type")
	}

	if req.TotalAmount <= 0 || req.TotalAmount > v.maxAmount {
		return nil, models.InvalidInput("Invalid amount")
	}

	days := BookingDays(start, end)
	if days > v.maxDays {
		return nil, models.InvalidInput("Booking duration cannot exceed %d days", v.maxDays)
	}

	return &BookingQuote{
		ListingID:   listingID,
		StartDate:   start,
		EndDate:     end,
		Days:        days,
		TotalAmount: req.TotalAmount,
		BookingType: bookingType,
	}, nil
}

// ValidateDateRange parses a start/end pair and enforces start < end and
// start not before today's UTC calendar date
func (v *QuoteValidator) ValidateDateRange(startValue, endValue string) (time.Time, time.Time, error) {
	start, err := validator.ParseDate(startValue)
	if err != nil {
		return time.Time{}, time.Time{}, models.InvalidInput("Invalid date format")
	}
	end, err := validator.ParseDate(endValue)
	if err != nil {
		return time.Time{}, time.Time{}, models.InvalidInput("Invalid date format")
	}

	if !start.Before(end) {
		return time.Time{}, time.Time{}, models.InvalidInput("End date must be after start date")
	}

	if start.Before(validator.StartOfDay(v.now())) {
		return time.Time{}, time.Time{}, models.InvalidInput("Start date cannot be in the past")
	}

	return start, end, nil
}

// Quote checks a validated request against the listing snapshot.
// Order: availability, amount, owner payout account.
func (v *QuoteValidator) Quote(listing *models.ListingSnapshot, quote *BookingQuote) (int64, error) {
	if listing == nil {
		return 0, models.NewAppError(models.ErrKindListingUnavailable, "Listing not found")
	}
	if !listing.Available {
		return 0, models.NewAppError(models.ErrKindListingUnavailable, "Listing is not available")
	}

	expected := ExpectedAmount(listing, quote.BookingType, quote.Days)
	if diff := quote.TotalAmount - expected; diff > Tolerance(expected) || -diff > Tolerance(expected) {
		return expected, models.AmountMismatch(expected)
	}

	if !listing.OwnerCanReceivePayments() {
		return expected, models.NewAppError(models.ErrKindOwnerNotOnboarded, "Salon owner has not completed payment setup")
	}

	return expected, nil
}

// BookingDays is the number of whole days billed for a range, rounding
// any partial day up
func BookingDays(start, end time.Time) int64 {
	hours := end.Sub(start).Hours()
	return int64(math.Ceil(hours / hoursPerDay))
}

// ExpectedAmount computes the price of a booking from the listing rates.
// The weekly plan bills full weeks at the weekly rate and the remainder
// at the daily rate; it falls back to daily pricing when the listing has
// no weekly rate or the booking is shorter than a week.
func ExpectedAmount(listing *models.ListingSnapshot, bookingType models.BookingType, days int64) int64 {
	if bookingType == models.BookingTypeWeekly && listing.HasWeeklyRate() && days >= daysPerWeek {
		weeks := days / daysPerWeek
		remaining := days % daysPerWeek
		return weeks*(*listing.PricePerWeek) + remaining*listing.PricePerDay
	}
	return days * listing.PricePerDay
}

// Tolerance is the rounding slack allowed between client and server quotes:
// one percent of the expected amount, never less than one minor unit
func Tolerance(expected int64) int64 {
	t := expected / 100
	if t < 1 {
		return 1
	}
	return t
}

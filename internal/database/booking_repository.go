package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/salonspace/booking-backend/internal/models"
)

// BookingRepository is the single writer for bookings created by payments
type BookingRepository struct {
	db DB
}

// NewBookingRepository creates a new booking repository
func NewBookingRepository(db DB) *BookingRepository {
	return &BookingRepository{
		db: db,
	}
}

const bookingColumns = `
	id, listing_id, renter_id, start_date, end_date, total_amount,
	booking_type, status, stripe_payment_intent_id, created_at, updated_at`

// GetByPaymentIntentID returns the booking materialized for a payment, or nil
func (r *BookingRepository) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Booking, error) {
	var booking models.Booking
	query := `SELECT` + bookingColumns + ` FROM bookings WHERE stripe_payment_intent_id = $1`

	err := r.db.GetContext(ctx, &booking, query, paymentIntentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking by payment intent: %w", err)
	}

	return &booking, nil
}

// UpsertFromPayment inserts a booking keyed on its payment intent id, or
// fetches the row that already holds that key. It returns the stored booking
// and whether this call created it. A confirmed-booking event is written to
// the outbox in the same transaction as a new row.
func (r *BookingRepository) UpsertFromPayment(ctx context.Context, booking *models.Booking) (*models.Booking, bool, error) {
	if booking.StripePaymentIntentID == nil || *booking.StripePaymentIntentID == "" {
		return nil, false, fmt.Errorf("payment intent id is required to materialize a booking")
	}
	paymentIntentID := *booking.StripePaymentIntentID

	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	now := time.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO bookings (
			id, listing_id, renter_id, start_date, end_date, total_amount,
			booking_type, status, stripe_payment_intent_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (stripe_payment_intent_id) DO NOTHING
		RETURNING` + bookingColumns

	var inserted models.Booking
	err = tx.GetContext(ctx, &inserted, query,
		booking.ID,
		booking.ListingID,
		booking.RenterID,
		booking.StartDate.Format(models.DateLayout),
		booking.EndDate.Format(models.DateLayout),
		booking.TotalAmount,
		booking.BookingType,
		booking.Status,
		paymentIntentID,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
		// Another delivery of the same payment won the insert
		tx.Rollback()
		existing, getErr := r.GetByPaymentIntentID(ctx, paymentIntentID)
		if getErr != nil {
			return nil, false, getErr
		}
		if existing == nil {
			return nil, false, fmt.Errorf("booking for payment %s conflicted but could not be read back", paymentIntentID)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert booking: %w", err)
	}

	event := models.NewBookingEvent(models.BookingEventConfirmed, &inserted)
	if err := insertOutboxMessage(ctx, tx, inserted.ID, event); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit booking: %w", err)
	}

	return &inserted, true, nil
}

// GetWithListing returns a booking with its listing title and owner, or nil
func (r *BookingRepository) GetWithListing(ctx context.Context, bookingID uuid.UUID) (*models.BookingWithListing, error) {
	var booking models.BookingWithListing
	query := `
		SELECT
			b.id, b.listing_id, b.renter_id, b.start_date, b.end_date, b.total_amount,
			b.booking_type, b.status, b.stripe_payment_intent_id, b.created_at, b.updated_at,
			l.title AS listing_title, l.owner_id AS listing_owner_id
		FROM bookings b
		JOIN listings l ON l.id = b.listing_id
		WHERE b.id = $1
	`

	err := r.db.GetContext(ctx, &booking, query, bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	return &booking, nil
}

// ListByRenter returns a renter's bookings, newest first
func (r *BookingRepository) ListByRenter(ctx context.Context, renterID uuid.UUID, limit, offset int) ([]models.BookingWithListing, error) {
	bookings := []models.BookingWithListing{}
	query := `
		SELECT
			b.id, b.listing_id, b.renter_id, b.start_date, b.end_date, b.total_amount,
			b.booking_type, b.status, b.stripe_payment_intent_id, b.created_at, b.updated_at,
			l.title AS listing_title, l.owner_id AS listing_owner_id
		FROM bookings b
		JOIN listings l ON l.id = b.listing_id
		WHERE b.renter_id = $1
		ORDER BY b.created_at DESC
		LIMIT $2 OFFSET $3
	`

	if err := r.db.SelectContext(ctx, &bookings, query, renterID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	return bookings, nil
}

// Cancel moves a renter's pending or confirmed booking to cancelled.
// Returns nil, nil when no booking matched those conditions.
func (r *BookingRepository) Cancel(ctx context.Context, bookingID, renterID uuid.UUID) (*models.Booking, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE bookings
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND renter_id = $3 AND status IN ($4, $5)
		RETURNING` + bookingColumns

	var booking models.Booking
	err = tx.GetContext(ctx, &booking, query,
		models.BookingStatusCancelled,
		bookingID,
		renterID,
		models.BookingStatusPending,
		models.BookingStatusConfirmed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}

	event := models.NewBookingEvent(models.BookingEventCancelled, &booking)
	if err := insertOutboxMessage(ctx, tx, booking.ID, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit cancellation: %w", err)
	}

	return &booking, nil
}

// CompletePastBookings marks confirmed bookings that ended before today as completed
func (r *BookingRepository) CompletePastBookings(ctx context.Context, today time.Time) (int64, error) {
	query := `
		UPDATE bookings
		SET status = $1, updated_at = NOW()
		WHERE status = $2 AND end_date < $3
	`

	result, err := r.db.ExecContext(ctx, query,
		models.BookingStatusCompleted,
		models.BookingStatusConfirmed,
		today.Format(models.DateLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to complete past bookings: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows, nil
}

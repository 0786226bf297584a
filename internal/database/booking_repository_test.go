package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/salonspace/booking-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bookingRowColumns = []string{
	"id", "listing_id", "renter_id", "start_date", "end_date", "total_amount",
	"booking_type", "status", "stripe_payment_intent_id", "created_at", "updated_at",
}

func setupMockDB(t *testing.T) (*PostgresDB, sqlmock.Sqlmock, func()) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db := &PostgresDB{DB: sqlx.NewDb(mockDB, "sqlmock")}
	return db, mock, func() { mockDB.Close() }
}

func newPaidBooking(paymentIntentID string) *models.Booking {
	start := time.Date(2030, 3, 10, 0, 0, 0, 0, time.UTC)
	return &models.Booking{
		ListingID:             uuid.New(),
		RenterID:              uuid.New(),
		StartDate:             start,
		EndDate:               start.AddDate(0, 0, 3),
		TotalAmount:           300,
		BookingType:           models.BookingTypeDaily,
		Status:                models.BookingStatusConfirmed,
		StripePaymentIntentID: &paymentIntentID,
	}
}

func bookingRow(id uuid.UUID, b *models.Booking) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(bookingRowColumns).AddRow(
		id.String(), b.ListingID.String(), b.RenterID.String(), b.StartDate, b.EndDate, b.TotalAmount,
		string(b.BookingType), string(b.Status), *b.StripePaymentIntentID, now, now,
	)
}

func TestBookingRepository_UpsertFromPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("Inserts new booking and outbox event", func(t *testing.T) {
		db, mock, cleanup := setupMockDB(t)
		defer cleanup()
		repo := NewBookingRepository(db)

		booking := newPaidBooking("pi_new")
		bookingID := uuid.New()
		booking.ID = bookingID

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO bookings .* ON CONFLICT \(stripe_payment_intent_id\) DO NOTHING`).
			WithArgs(
				bookingID, booking.ListingID, booking.RenterID, "2030-03-10", "2030-03-13", int64(300),
				models.BookingTypeDaily, models.BookingStatusConfirmed, "pi_new",
				sqlmock.AnyArg(), sqlmock.AnyArg(),
			).
			WillReturnRows(bookingRow(bookingID, booking))
		mock.ExpectExec(`INSERT INTO outbox_messages`).
			WithArgs(sqlmock.AnyArg(), bookingID, models.BookingEventConfirmed, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		stored, created, err := repo.UpsertFromPayment(ctx, booking)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, bookingID, stored.ID)
		assert.Equal(t, int64(300), stored.TotalAmount)
		assert.Equal(t, models.BookingStatusConfirmed, stored.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Conflict returns the existing booking", func(t *testing.T) {
		db, mock, cleanup := setupMockDB(t)
		defer cleanup()
		repo := NewBookingRepository(db)

		booking := newPaidBooking("pi_dup")
		winnerID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnRows(sqlmock.NewRows(bookingRowColumns))
		mock.ExpectRollback()
		mock.ExpectQuery(`SELECT .* FROM bookings WHERE stripe_payment_intent_id = \$1`).
			WithArgs("pi_dup").
			WillReturnRows(bookingRow(winnerID, booking))

		stored, created, err := repo.UpsertFromPayment(ctx, booking)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, winnerID, stored.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unique violation is treated as a lost race", func(t *testing.T) {
		db, mock, cleanup := setupMockDB(t)
		defer cleanup()
		repo := NewBookingRepository(db)

		booking := newPaidBooking("pi_race")
		winnerID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnError(&pq.Error{Code: "23505"})
		mock.ExpectRollback()
		mock.ExpectQuery(`SELECT .* FROM bookings WHERE stripe_payment_intent_id = \$1`).
			WithArgs("pi_race").
			WillReturnRows(bookingRow(winnerID, booking))

		stored, created, err := repo.UpsertFromPayment(ctx, booking)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, winnerID, stored.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database error is returned", func(t *testing.T) {
		db, mock, cleanup := setupMockDB(t)
		defer cleanup()
		repo := NewBookingRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnError(fmt.Errorf("connection reset"))
		mock.ExpectRollback()

		stored, created, err := repo.UpsertFromPayment(ctx, newPaidBooking("pi_err"))
		assert.Error(t, err)
		assert.False(t, created)
		assert.Nil(t, stored)
		assert.Contains(t, err.Error(), "failed to insert booking")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing payment intent id", func(t *testing.T) {
		db, _, cleanup := setupMockDB(t)
		defer cleanup()
		repo := NewBookingRepository(db)

		booking := newPaidBooking("")
		_, _, err := repo.UpsertFromPayment(ctx, booking)
		assert.Error(t, err)
	})
}

func TestBookingRepository_GetByPaymentIntentID(t *testing.T) {
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		db, mock, cleanup := setupMockDB(t)
		defer cleanup()
		repo := NewBookingRepository(db)

		booking := newPaidBooking("pi_found")
		id := uuid.New()
		mock.ExpectQuery(`FROM bookings WHERE stripe_payment_intent_id`).
			WithArgs("pi_found").
			WillReturnRows(bookingRow(id, booking))

		found, err := repo.GetByPaymentIntentID(ctx, "pi_found")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, id, found.ID)
		assert.Equal(t, "pi_found", *found.StripePaymentIntentID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not found", func(t *testing.T) {
		db, mock, cleanup := setupMockDB(t)
		defer cleanup()
		repo := NewBookingRepository(db)

		mock.ExpectQuery(`FROM bookings WHERE stripe_payment_intent_id`).
			WithArgs("pi_missing").
			WillReturnRows(sqlmock.NewRows(bookingRowColumns))

		found, err := repo.GetByPaymentIntentID(ctx, "pi_missing")
		require.NoError(t, err)
		assert.Nil(t, found)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingRepository_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("Cancels confirmed booking", func(t *testing.T) {
		db, mock, cleanup := setupMockDB(t)
		defer cleanup()
		repo := NewBookingRepository(db)

		booking := newPaidBooking("pi_cancel")
		booking.Status = models.BookingStatusCancelled
		id := uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE bookings`).
			WithArgs(models.BookingStatusCancelled, id, booking.RenterID,
				models.BookingStatusPending, models.BookingStatusConfirmed).
			WillReturnRows(bookingRow(id, booking))
		mock.ExpectExec(`INSERT INTO outbox_messages`).
			WithArgs(sqlmock.AnyArg(), id, models.BookingEventCancelled, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		cancelled, err := repo.Cancel(ctx, id, booking.RenterID)
		require.NoError(t, err)
		require.NotNil(t, cancelled)
		assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("No matching booking", func(t *testing.T) {
		db, mock, cleanup := setupMockDB(t)
		defer cleanup()
		repo := NewBookingRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE bookings`).
			WillReturnRows(sqlmock.NewRows(bookingRowColumns))
		mock.ExpectRollback()

		cancelled, err := repo.Cancel(ctx, uuid.New(), uuid.New())
		require.NoError(t, err)
		assert.Nil(t, cancelled)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingRepository_CompletePastBookings(t *testing.T) {
	db, mock, cleanup := setupMockDB(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	today := time.Date(2030, 1, 15, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(`UPDATE bookings`).
		WithArgs(models.BookingStatusCompleted, models.BookingStatusConfirmed, "2030-01-15").
		WillReturnResult(sqlmock.NewResult(0, 4))

	count, err := repo.CompletePastBookings(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

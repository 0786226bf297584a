package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/salonspace/booking-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBookingReader struct {
	mock.Mock
}

func (m *MockBookingReader) GetWithListing(ctx context.Context, bookingID uuid.UUID) (*models.BookingWithListing, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookingWithListing), args.Error(1)
}

func (m *MockBookingReader) ListByRenter(ctx context.Context, renterID uuid.UUID, limit, offset int) ([]models.BookingWithListing, error) {
	args := m.Called(ctx, renterID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BookingWithListing), args.Error(1)
}

func (m *MockBookingReader) Cancel(ctx context.Context, bookingID, renterID uuid.UUID) (*models.Booking, error) {
	args := m.Called(ctx, bookingID, renterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingReader) CompletePastBookings(ctx context.Context, today time.Time) (int64, error) {
	args := m.Called(ctx, today)
	return args.Get(0).(int64), args.Error(1)
}

func newTestBookingService(reader BookingReader, audits AuditStore) *BookingService {
	logger := newTestLogger()
	return NewBookingService(reader, NewAuditService(audits, time.Second, logger), testTimeouts, logger)
}

func sampleBooking(status models.BookingStatus) *models.BookingWithListing {
	pi := "pi_test_1"
	return &models.BookingWithListing{
		Booking: models.Booking{
			ID:                    uuid.MustParse("3f2e1d0c-9b8a-4f6e-8d5c-4b3a2f1e0d9c"),
			ListingID:             uuid.MustParse("6f1c2a8e-3b7d-4c55-9a2e-1d4b8f0c7a11"),
			RenterID:              renterProfile().ID,
			Status:                status,
			StripePaymentIntentID: &pi,
		},
		ListingTitle:   "Corner chair in downtown studio",
		ListingOwnerID: ownerProfile().ID,
	}
}

func TestListForRenter_ClampsPaging(t *testing.T) {
	tests := []struct {
		name          string
		limit, offset int
		wantLimit     int
		wantOffset    int
	}{
		{"defaults", 0, 0, 20, 0},
		{"capped", 500, 40, 100, 40},
		{"negative offset", 10, -5, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &MockBookingReader{}
			renter := renterProfile()
			reader.On("ListByRenter", mock.Anything, renter.ID, tt.wantLimit, tt.wantOffset).
				Return([]models.BookingWithListing{*sampleBooking(models.BookingStatusConfirmed)}, nil)

			bookings, err := newTestBookingService(reader, nil).ListForRenter(context.Background(), renter, tt.limit, tt.offset)
			require.NoError(t, err)
			assert.Len(t, bookings, 1)
			reader.AssertExpectations(t)
		})
	}
}

func TestGetBooking_AccessControl(t *testing.T) {
	booking := sampleBooking(models.BookingStatusConfirmed)
	stranger := renterProfile()
	stranger.ID = uuid.MustParse("7e6d5c4b-3a29-4180-9f6e-5d4c3b2a1908")

	tests := []struct {
		name    string
		caller  *models.Profile
		wantErr error
	}{
		{"renter", renterProfile(), nil},
		{"listing owner", ownerProfile(), nil},
		{"stranger", stranger, models.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &MockBookingReader{}
			reader.On("GetWithListing", mock.Anything, booking.ID).Return(booking, nil)

			got, err := newTestBookingService(reader, nil).Get(context.Background(), tt.caller, booking.ID)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, booking.ID, got.ID)
		})
	}
}

func TestGetBooking_NotFound(t *testing.T) {
	reader := &MockBookingReader{}
	id := uuid.New()
	reader.On("GetWithListing", mock.Anything, id).Return(nil, nil)

	_, err := newTestBookingService(reader, nil).Get(context.Background(), renterProfile(), id)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestCancelBooking_Success(t *testing.T) {
	renter := renterProfile()
	booking := sampleBooking(models.BookingStatusCancelled)

	reader := &MockBookingReader{}
	reader.On("Cancel", mock.Anything, booking.ID, renter.ID).Return(&booking.Booking, nil)
	audits := &MockAuditStore{}
	audits.On("Log", mock.Anything, mock.MatchedBy(func(a *models.PaymentAudit) bool {
		return a.EventType == models.PaymentEventBookingCancelled && *a.BookingID == booking.ID
	})).Return(nil)

	cancelled, err := newTestBookingService(reader, audits).Cancel(context.Background(), renter, booking.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)
	audits.AssertExpectations(t)
}

func TestCancelBooking_Rejections(t *testing.T) {
	stranger := renterProfile()
	stranger.ID = uuid.MustParse("7e6d5c4b-3a29-4180-9f6e-5d4c3b2a1908")

	tests := []struct {
		name    string
		caller  *models.Profile
		current *models.BookingWithListing
		wantErr error
	}{
		{"missing booking", renterProfile(), nil, models.ErrNotFound},
		{"other renter", stranger, sampleBooking(models.BookingStatusConfirmed), models.ErrUnauthorized},
		{"already completed", renterProfile(), sampleBooking(models.BookingStatusCompleted), models.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := uuid.MustParse("3f2e1d0c-9b8a-4f6e-8d5c-4b3a2f1e0d9c")
			reader := &MockBookingReader{}
			reader.On("Cancel", mock.Anything, id, tt.caller.ID).Return(nil, nil)
			if tt.current == nil {
				reader.On("GetWithListing", mock.Anything, id).Return(nil, nil)
			} else {
				reader.On("GetWithListing", mock.Anything, id).Return(tt.current, nil)
			}

			_, err := newTestBookingService(reader, nil).Cancel(context.Background(), tt.caller, id, nil)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestCompletePastBookings_UsesStartOfDay(t *testing.T) {
	reader := &MockBookingReader{}
	reader.On("CompletePastBookings", mock.Anything, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)).Return(int64(4), nil)

	count, err := newTestBookingService(reader, nil).CompletePastBookings(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

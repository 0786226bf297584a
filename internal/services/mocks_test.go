package services

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/salonspace/booking-backend/internal/config"
	"github.com/salonspace/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
)

var testNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

var testTimeouts = Timeouts{Provider: time.Second, Database: time.Second}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestQuoteValidator() *QuoteValidator {
	v := NewQuoteValidator(config.PaymentConfig{
		PlatformFeeBasisPoints: 1000,
		MaxBookingAmount:       1000000,
		MaxBookingDays:         365,
	})
	v.now = func() time.Time { return testNow }
	return v
}

func strPtr(s string) *string { return &s }

func int64Ptr(n int64) *int64 { return &n }

func onboardedListing(pricePerDay int64) *models.ListingSnapshot {
	return &models.ListingSnapshot{
		ID:                    uuid.MustParse("6f1c2a8e-3b7d-4c55-9a2e-1d4b8f0c7a11"),
		OwnerID:               uuid.MustParse("0b9e7d52-8c1f-4e2a-b3d4-5a6f7e8d9c01"),
		Title:                 "Corner chair in downtown studio",
		Images:                models.StringArray{"https://cdn.example.com/chair.jpg"},
		PricePerDay:           pricePerDay,
		Available:             true,
		OwnerConnectAccountID: strPtr("acct_owner123"),
		OwnerOnboarded:        true,
		OwnerChargesEnabled:   true,
	}
}

func renterProfile() *models.Profile {
	return &models.Profile{
		ID:       uuid.MustParse("9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"),
		UserID:   uuid.MustParse("1a2b3c4d-5e6f-4a7b-8c9d-0e1f2a3b4c5d"),
		Email:    "renter@example.com",
		UserType: models.UserTypeRenter,
	}
}

// ============================================================================
// MockPaymentGateway
// ============================================================================

type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) CreatePaymentIntent(ctx context.Context, intent *SplitPaymentIntent) (string, error) {
	args := m.Called(ctx, intent)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentGateway) CreateCheckoutSession(ctx context.Context, req *CheckoutSessionRequest) (*CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CheckoutSession), args.Error(1)
}

func (m *MockPaymentGateway) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CheckoutSession), args.Error(1)
}

func (m *MockPaymentGateway) CreateConnectAccount(ctx context.Context, owner *models.Profile, country string) (string, error) {
	args := m.Called(ctx, owner, country)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentGateway) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	args := m.Called(ctx, accountID, refreshURL, returnURL)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentGateway) GetConnectAccount(ctx context.Context, accountID string) (*ConnectAccount, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ConnectAccount), args.Error(1)
}

// ============================================================================
// Repositories
// ============================================================================

type MockListingProvider struct {
	mock.Mock
}

func (m *MockListingProvider) GetSnapshot(ctx context.Context, listingID uuid.UUID) (*models.ListingSnapshot, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ListingSnapshot), args.Error(1)
}

type MockBookingStore struct {
	mock.Mock
}

func (m *MockBookingStore) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Booking, error) {
	args := m.Called(ctx, paymentIntentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingStore) UpsertFromPayment(ctx context.Context, booking *models.Booking) (*models.Booking, bool, error) {
	args := m.Called(ctx, booking)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Booking), args.Bool(1), args.Error(2)
}

type MockAuditStore struct {
	mock.Mock
}

func (m *MockAuditStore) Log(ctx context.Context, audit *models.PaymentAudit) error {
	args := m.Called(ctx, audit)
	return args.Error(0)
}

// memoryBookingStore enforces uniqueness on the payment intent id the way
// the bookings table constraint does
type memoryBookingStore struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking
	inserts  int
}

func newMemoryBookingStore() *memoryBookingStore {
	return &memoryBookingStore{bookings: make(map[string]*models.Booking)}
}

func (s *memoryBookingStore) GetByPaymentIntentID(_ context.Context, paymentIntentID string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.bookings[paymentIntentID]; ok {
		copied := *b
		return &copied, nil
	}
	return nil, nil
}

func (s *memoryBookingStore) UpsertFromPayment(_ context.Context, booking *models.Booking) (*models.Booking, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := *booking.StripePaymentIntentID
	if existing, ok := s.bookings[key]; ok {
		copied := *existing
		return &copied, false, nil
	}
	stored := *booking
	s.bookings[key] = &stored
	s.inserts++
	copied := stored
	return &copied, true, nil
}

func (s *memoryBookingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings)
}

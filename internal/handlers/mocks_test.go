package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/salonspace/booking-backend/internal/middleware"
	"github.com/salonspace/booking-backend/internal/models"
	"github.com/salonspace/booking-backend/internal/services"
	"github.com/salonspace/booking-backend/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testRenter() *models.Profile {
	return &models.Profile{
		ID:       uuid.MustParse("9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"),
		UserID:   uuid.MustParse("1a2b3c4d-5e6f-4a7b-8c9d-0e1f2a3b4c5d"),
		Email:    "renter@example.com",
		UserType: models.UserTypeRenter,
	}
}

// setupAuthenticatedContext creates a Gin context with a resolved profile,
// simulating AuthMiddleware and RequireProfile
func setupAuthenticatedContext(profile *models.Profile, method, target string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewBuffer(raw)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")

	if profile != nil {
		c.Set(middleware.UserContextKey, middleware.UserContext{UserID: profile.UserID, Email: profile.Email})
		c.Set(middleware.ProfileContextKey, profile)
	}

	return c, w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func assertStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, w.Code, "body: %s", w.Body.String())
}

type MockCheckoutCreator struct {
	mock.Mock
}

func (m *MockCheckoutCreator) CreateCheckout(ctx context.Context, renter *models.Profile, req *models.CreateBookingPaymentRequest, origin string, meta *utils.RequestMeta) (*models.CreateBookingPaymentResponse, error) {
	args := m.Called(ctx, renter, req, origin, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CreateBookingPaymentResponse), args.Error(1)
}

type MockPaymentChecker struct {
	mock.Mock
}

func (m *MockPaymentChecker) Verify(ctx context.Context, caller *models.Profile, sessionID string, meta *utils.RequestMeta) (*models.VerifyPaymentResponse, error) {
	args := m.Called(ctx, caller, sessionID, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VerifyPaymentResponse), args.Error(1)
}

type MockWebhookProcessor struct {
	mock.Mock
}

func (m *MockWebhookProcessor) HandleEvent(ctx context.Context, payload []byte, signature string, meta *utils.RequestMeta) (*services.WebhookOutcome, error) {
	args := m.Called(ctx, payload, signature, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.WebhookOutcome), args.Error(1)
}

type MockConnectOnboarder struct {
	mock.Mock
}

func (m *MockConnectOnboarder) CreateOnboardingLink(ctx context.Context, owner *models.Profile, origin string, meta *utils.RequestMeta) (*models.ConnectOnboardingLink, error) {
	args := m.Called(ctx, owner, origin, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ConnectOnboardingLink), args.Error(1)
}

func (m *MockConnectOnboarder) CheckStatus(ctx context.Context, profile *models.Profile) (*models.ConnectStatus, error) {
	args := m.Called(ctx, profile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ConnectStatus), args.Error(1)
}

type MockBookingManager struct {
	mock.Mock
}

func (m *MockBookingManager) ListForRenter(ctx context.Context, renter *models.Profile, limit, offset int) ([]models.BookingWithListing, error) {
	args := m.Called(ctx, renter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BookingWithListing), args.Error(1)
}

func (m *MockBookingManager) Get(ctx context.Context, caller *models.Profile, bookingID uuid.UUID) (*models.BookingWithListing, error) {
	args := m.Called(ctx, caller, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookingWithListing), args.Error(1)
}

func (m *MockBookingManager) Cancel(ctx context.Context, renter *models.Profile, bookingID uuid.UUID, meta *utils.RequestMeta) (*models.Booking, error) {
	args := m.Called(ctx, renter, bookingID, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

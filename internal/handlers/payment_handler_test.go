package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/salonspace/booking-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestPaymentHandler(checkout CheckoutCreator, verifier PaymentChecker) *PaymentHandler {
	origins := NewOriginResolver([]string{"https://app.example.com", "http://localhost:5173/"}, "https://salonspace.example.com")
	return NewPaymentHandler(checkout, verifier, origins, newTestLogger())
}

func checkoutBody() map[string]interface{} {
	return map[string]interface{}{
		"listingId":   "6f1c2a8e-3b7d-4c55-9a2e-1d4b8f0c7a11",
		"startDate":   "2026-03-10",
		"endDate":     "2026-03-13",
		"totalAmount": 300,
		"bookingType": "daily",
	}
}

func TestCreateCheckout_Success(t *testing.T) {
	renter := testRenter()
	checkout := &MockCheckoutCreator{}
	checkout.On("CreateCheckout", mock.Anything, renter, mock.MatchedBy(func(r *models.CreateBookingPaymentRequest) bool {
		return r.TotalAmount == 300 && r.BookingType == "daily" && r.ListingID == "6f1c2a8e-3b7d-4c55-9a2e-1d4b8f0c7a11"
	}), "https://app.example.com", mock.Anything).Return(&models.CreateBookingPaymentResponse{
		CheckoutURL: "https://checkout.stripe.com/c/pay/cs_test_123",
		SessionID:   "cs_test_123",
	}, nil)

	c, w := setupAuthenticatedContext(renter, http.MethodPost, "/api/v1/payments/checkout", checkoutBody())
	c.Request.Header.Set("Origin", "https://app.example.com")

	newTestPaymentHandler(checkout, &MockPaymentChecker{}).CreateCheckout(c)

	assertStatus(t, w, http.StatusOK)
	body := decodeBody(t, w)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_123", body["checkoutUrl"])
	assert.Equal(t, "cs_test_123", body["sessionId"])
	checkout.AssertExpectations(t)
}

func TestCreateCheckout_UntrustedOriginFallsBack(t *testing.T) {
	renter := testRenter()
	checkout := &MockCheckoutCreator{}
	checkout.On("CreateCheckout", mock.Anything, renter, mock.Anything, "https://salonspace.example.com", mock.Anything).
		Return(&models.CreateBookingPaymentResponse{CheckoutURL: "https://checkout.stripe.com/x", SessionID: "cs_x"}, nil)

	c, w := setupAuthenticatedContext(renter, http.MethodPost, "/api/v1/payments/checkout", checkoutBody())
	c.Request.Header.Set("Origin", "https://evil.example.net")

	newTestPaymentHandler(checkout, &MockPaymentChecker{}).CreateCheckout(c)

	assertStatus(t, w, http.StatusOK)
	checkout.AssertExpectations(t)
}

func TestCreateCheckout_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid input", models.InvalidInput("Invalid date format"), http.StatusBadRequest, "invalid_input"},
		{"listing unavailable", models.NewAppError(models.ErrKindListingUnavailable, "Listing is not available"), http.StatusConflict, "listing_unavailable"},
		{"owner not onboarded", models.NewAppError(models.ErrKindOwnerNotOnboarded, "Salon owner has not completed payment setup"), http.StatusConflict, "owner_not_onboarded"},
		{"payment setup failed", models.WrapAppError(models.ErrKindPaymentSetupFailed, "Failed to set up payment", errors.New("sk_live leaked")), http.StatusBadGateway, "payment_setup_failed"},
		{"provider timeout", models.NewAppError(models.ErrKindProviderTimeout, "Upstream service timed out, please retry"), http.StatusGatewayTimeout, "provider_timeout"},
		{"unclassified", errors.New("pq: relation does not exist"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkout := &MockCheckoutCreator{}
			checkout.On("CreateCheckout", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			c, w := setupAuthenticatedContext(testRenter(), http.MethodPost, "/api/v1/payments/checkout", checkoutBody())
			newTestPaymentHandler(checkout, &MockPaymentChecker{}).CreateCheckout(c)

			assertStatus(t, w, tt.status)
			body := decodeBody(t, w)
			assert.Equal(t, tt.code, body["error"])
			assert.NotContains(t, w.Body.String(), "sk_live")
			assert.NotContains(t, w.Body.String(), "pq:")
		})
	}
}

func TestCreateCheckout_AmountMismatchIncludesExpected(t *testing.T) {
	checkout := &MockCheckoutCreator{}
	checkout.On("CreateCheckout", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, models.AmountMismatch(300))

	c, w := setupAuthenticatedContext(testRenter(), http.MethodPost, "/api/v1/payments/checkout", checkoutBody())
	newTestPaymentHandler(checkout, &MockPaymentChecker{}).CreateCheckout(c)

	assertStatus(t, w, http.StatusBadRequest)
	body := decodeBody(t, w)
	assert.Equal(t, "amount_mismatch", body["error"])
	assert.Equal(t, float64(300), body["expected_amount"])
}

func TestCreateCheckout_InvalidJSON(t *testing.T) {
	checkout := &MockCheckoutCreator{}

	c, w := setupAuthenticatedContext(testRenter(), http.MethodPost, "/api/v1/payments/checkout", `{"totalAmount": "lots"`)
	newTestPaymentHandler(checkout, &MockPaymentChecker{}).CreateCheckout(c)

	assertStatus(t, w, http.StatusBadRequest)
	checkout.AssertNotCalled(t, "CreateCheckout", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateCheckout_Unauthenticated(t *testing.T) {
	c, w := setupAuthenticatedContext(nil, http.MethodPost, "/api/v1/payments/checkout", checkoutBody())
	newTestPaymentHandler(&MockCheckoutCreator{}, &MockPaymentChecker{}).CreateCheckout(c)

	assertStatus(t, w, http.StatusUnauthorized)
}

func TestVerifyPayment_Success(t *testing.T) {
	renter := testRenter()
	bookingID := uuid.MustParse("3f2e1d0c-9b8a-4f6e-8d5c-4b3a2f1e0d9c")
	verifier := &MockPaymentChecker{}
	verifier.On("Verify", mock.Anything, renter, "cs_test_123", mock.Anything).Return(&models.VerifyPaymentResponse{
		Verified:      true,
		PaymentStatus: "paid",
		Amount:        300,
		BookingExists: true,
		BookingID:     &bookingID,
	}, nil)

	c, w := setupAuthenticatedContext(renter, http.MethodPost, "/api/v1/payments/verify", map[string]string{"sessionId": "cs_test_123"})
	newTestPaymentHandler(&MockCheckoutCreator{}, verifier).VerifyPayment(c)

	assertStatus(t, w, http.StatusOK)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["verified"])
	assert.Equal(t, "paid", body["payment_status"])
	assert.Equal(t, float64(300), body["amount"])
	assert.Equal(t, true, body["booking_exists"])
	assert.Equal(t, bookingID.String(), body["booking_id"])
}

func TestVerifyPayment_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"unauthorized hides detail", models.WrapAppError(models.ErrKindUnauthorized, "session belongs to renter 0b9e", nil), http.StatusForbidden, "Unauthorized"},
		{"session not found", models.NewAppError(models.ErrKindSessionNotFound, "Checkout session not found"), http.StatusNotFound, "Checkout session not found"},
		{"timeout", models.NewAppError(models.ErrKindProviderTimeout, "Upstream service timed out, please retry"), http.StatusGatewayTimeout, "Upstream service timed out, please retry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := &MockPaymentChecker{}
			verifier.On("Verify", mock.Anything, mock.Anything, "cs_test_123", mock.Anything).Return(nil, tt.err)

			c, w := setupAuthenticatedContext(testRenter(), http.MethodPost, "/api/v1/payments/verify", map[string]string{"sessionId": "cs_test_123"})
			newTestPaymentHandler(&MockCheckoutCreator{}, verifier).VerifyPayment(c)

			assertStatus(t, w, tt.status)
			assert.Equal(t, tt.message, decodeBody(t, w)["message"])
		})
	}
}

func TestStatusForKind_Unknown(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, StatusForKind(models.ErrKindInternal))
	assert.Equal(t, http.StatusInternalServerError, StatusForKind("something_else"))
}

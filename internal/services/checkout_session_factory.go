package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/salonspace/booking-backend/internal/metrics"
	"github.com/salonspace/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// sessionIDPlaceholder is substituted by the provider on redirect
const sessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

// CheckoutSessionFactory wraps a split payment intent into a hosted
// checkout page. Nothing is persisted locally before payment completes.
type CheckoutSessionFactory struct {
	gateway PaymentGateway
	logger  *logrus.Logger
}

// NewCheckoutSessionFactory creates a new checkout session factory
func NewCheckoutSessionFactory(gateway PaymentGateway, logger *logrus.Logger) *CheckoutSessionFactory {
	return &CheckoutSessionFactory{
		gateway: gateway,
		logger:  logger,
	}
}

// SuccessURL is where the provider sends the renter after paying
func SuccessURL(origin string) string {
	return fmt.Sprintf("%s/booking-success?session_id=%s", strings.TrimRight(origin, "/"), sessionIDPlaceholder)
}

// CancelURL returns the renter to the listing they were booking
func CancelURL(origin, listingID string) string {
	return fmt.Sprintf("%s/listing/%s", strings.TrimRight(origin, "/"), url.PathEscape(listingID))
}

// Create registers the hosted checkout session and returns its redirect URL
func (f *CheckoutSessionFactory) Create(
	ctx context.Context,
	intent *SplitPaymentIntent,
	listing *models.ListingSnapshot,
	origin string,
	customerEmail string,
) (*CheckoutSession, error) {
	req := &CheckoutSessionRequest{
		Intent:             intent,
		ProductName:        listing.Title,
		ProductDescription: describeBooking(intent.Metadata),
		ImageURL:           listing.Images.First(),
		SuccessURL:         SuccessURL(origin),
		CancelURL:          CancelURL(origin, listing.ID.String()),
		CustomerEmail:      customerEmail,
	}

	start := time.Now()
	session, err := f.gateway.CreateCheckoutSession(ctx, req)
	metrics.ObserveProviderCall("create_checkout_session", start, err)
	if err != nil {
		if timeoutErr := asProviderTimeout(ctx, err); timeoutErr != nil {
			return nil, timeoutErr
		}
		f.logger.WithError(err).WithField("listing_id", listing.ID).Error("Failed to create checkout session")
		return nil, models.WrapAppError(models.ErrKindPaymentSetupFailed, "Failed to create checkout session", err)
	}

	if session.URL == "" {
		return nil, models.NewAppError(models.ErrKindPaymentSetupFailed, "Failed to create checkout session")
	}

	return session, nil
}

var bookingTypeLabels = map[models.BookingType]string{
	models.BookingTypeDaily:  "Daily",
	models.BookingTypeWeekly: "Weekly",
}

func describeBooking(m models.BookingMetadata) string {
	return fmt.Sprintf("%s booking from %s to %s",
		bookingTypeLabels[m.BookingType],
		m.StartDate.Format(models.DateLayout),
		m.EndDate.Format(models.DateLayout),
	)
}

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/salonspace/booking-backend/internal/metrics"
	"github.com/salonspace/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

const basisPointsDenominator = 10000

// PaymentSplit divides a booking amount between the platform and the owner
type PaymentSplit struct {
	Amount      int64
	PlatformFee int64
	OwnerPayout int64
}

// ComputeSplit rounds the platform fee half up so that
// PlatformFee + OwnerPayout always equals Amount. Amount is always positive
// once a quote has been validated.
func ComputeSplit(amount, feeBasisPoints int64) PaymentSplit {
	product := amount * feeBasisPoints
	fee := product / basisPointsDenominator
	if rem := product % basisPointsDenominator; rem*2 >= basisPointsDenominator {
		fee++
	}

	return PaymentSplit{
		Amount:      amount,
		PlatformFee: fee,
		OwnerPayout: amount - fee,
	}
}

// SplitPaymentIntent is the provider-independent description of a payment
// that routes the owner payout to a connected account on capture
type SplitPaymentIntent struct {
	Split                PaymentSplit
	Currency             string
	DestinationAccountID string
	Description          string
	Metadata             models.BookingMetadata
	IdempotencyKey       string
}

// SplitPaymentBuilder computes the marketplace split and registers the
// pending payment intent with the provider
type SplitPaymentBuilder struct {
	gateway        PaymentGateway
	feeBasisPoints int64
	currency       string
	logger         *logrus.Logger
}

// NewSplitPaymentBuilder creates a new split payment builder
func NewSplitPaymentBuilder(gateway PaymentGateway, feeBasisPoints int64, currency string, logger *logrus.Logger) *SplitPaymentBuilder {
	return &SplitPaymentBuilder{
		gateway:        gateway,
		feeBasisPoints: feeBasisPoints,
		currency:       currency,
		logger:         logger,
	}
}

// Build assembles the intent for an accepted quote. The listing owner must
// already have a payout account.
func (b *SplitPaymentBuilder) Build(listing *models.ListingSnapshot, quote *BookingQuote, renterID uuid.UUID) (*SplitPaymentIntent, error) {
	if listing.OwnerConnectAccountID == nil || *listing.OwnerConnectAccountID == "" {
		return nil, models.NewAppError(models.ErrKindOwnerNotOnboarded, "Salon owner has not completed payment setup")
	}

	split := ComputeSplit(quote.TotalAmount, b.feeBasisPoints)

	return &SplitPaymentIntent{
		Split:                split,
		Currency:             b.currency,
		DestinationAccountID: *listing.OwnerConnectAccountID,
		Description:          fmt.Sprintf("Booking for %s", listing.Title),
		Metadata: models.BookingMetadata{
			ListingID:   quote.ListingID,
			RenterID:    renterID,
			StartDate:   quote.StartDate,
			EndDate:     quote.EndDate,
			BookingType: quote.BookingType,
			PlatformFee: split.PlatformFee,
			OwnerPayout: split.OwnerPayout,
		},
		IdempotencyKey: uuid.NewString(),
	}, nil
}

// Register creates the pending payment intent. Any provider failure aborts
// the checkout before a session exists. The checkout session later creates its
// own intent from the same split and metadata, so the one registered here is
// never attached to it and stays unpaid.
func (b *SplitPaymentBuilder) Register(ctx context.Context, intent *SplitPaymentIntent) (string, error) {
	start := time.Now()
	paymentIntentID, err := b.gateway.CreatePaymentIntent(ctx, intent)
	metrics.ObserveProviderCall("create_payment_intent", start, err)
	if err != nil {
		if timeoutErr := asProviderTimeout(ctx, err); timeoutErr != nil {
			return "", timeoutErr
		}
		b.logger.WithError(err).WithFields(logrus.Fields{
			"listing_id":  intent.Metadata.ListingID,
			"destination": intent.DestinationAccountID,
			"amount":      intent.Split.Amount,
		}).Error("Failed to create split payment intent")
		return "", models.WrapAppError(models.ErrKindPaymentSetupFailed, "Failed to set up payment", err)
	}

	b.logger.WithFields(logrus.Fields{
		"payment_intent_id": paymentIntentID,
		"amount":            intent.Split.Amount,
		"platform_fee":      intent.Split.PlatformFee,
		"owner_payout":      intent.Split.OwnerPayout,
	}).Info("Split payment intent created")

	return paymentIntentID, nil
}

package services

import (
	"context"
	"errors"
	"net/http"

	"github.com/salonspace/booking-backend/internal/config"
	"github.com/salonspace/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
)

// PaymentGateway is the subset of payment provider operations used by the
// booking payment flow
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, intent *SplitPaymentIntent) (string, error)
	CreateCheckoutSession(ctx context.Context, req *CheckoutSessionRequest) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
	CreateConnectAccount(ctx context.Context, owner *models.Profile, country string) (string, error)
	CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error)
	GetConnectAccount(ctx context.Context, accountID string) (*ConnectAccount, error)
}

// EventVerifier authenticates signed webhook payloads
type EventVerifier interface {
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

// CheckoutSessionRequest describes a hosted checkout page for one booking
type CheckoutSessionRequest struct {
	Intent             *SplitPaymentIntent
	ProductName        string
	ProductDescription string
	ImageURL           string
	SuccessURL         string
	CancelURL          string
	CustomerEmail      string
}

// CheckoutSession is the provider's view of a payment attempt
type CheckoutSession struct {
	ID              string
	URL             string
	PaymentIntentID string
	PaymentStatus   string
	AmountTotal     int64
	Currency        string
	Metadata        map[string]string
}

// IsPaid reports whether the provider captured the payment
func (s *CheckoutSession) IsPaid() bool {
	return s.PaymentStatus == string(stripe.CheckoutSessionPaymentStatusPaid)
}

// ConnectAccount is the onboarding state of an owner payout account
type ConnectAccount struct {
	ID               string
	DetailsSubmitted bool
	ChargesEnabled   bool
	PayoutsEnabled   bool
}

// StripeService implements PaymentGateway and EventVerifier on the Stripe API
type StripeService struct {
	api           *client.API
	webhookSecret string
	logger        *logrus.Logger
}

// NewStripeService creates a Stripe client with bounded HTTP timeouts that
// logs through the application logger
func NewStripeService(cfg config.StripeConfig, logger *logrus.Logger) *StripeService {
	backends := stripe.NewBackendsWithConfig(&stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		LeveledLogger:     logger,
		MaxNetworkRetries: stripe.Int64(2),
	})

	return &StripeService{
		api:           client.New(cfg.SecretKey, backends),
		webhookSecret: cfg.WebhookSecret,
		logger:        logger,
	}
}

// CreatePaymentIntent registers a pending payment that transfers the owner
// payout to the connected account and keeps the platform fee
func (s *StripeService) CreatePaymentIntent(ctx context.Context, intent *SplitPaymentIntent) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:               stripe.Int64(intent.Split.Amount),
		Currency:             stripe.String(intent.Currency),
		ApplicationFeeAmount: stripe.Int64(intent.Split.PlatformFee),
		Description:          stripe.String(intent.Description),
		TransferData: &stripe.PaymentIntentTransferDataParams{
			Destination: stripe.String(intent.DestinationAccountID),
		},
	}
	params.Context = ctx
	if intent.IdempotencyKey != "" {
		params.SetIdempotencyKey(intent.IdempotencyKey)
	}
	for key, value := range intent.Metadata.ToMap() {
		params.AddMetadata(key, value)
	}

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return "", err
	}

	return pi.ID, nil
}

// CreateCheckoutSession creates a hosted payment page carrying the same
// split and metadata as the payment intent
func (s *StripeService) CreateCheckoutSession(ctx context.Context, req *CheckoutSessionRequest) (*CheckoutSession, error) {
	intent := req.Intent
	metadata := intent.Metadata.ToMap()

	productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name: stripe.String(req.ProductName),
	}
	if req.ProductDescription != "" {
		productData.Description = stripe.String(req.ProductDescription)
	}
	if req.ImageURL != "" {
		productData.Images = stripe.StringSlice([]string{req.ImageURL})
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:    stripe.String(intent.Currency),
					ProductData: productData,
					UnitAmount:  stripe.Int64(intent.Split.Amount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			ApplicationFeeAmount: stripe.Int64(intent.Split.PlatformFee),
			TransferData: &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
				Destination: stripe.String(intent.DestinationAccountID),
			},
			Metadata: metadata,
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	params.Context = ctx
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for key, value := range metadata {
		params.AddMetadata(key, value)
	}

	session, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, err
	}

	return toCheckoutSession(session), nil
}

// GetCheckoutSession retrieves a session. Unknown ids map to SessionNotFound.
func (s *StripeService) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	session, err := s.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		if isResourceMissing(err) {
			return nil, models.WrapAppError(models.ErrKindSessionNotFound, "Checkout session not found", err)
		}
		return nil, err
	}

	return toCheckoutSession(session), nil
}

// CreateConnectAccount creates an express payout account for an owner
func (s *StripeService) CreateConnectAccount(ctx context.Context, owner *models.Profile, country string) (string, error) {
	params := &stripe.AccountParams{
		Type:         stripe.String(string(stripe.AccountTypeExpress)),
		Country:      stripe.String(country),
		BusinessType: stripe.String(string(stripe.AccountBusinessTypeIndividual)),
		Capabilities: &stripe.AccountCapabilitiesParams{
			CardPayments: &stripe.AccountCapabilitiesCardPaymentsParams{Requested: stripe.Bool(true)},
			Transfers:    &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey("connect-account-" + owner.ID.String())
	if owner.Email != "" {
		params.Email = stripe.String(owner.Email)
	}
	params.AddMetadata("profile_id", owner.ID.String())
	params.AddMetadata("user_id", owner.UserID.String())

	account, err := s.api.Accounts.New(params)
	if err != nil {
		return "", err
	}

	return account.ID, nil
}

// CreateAccountLink returns a single-use onboarding URL for a payout account
func (s *StripeService) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(refreshURL),
		ReturnURL:  stripe.String(returnURL),
		Type:       stripe.String(string(stripe.AccountLinkTypeAccountOnboarding)),
	}
	params.Context = ctx

	link, err := s.api.AccountLinks.New(params)
	if err != nil {
		return "", err
	}

	return link.URL, nil
}

// GetConnectAccount reads the onboarding state of a payout account
func (s *StripeService) GetConnectAccount(ctx context.Context, accountID string) (*ConnectAccount, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx

	account, err := s.api.Accounts.GetByID(accountID, params)
	if err != nil {
		if isResourceMissing(err) {
			return nil, models.WrapAppError(models.ErrKindNotFound, "Payout account not found", err)
		}
		return nil, err
	}

	return &ConnectAccount{
		ID:               account.ID,
		DetailsSubmitted: account.DetailsSubmitted,
		ChargesEnabled:   account.ChargesEnabled,
		PayoutsEnabled:   account.PayoutsEnabled,
	}, nil
}

// ConstructEvent verifies the Stripe-Signature header against the raw body
func (s *StripeService) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	if signature == "" {
		return stripe.Event{}, models.NewAppError(models.ErrKindInvalidSignature, "Missing signature")
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, models.WrapAppError(models.ErrKindInvalidSignature, "Invalid signature", err)
	}

	return event, nil
}

func toCheckoutSession(session *stripe.CheckoutSession) *CheckoutSession {
	result := &CheckoutSession{
		ID:            session.ID,
		URL:           session.URL,
		PaymentStatus: string(session.PaymentStatus),
		AmountTotal:   session.AmountTotal,
		Currency:      string(session.Currency),
		Metadata:      session.Metadata,
	}
	if session.PaymentIntent != nil {
		result.PaymentIntentID = session.PaymentIntent.ID
	}
	return result
}

func isResourceMissing(err error) bool {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return stripeErr.Code == stripe.ErrorCodeResourceMissing || stripeErr.HTTPStatusCode == http.StatusNotFound
	}
	return false
}

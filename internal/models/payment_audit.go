package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentEventType represents the type of payment event
type PaymentEventType string

const (
	PaymentEventCheckoutCreated     PaymentEventType = "checkout_created"
	PaymentEventCheckoutRejected    PaymentEventType = "checkout_rejected"
	PaymentEventCheckoutFailed      PaymentEventType = "checkout_failed"
	PaymentEventWebhookReceived     PaymentEventType = "webhook_received"
	PaymentEventWebhookRejected     PaymentEventType = "webhook_rejected"
	PaymentEventWebhookIgnored      PaymentEventType = "webhook_ignored"
	PaymentEventBookingConfirmed    PaymentEventType = "booking_confirmed"
	PaymentEventBookingDuplicate    PaymentEventType = "booking_duplicate"
	PaymentEventBookingConfirmFail  PaymentEventType = "booking_confirmation_failed"
	PaymentEventVerifyRequested     PaymentEventType = "verify_requested"
	PaymentEventVerifyUnauthorized  PaymentEventType = "verify_unauthorized"
	PaymentEventBookingCancelled    PaymentEventType = "booking_cancelled"
	PaymentEventConnectAccountSetup PaymentEventType = "connect_account_setup"
)

// PaymentEventSource identifies where the event originated
type PaymentEventSource string

const (
	PaymentSourceBackend       PaymentEventSource = "backend"
	PaymentSourceStripeWebhook PaymentEventSource = "stripe_webhook"
	PaymentSourceStripeAPI     PaymentEventSource = "stripe_api"
	PaymentSourceUser          PaymentEventSource = "user"
	PaymentSourceSystem        PaymentEventSource = "system"
)

// PaymentAudit represents an immutable audit log entry for payment events
type PaymentAudit struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	BookingID         *uuid.UUID `json:"booking_id,omitempty" db:"booking_id"`
	ListingID         *uuid.UUID `json:"listing_id,omitempty" db:"listing_id"`
	ProfileID         *uuid.UUID `json:"profile_id,omitempty" db:"profile_id"`
	CheckoutSessionID *string    `json:"checkout_session_id,omitempty" db:"checkout_session_id"`
	PaymentIntentID   *string    `json:"payment_intent_id,omitempty" db:"payment_intent_id"`
	ProviderEventID   *string    `json:"provider_event_id,omitempty" db:"provider_event_id"`

	// Event info
	EventType   PaymentEventType   `json:"event_type" db:"event_type"`
	EventSource PaymentEventSource `json:"event_source" db:"event_source"`

	// Amounts in minor units
	ExpectedAmount *int64  `json:"expected_amount,omitempty" db:"expected_amount"`
	ReceivedAmount *int64  `json:"received_amount,omitempty" db:"received_amount"`
	PlatformFee    *int64  `json:"platform_fee,omitempty" db:"platform_fee"`
	Currency       *string `json:"currency,omitempty" db:"currency"`
	AmountsMatch   *bool   `json:"amounts_match,omitempty" db:"amounts_match"`

	PaymentStatus *string `json:"payment_status,omitempty" db:"payment_status"`

	Details JSONB `json:"details,omitempty" db:"details"`

	// Error tracking
	ErrorMessage *string `json:"error_message,omitempty" db:"error_message"`
	ErrorCode    *string `json:"error_code,omitempty" db:"error_code"`

	// Processing info
	ProcessingTimeMs *int `json:"processing_time_ms,omitempty" db:"processing_time_ms"`
	IsDuplicate      bool `json:"is_duplicate" db:"is_duplicate"`

	// Request metadata
	IPAddress *string `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent *string `json:"user_agent,omitempty" db:"user_agent"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty" db:"processed_at"`
}

// NewPaymentAudit creates a new payment audit entry with required fields
func NewPaymentAudit(eventType PaymentEventType, source PaymentEventSource) *PaymentAudit {
	return &PaymentAudit{
		ID:          uuid.New(),
		EventType:   eventType,
		EventSource: source,
		CreatedAt:   time.Now(),
	}
}

// SetBooking links the audit to a booking
func (pa *PaymentAudit) SetBooking(bookingID uuid.UUID) *PaymentAudit {
	pa.BookingID = &bookingID
	return pa
}

// SetListing links the audit to a listing
func (pa *PaymentAudit) SetListing(listingID uuid.UUID) *PaymentAudit {
	pa.ListingID = &listingID
	return pa
}

// SetProfile links the audit to the acting profile
func (pa *PaymentAudit) SetProfile(profileID uuid.UUID) *PaymentAudit {
	pa.ProfileID = &profileID
	return pa
}

// SetSession sets the provider checkout session and payment intent ids
func (pa *PaymentAudit) SetSession(sessionID, paymentIntentID string) *PaymentAudit {
	if sessionID != "" {
		pa.CheckoutSessionID = &sessionID
	}
	if paymentIntentID != "" {
		pa.PaymentIntentID = &paymentIntentID
	}
	return pa
}

// SetProviderEvent sets the provider webhook event id
func (pa *PaymentAudit) SetProviderEvent(eventID string) *PaymentAudit {
	if eventID != "" {
		pa.ProviderEventID = &eventID
	}
	return pa
}

// SetAmounts records expected and received amounts and returns whether they match
func (pa *PaymentAudit) SetAmounts(expected, received int64, currency string) bool {
	pa.ExpectedAmount = &expected
	pa.ReceivedAmount = &received
	pa.Currency = &currency
	match := expected == received
	pa.AmountsMatch = &match
	return match
}

// SetPlatformFee records the marketplace commission
func (pa *PaymentAudit) SetPlatformFee(fee int64) *PaymentAudit {
	pa.PlatformFee = &fee
	return pa
}

// SetPaymentStatus sets the payment status reported by the provider
func (pa *PaymentAudit) SetPaymentStatus(status string) *PaymentAudit {
	pa.PaymentStatus = &status
	return pa
}

// SetError sets error information
func (pa *PaymentAudit) SetError(message string, code ErrorKind) *PaymentAudit {
	pa.ErrorMessage = &message
	c := string(code)
	pa.ErrorCode = &c
	return pa
}

// SetDetails stores free-form event details
func (pa *PaymentAudit) SetDetails(details map[string]interface{}) *PaymentAudit {
	pa.Details = JSONB(details)
	return pa
}

// SetMetadata sets request metadata
func (pa *PaymentAudit) SetMetadata(ip, userAgent string) *PaymentAudit {
	if ip != "" {
		pa.IPAddress = &ip
	}
	if userAgent != "" {
		pa.UserAgent = &userAgent
	}
	return pa
}

// SetProcessingTime calculates and sets processing time
func (pa *PaymentAudit) SetProcessingTime(startTime time.Time) *PaymentAudit {
	durationMs := int(time.Since(startTime).Milliseconds())
	pa.ProcessingTimeMs = &durationMs
	now := time.Now()
	pa.ProcessedAt = &now
	return pa
}

// MarkAsDuplicate marks this event as a replay of an already processed payment
func (pa *PaymentAudit) MarkAsDuplicate() *PaymentAudit {
	pa.IsDuplicate = true
	return pa
}

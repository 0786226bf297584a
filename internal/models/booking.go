package models

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

// CanCancel reports whether a renter may still cancel from this status
func (s BookingStatus) CanCancel() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

// BookingType is the rate plan selector
type BookingType string

const (
	BookingTypeDaily  BookingType = "daily"
	BookingTypeWeekly BookingType = "weekly"
)

// IsValid reports whether t is one of the supported rate plans
func (t BookingType) IsValid() bool {
	return t == BookingTypeDaily || t == BookingTypeWeekly
}

// DateLayout is the calendar date format used in requests, metadata and storage
const DateLayout = "2006-01-02"

// Booking is the durable record of a confirmed rental
type Booking struct {
	ID                    uuid.UUID     `json:"id" db:"id"`
	ListingID             uuid.UUID     `json:"listing_id" db:"listing_id"`
	RenterID              uuid.UUID     `json:"renter_id" db:"renter_id"`
	StartDate             time.Time     `json:"start_date" db:"start_date"`
	EndDate               time.Time     `json:"end_date" db:"end_date"`
	TotalAmount           int64         `json:"total_amount" db:"total_amount"`
	BookingType           BookingType   `json:"booking_type" db:"booking_type"`
	Status                BookingStatus `json:"status" db:"status"`
	StripePaymentIntentID *string       `json:"stripe_payment_intent_id,omitempty" db:"stripe_payment_intent_id"`
	CreatedAt             time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at" db:"updated_at"`
}

// BookingWithListing is a booking joined with the listing owner, used for
// access checks on reads
type BookingWithListing struct {
	Booking
	ListingTitle   string    `json:"listing_title" db:"listing_title"`
	ListingOwnerID uuid.UUID `json:"listing_owner_id" db:"listing_owner_id"`
}

// CreateBookingPaymentRequest is the client request to start a checkout
type CreateBookingPaymentRequest struct {
	ListingID   string `json:"listingId"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	TotalAmount int64  `json:"totalAmount"`
	BookingType string `json:"bookingType"`
}

// CreateBookingPaymentResponse tells the client where to pay
type CreateBookingPaymentResponse struct {
	CheckoutURL string `json:"checkoutUrl"`
	SessionID   string `json:"sessionId"`
}

// VerifyPaymentRequest asks for the current state of a checkout session
type VerifyPaymentRequest struct {
	SessionID string `json:"sessionId"`
}

// VerifyPaymentResponse reports what is true right now for a session
type VerifyPaymentResponse struct {
	Verified      bool       `json:"verified"`
	PaymentStatus string     `json:"payment_status"`
	Amount        int64      `json:"amount"`
	BookingExists bool       `json:"booking_exists"`
	BookingID     *uuid.UUID `json:"booking_id,omitempty"`
}

// Checkout metadata keys shared by the session and the payment intent
const (
	MetadataListingID   = "listing_id"
	MetadataRenterID    = "renter_id"
	MetadataStartDate   = "start_date"
	MetadataEndDate     = "end_date"
	MetadataBookingType = "booking_type"
	MetadataPlatformFee = "platform_fee"
	MetadataOwnerPayout = "owner_payout"
)

// BookingMetadata carries everything the webhook needs to materialize a booking
type BookingMetadata struct {
	ListingID   uuid.UUID
	RenterID    uuid.UUID
	StartDate   time.Time
	EndDate     time.Time
	BookingType BookingType
	PlatformFee int64
	OwnerPayout int64
}

// ToMap renders the metadata as provider key/value pairs
func (m BookingMetadata) ToMap() map[string]string {
	return map[string]string{
		MetadataListingID:   m.ListingID.String(),
		MetadataRenterID:    m.RenterID.String(),
		MetadataStartDate:   m.StartDate.Format(DateLayout),
		MetadataEndDate:     m.EndDate.Format(DateLayout),
		MetadataBookingType: string(m.BookingType),
		MetadataPlatformFee: strconv.FormatInt(m.PlatformFee, 10),
		MetadataOwnerPayout: strconv.FormatInt(m.OwnerPayout, 10),
	}
}

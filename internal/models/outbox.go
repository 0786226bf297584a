package models

import (
	"time"

	"github.com/google/uuid"
)

// BookingEventType names events published to the booking stream
type BookingEventType string

const (
	BookingEventConfirmed BookingEventType = "booking_confirmed"
	BookingEventCancelled BookingEventType = "booking_cancelled"
)

// OutboxMessage is a booking event stored in the same transaction as the
// state change, published later by the relay
type OutboxMessage struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	AggregateID uuid.UUID        `json:"aggregate_id" db:"aggregate_id"`
	EventType   BookingEventType `json:"event_type" db:"event_type"`
	Payload     JSONB            `json:"payload" db:"payload"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	PublishedAt *time.Time       `json:"published_at,omitempty" db:"published_at"`
	Attempts    int              `json:"attempts" db:"attempts"`
}

// BookingEvent is the message body published for booking state changes
type BookingEvent struct {
	Type            BookingEventType `json:"type"`
	BookingID       uuid.UUID        `json:"booking_id"`
	ListingID       uuid.UUID        `json:"listing_id"`
	RenterID        uuid.UUID        `json:"renter_id"`
	StartDate       string           `json:"start_date"`
	EndDate         string           `json:"end_date"`
	TotalAmount     int64            `json:"total_amount"`
	Status          BookingStatus    `json:"status"`
	PaymentIntentID string           `json:"payment_intent_id,omitempty"`
	OccurredAt      time.Time        `json:"occurred_at"`
}

// NewBookingEvent builds the event body for a booking
func NewBookingEvent(eventType BookingEventType, b *Booking) BookingEvent {
	event := BookingEvent{
		Type:        eventType,
		BookingID:   b.ID,
		ListingID:   b.ListingID,
		RenterID:    b.RenterID,
		StartDate:   b.StartDate.Format(DateLayout),
		EndDate:     b.EndDate.Format(DateLayout),
		TotalAmount: b.TotalAmount,
		Status:      b.Status,
		OccurredAt:  time.Now().UTC(),
	}
	if b.StripePaymentIntentID != nil {
		event.PaymentIntentID = *b.StripePaymentIntentID
	}
	return event
}

// ToJSONB converts the event into the outbox payload column
func (e BookingEvent) ToJSONB() JSONB {
	return JSONB{
		"type":              string(e.Type),
		"booking_id":        e.BookingID.String(),
		"listing_id":        e.ListingID.String(),
		"renter_id":         e.RenterID.String(),
		"start_date":        e.StartDate,
		"end_date":          e.EndDate,
		"total_amount":      e.TotalAmount,
		"status":            string(e.Status),
		"payment_intent_id": e.PaymentIntentID,
		"occurred_at":       e.OccurredAt.Format(time.RFC3339),
	}
}

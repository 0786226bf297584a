package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/salonspace/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// PaymentAuditRepository handles payment audit operations
type PaymentAuditRepository struct {
	db     DB
	logger *logrus.Logger
}

// NewPaymentAuditRepository creates a new payment audit repository
func NewPaymentAuditRepository(db DB, logger *logrus.Logger) *PaymentAuditRepository {
	return &PaymentAuditRepository{
		db:     db,
		logger: logger,
	}
}

// Log creates a new payment audit entry
func (r *PaymentAuditRepository) Log(ctx context.Context, audit *models.PaymentAudit) error {
	if audit == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}

	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO payment_audits (
			id, booking_id, listing_id, profile_id,
			checkout_session_id, payment_intent_id, provider_event_id,
			event_type, event_source,
			expected_amount, received_amount, platform_fee, currency, amounts_match,
			payment_status, details,
			error_message, error_code,
			processing_time_ms, is_duplicate,
			ip_address, user_agent,
			created_at, processed_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9,
			$10, $11, $12, $13, $14,
			$15, $16,
			$17, $18,
			$19, $20,
			$21, $22,
			$23, $24
		)`

	_, err := r.db.ExecContext(ctx, query,
		audit.ID, audit.BookingID, audit.ListingID, audit.ProfileID,
		audit.CheckoutSessionID, audit.PaymentIntentID, audit.ProviderEventID,
		audit.EventType, audit.EventSource,
		audit.ExpectedAmount, audit.ReceivedAmount, audit.PlatformFee, audit.Currency, audit.AmountsMatch,
		audit.PaymentStatus, audit.Details,
		audit.ErrorMessage, audit.ErrorCode,
		audit.ProcessingTimeMs, audit.IsDuplicate,
		audit.IPAddress, audit.UserAgent,
		audit.CreatedAt, audit.ProcessedAt,
	)

	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"event_type":        audit.EventType,
			"payment_intent_id": audit.PaymentIntentID,
			"session_id":        audit.CheckoutSessionID,
		}).Error("CRITICAL: Failed to log payment audit")
		return fmt.Errorf("failed to log payment audit: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"audit_id":   audit.ID,
		"event_type": audit.EventType,
	}).Debug("Payment audit logged")

	return nil
}

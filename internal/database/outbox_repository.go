package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/salonspace/booking-backend/internal/models"
)

// OutboxRepository reads and acknowledges booking events awaiting publication
type OutboxRepository struct {
	db DB
}

// NewOutboxRepository creates a new outbox repository
func NewOutboxRepository(db DB) *OutboxRepository {
	return &OutboxRepository{
		db: db,
	}
}

// insertOutboxMessage stores an event inside the caller's transaction
func insertOutboxMessage(ctx context.Context, tx sqlx.ExtContext, aggregateID uuid.UUID, event models.BookingEvent) error {
	query := `
		INSERT INTO outbox_messages (id, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := tx.ExecContext(ctx, query,
		uuid.New(),
		aggregateID,
		event.Type,
		event.ToJSONB(),
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox message: %w", err)
	}

	return nil
}

// FetchUnpublished returns the oldest events not yet published
func (r *OutboxRepository) FetchUnpublished(ctx context.Context, limit int) ([]models.OutboxMessage, error) {
	messages := []models.OutboxMessage{}
	query := `
		SELECT id, aggregate_id, event_type, payload, created_at, published_at, attempts
		FROM outbox_messages
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`

	if err := r.db.SelectContext(ctx, &messages, query, limit); err != nil {
		return nil, fmt.Errorf("failed to fetch outbox messages: %w", err)
	}

	return messages, nil
}

// MarkPublished acknowledges a delivered event
func (r *OutboxRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE outbox_messages SET published_at = NOW(), attempts = attempts + 1 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark outbox message published: %w", err)
	}

	return nil
}

// RecordFailure counts a failed delivery attempt
func (r *OutboxRepository) RecordFailure(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE outbox_messages SET attempts = attempts + 1 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to record outbox failure: %w", err)
	}

	return nil
}

package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/salonspace/booking-backend/internal/events"
	"github.com/salonspace/booking-backend/internal/metrics"
	"github.com/salonspace/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// OutboxStore reads and acknowledges stored booking events
type OutboxStore interface {
	FetchUnpublished(ctx context.Context, limit int) ([]models.OutboxMessage, error)
	MarkPublished(ctx context.Context, id uuid.UUID) error
	RecordFailure(ctx context.Context, id uuid.UUID) error
}

// OutboxRelay publishes booking events written alongside booking changes.
// Delivery is at-least-once; consumers dedupe on booking id and event type.
type OutboxRelay struct {
	store     OutboxStore
	publisher events.Publisher
	topic     string
	batchSize int
	logger    *logrus.Logger
}

// NewOutboxRelay creates a new outbox relay
func NewOutboxRelay(store OutboxStore, publisher events.Publisher, topic string, batchSize int, logger *logrus.Logger) *OutboxRelay {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &OutboxRelay{
		store:     store,
		publisher: publisher,
		topic:     topic,
		batchSize: batchSize,
		logger:    logger,
	}
}

// RelayOnce publishes one batch and returns how many messages were sent.
// A failed message is counted and left for the next run; the batch continues.
func (r *OutboxRelay) RelayOnce(ctx context.Context) (int, error) {
	messages, err := r.store.FetchUnpublished(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch outbox messages: %w", err)
	}

	published, failed := 0, 0
	for _, msg := range messages {
		if err := r.publish(ctx, msg); err != nil {
			failed++
			r.logger.WithError(err).WithFields(logrus.Fields{
				"outbox_id":  msg.ID,
				"event_type": msg.EventType,
				"attempts":   msg.Attempts + 1,
			}).Warn("Failed to publish booking event")
			if recErr := r.store.RecordFailure(ctx, msg.ID); recErr != nil {
				r.logger.WithError(recErr).WithField("outbox_id", msg.ID).Error("Failed to record outbox failure")
			}
			continue
		}

		if err := r.store.MarkPublished(ctx, msg.ID); err != nil {
			// Published but not acknowledged, it will be sent again
			r.logger.WithError(err).WithField("outbox_id", msg.ID).Error("Failed to mark outbox message published")
			continue
		}
		published++
	}

	metrics.ObserveOutbox(metrics.OutcomeSuccess, published)
	metrics.ObserveOutbox(metrics.OutcomeError, failed)

	return published, nil
}

func (r *OutboxRelay) publish(ctx context.Context, msg models.OutboxMessage) error {
	payload, err := json.Marshal(msg.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	return r.publisher.Publish(ctx, r.topic, msg.AggregateID.String(), payload)
}

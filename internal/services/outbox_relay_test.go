package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/salonspace/booking-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOutboxStore struct {
	mock.Mock
}

func (m *MockOutboxStore) FetchUnpublished(ctx context.Context, limit int) ([]models.OutboxMessage, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.OutboxMessage), args.Error(1)
}

func (m *MockOutboxStore) MarkPublished(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOutboxStore) RecordFailure(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic, key string, payload []byte) error {
	return m.Called(ctx, topic, key, payload).Error(0)
}

func (m *MockPublisher) Close() error {
	return m.Called().Error(0)
}

func outboxMessage() models.OutboxMessage {
	b := sampleBooking(models.BookingStatusConfirmed).Booking
	return models.OutboxMessage{
		ID:          uuid.New(),
		AggregateID: b.ID,
		EventType:   models.BookingEventConfirmed,
		Payload:     models.NewBookingEvent(models.BookingEventConfirmed, &b).ToJSONB(),
	}
}

func TestRelayOnce_PublishesBatch(t *testing.T) {
	first, second := outboxMessage(), outboxMessage()
	second.AggregateID = uuid.New()

	store := &MockOutboxStore{}
	store.On("FetchUnpublished", mock.Anything, 10).Return([]models.OutboxMessage{first, second}, nil)
	store.On("MarkPublished", mock.Anything, first.ID).Return(nil)
	store.On("MarkPublished", mock.Anything, second.ID).Return(nil)

	publisher := &MockPublisher{}
	publisher.On("Publish", mock.Anything, "booking-events", first.AggregateID.String(), mock.MatchedBy(func(p []byte) bool {
		var body map[string]interface{}
		return json.Unmarshal(p, &body) == nil && body["type"] == "booking_confirmed"
	})).Return(nil)
	publisher.On("Publish", mock.Anything, "booking-events", second.AggregateID.String(), mock.Anything).Return(nil)

	relay := NewOutboxRelay(store, publisher, "booking-events", 10, newTestLogger())
	published, err := relay.RelayOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, published)
	store.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestRelayOnce_FailureIsRetriedLater(t *testing.T) {
	failing, ok := outboxMessage(), outboxMessage()
	failing.AggregateID = uuid.New()

	store := &MockOutboxStore{}
	store.On("FetchUnpublished", mock.Anything, 50).Return([]models.OutboxMessage{failing, ok}, nil)
	store.On("RecordFailure", mock.Anything, failing.ID).Return(nil)
	store.On("MarkPublished", mock.Anything, ok.ID).Return(nil)

	publisher := &MockPublisher{}
	publisher.On("Publish", mock.Anything, "booking-events", failing.AggregateID.String(), mock.Anything).
		Return(errors.New("leader not available"))
	publisher.On("Publish", mock.Anything, "booking-events", ok.AggregateID.String(), mock.Anything).Return(nil)

	relay := NewOutboxRelay(store, publisher, "booking-events", 0, newTestLogger())
	published, err := relay.RelayOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, published)
	store.AssertNotCalled(t, "MarkPublished", mock.Anything, failing.ID)
	store.AssertExpectations(t)
}

func TestRelayOnce_FetchError(t *testing.T) {
	store := &MockOutboxStore{}
	store.On("FetchUnpublished", mock.Anything, 50).Return(nil, errors.New("connection refused"))
	publisher := &MockPublisher{}

	_, err := NewOutboxRelay(store, publisher, "booking-events", 50, newTestLogger()).RelayOnce(context.Background())

	assert.Error(t, err)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

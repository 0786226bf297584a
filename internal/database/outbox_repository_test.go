package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/salonspace/booking-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("FetchUnpublished", func(t *testing.T) {
		db, mock, cleanup := setupMockDB(t)
		defer cleanup()
		repo := NewOutboxRepository(db)

		msgID := uuid.New()
		bookingID := uuid.New()
		mock.ExpectQuery(`FROM outbox_messages\s+WHERE published_at IS NULL`).
			WithArgs(10).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "aggregate_id", "event_type", "payload", "created_at", "published_at", "attempts",
			}).AddRow(
				msgID.String(), bookingID.String(), "booking_confirmed",
				[]byte(`{"type":"booking_confirmed","total_amount":300}`), time.Now(), nil, 0,
			))

		messages, err := repo.FetchUnpublished(ctx, 10)
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, msgID, messages[0].ID)
		assert.Equal(t, models.BookingEventConfirmed, messages[0].EventType)
		assert.Equal(t, float64(300), messages[0].Payload["total_amount"])
		assert.Nil(t, messages[0].PublishedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("MarkPublished", func(t *testing.T) {
		db, mock, cleanup := setupMockDB(t)
		defer cleanup()
		repo := NewOutboxRepository(db)

		id := uuid.New()
		mock.ExpectExec(`UPDATE outbox_messages SET published_at = NOW\(\)`).
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.MarkPublished(ctx, id))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RecordFailure", func(t *testing.T) {
		db, mock, cleanup := setupMockDB(t)
		defer cleanup()
		repo := NewOutboxRepository(db)

		id := uuid.New()
		mock.ExpectExec(`UPDATE outbox_messages SET attempts = attempts \+ 1`).
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.RecordFailure(ctx, id))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/salonspace/booking-backend/internal/models"
)

// ListingRepository provides read-only listing lookups for the payment flow
type ListingRepository struct {
	db DB
}

// NewListingRepository creates a new listing repository
func NewListingRepository(db DB) *ListingRepository {
	return &ListingRepository{
		db: db,
	}
}

// GetSnapshot returns the listing joined with its owner's payout account state.
// Returns nil, nil when the listing does not exist.
func (r *ListingRepository) GetSnapshot(ctx context.Context, listingID uuid.UUID) (*models.ListingSnapshot, error) {
	var snapshot models.ListingSnapshot
	query := `
		SELECT
			l.id, l.owner_id, l.title, l.images,
			l.price_per_day, l.price_per_week, l.available,
			p.stripe_connect_account_id AS owner_connect_account_id,
			p.stripe_connect_onboarded AS owner_onboarded,
			p.stripe_connect_charges_enabled AS owner_charges_enabled
		FROM listings l
		JOIN profiles p ON p.id = l.owner_id
		WHERE l.id = $1
	`

	err := r.db.GetContext(ctx, &snapshot, query, listingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing snapshot: %w", err)
	}

	return &snapshot, nil
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/salonspace/booking-backend/internal/models"
)

// ProfileRepository handles marketplace profile operations
type ProfileRepository struct {
	db DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db DB) *ProfileRepository {
	return &ProfileRepository{
		db: db,
	}
}

const profileColumns = `
	id, user_id, email, full_name, user_type,
	stripe_connect_account_id, stripe_connect_onboarded,
	stripe_connect_details_submitted, stripe_connect_charges_enabled,
	created_at, updated_at`

// GetByUserID resolves the profile of an authenticated identity provider user.
// Returns nil, nil when no profile exists.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	query := `SELECT` + profileColumns + ` FROM profiles WHERE user_id = $1`

	err := r.db.GetContext(ctx, &profile, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile by user id: %w", err)
	}

	return &profile, nil
}

// GetByID returns a profile by its id, or nil when it does not exist
func (r *ProfileRepository) GetByID(ctx context.Context, profileID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	query := `SELECT` + profileColumns + ` FROM profiles WHERE id = $1`

	err := r.db.GetContext(ctx, &profile, query, profileID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &profile, nil
}

// SetConnectAccount stores a newly created connect account id. The update only
// applies while no account is stored, so two concurrent onboarding attempts
// cannot overwrite each other; it reports whether this call stored the id.
func (r *ProfileRepository) SetConnectAccount(ctx context.Context, profileID uuid.UUID, accountID string) (bool, error) {
	query := `
		UPDATE profiles
		SET stripe_connect_account_id = $1, updated_at = NOW()
		WHERE id = $2 AND stripe_connect_account_id IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, accountID, profileID)
	if err != nil {
		return false, fmt.Errorf("failed to set connect account: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows == 1, nil
}

// UpdateConnectStatus persists the onboarding state reported by the provider
func (r *ProfileRepository) UpdateConnectStatus(ctx context.Context, profileID uuid.UUID, status models.ConnectStatus) error {
	query := `
		UPDATE profiles
		SET stripe_connect_onboarded = $1,
		    stripe_connect_details_submitted = $2,
		    stripe_connect_charges_enabled = $3,
		    updated_at = NOW()
		WHERE id = $4
	`

	_, err := r.db.ExecContext(ctx, query,
		status.Onboarded,
		status.DetailsSubmitted,
		status.ChargesEnabled,
		profileID,
	)
	if err != nil {
		return fmt.Errorf("failed to update connect status: %w", err)
	}

	return nil
}

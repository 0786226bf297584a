package models

import (
	"github.com/google/uuid"
)

// ListingSnapshot is the listing as seen at quote time, joined with the
// owner's payment account state
type ListingSnapshot struct {
	ID           uuid.UUID   `db:"id"`
	OwnerID      uuid.UUID   `db:"owner_id"`
	Title        string      `db:"title"`
	Images       StringArray `db:"images"`
	PricePerDay  int64       `db:"price_per_day"`
	PricePerWeek *int64      `db:"price_per_week"`
	Available    bool        `db:"available"`

	OwnerConnectAccountID *string `db:"owner_connect_account_id"`
	OwnerOnboarded        bool    `db:"owner_onboarded"`
	OwnerChargesEnabled   bool    `db:"owner_charges_enabled"`
}

// HasWeeklyRate reports whether the listing offers a usable weekly rate
func (s *ListingSnapshot) HasWeeklyRate() bool {
	return s.PricePerWeek != nil && *s.PricePerWeek > 0
}

// OwnerCanReceivePayments reports whether a split payment can target the owner
func (s *ListingSnapshot) OwnerCanReceivePayments() bool {
	return s.OwnerConnectAccountID != nil && *s.OwnerConnectAccountID != "" &&
		s.OwnerOnboarded && s.OwnerChargesEnabled
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// UserType distinguishes space owners from renters
type UserType string

const (
	UserTypeSalonOwner UserType = "salon_owner"
	UserTypeRenter     UserType = "renter"
)

// Profile is the marketplace profile attached to an identity provider user
type Profile struct {
	ID                            uuid.UUID `json:"id" db:"id"`
	UserID                        uuid.UUID `json:"user_id" db:"user_id"`
	Email                         string    `json:"email" db:"email"`
	FullName                      *string   `json:"full_name,omitempty" db:"full_name"`
	UserType                      UserType  `json:"user_type" db:"user_type"`
	StripeConnectAccountID        *string   `json:"stripe_connect_account_id,omitempty" db:"stripe_connect_account_id"`
	StripeConnectOnboarded        bool      `json:"stripe_connect_onboarded" db:"stripe_connect_onboarded"`
	StripeConnectDetailsSubmitted bool      `json:"stripe_connect_details_submitted" db:"stripe_connect_details_submitted"`
	StripeConnectChargesEnabled   bool      `json:"stripe_connect_charges_enabled" db:"stripe_connect_charges_enabled"`
	CreatedAt                     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt                     time.Time `json:"updated_at" db:"updated_at"`
}

// IsSalonOwner reports whether the profile may list spaces and receive payouts
func (p *Profile) IsSalonOwner() bool {
	return p.UserType == UserTypeSalonOwner
}

// HasConnectAccount reports whether a connected payout account was created
func (p *Profile) HasConnectAccount() bool {
	return p.StripeConnectAccountID != nil && *p.StripeConnectAccountID != ""
}

// ConnectStatus is the payout account state reported by the provider
type ConnectStatus struct {
	AccountID        string `json:"account_id,omitempty"`
	Connected        bool   `json:"connected"`
	Onboarded        bool   `json:"onboarded"`
	DetailsSubmitted bool   `json:"details_submitted"`
	ChargesEnabled   bool   `json:"charges_enabled"`
	PayoutsEnabled   bool   `json:"payouts_enabled"`
}

// ConnectOnboardingLink is returned to owners to continue provider onboarding
type ConnectOnboardingLink struct {
	URL       string `json:"url"`
	AccountID string `json:"account_id"`
}

package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/salonspace/booking-backend/internal/config"
	"github.com/salonspace/booking-backend/internal/metrics"
	"github.com/salonspace/booking-backend/internal/models"
	"github.com/salonspace/booking-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

// ConnectProfileStore persists owner payout account state
type ConnectProfileStore interface {
	GetByID(ctx context.Context, profileID uuid.UUID) (*models.Profile, error)
	SetConnectAccount(ctx context.Context, profileID uuid.UUID, accountID string) (bool, error)
	UpdateConnectStatus(ctx context.Context, profileID uuid.UUID, status models.ConnectStatus) error
}

// ConnectService onboards salon owners onto provider payout accounts
type ConnectService struct {
	gateway  PaymentGateway
	profiles ConnectProfileStore
	audit    *AuditService
	cfg      config.StripeConfig
	timeouts Timeouts
	logger   *logrus.Logger
}

// NewConnectService creates a new connect service
func NewConnectService(
	gateway PaymentGateway,
	profiles ConnectProfileStore,
	audit *AuditService,
	cfg config.StripeConfig,
	timeouts Timeouts,
	logger *logrus.Logger,
) *ConnectService {
	return &ConnectService{
		gateway:  gateway,
		profiles: profiles,
		audit:    audit,
		cfg:      cfg,
		timeouts: timeouts,
		logger:   logger,
	}
}

// CreateOnboardingLink makes sure the owner has a payout account and returns
// a link to continue onboarding. The account is created once per owner.
func (s *ConnectService) CreateOnboardingLink(ctx context.Context, owner *models.Profile, origin string, meta *utils.RequestMeta) (*models.ConnectOnboardingLink, error) {
	if !owner.IsSalonOwner() {
		return nil, models.NewAppError(models.ErrKindUnauthorized, "Only salon owners can set up payouts")
	}

	start := time.Now()
	audit := models.NewPaymentAudit(models.PaymentEventConnectAccountSetup, models.PaymentSourceUser).
		SetProfile(owner.ID)

	accountID, err := s.ensureAccount(ctx, owner)
	if err != nil {
		s.audit.recordFailure(ctx, audit, err, start, meta)
		return nil, err
	}

	origin = strings.TrimRight(origin, "/")
	providerCtx, cancel := s.timeouts.provider(ctx)
	defer cancel()

	providerStart := time.Now()
	url, err := s.gateway.CreateAccountLink(providerCtx, accountID, origin+s.cfg.ConnectRefreshPath, origin+s.cfg.ConnectReturnPath)
	metrics.ObserveProviderCall("create_account_link", providerStart, err)
	if err != nil {
		err = classifyUpstream(providerCtx, err, models.ErrKindPaymentSetupFailed, "Failed to create onboarding link")
		s.audit.recordFailure(ctx, audit, err, start, meta)
		return nil, err
	}

	audit.SetDetails(map[string]interface{}{"account_id": accountID})
	audit.SetProcessingTime(start)
	s.audit.Record(ctx, audit, meta)

	return &models.ConnectOnboardingLink{URL: url, AccountID: accountID}, nil
}

func (s *ConnectService) ensureAccount(ctx context.Context, owner *models.Profile) (string, error) {
	if owner.HasConnectAccount() {
		return *owner.StripeConnectAccountID, nil
	}

	providerCtx, cancel := s.timeouts.provider(ctx)
	defer cancel()

	providerStart := time.Now()
	accountID, err := s.gateway.CreateConnectAccount(providerCtx, owner, s.cfg.ConnectCountry)
	metrics.ObserveProviderCall("create_connect_account", providerStart, err)
	if err != nil {
		return "", classifyUpstream(providerCtx, err, models.ErrKindPaymentSetupFailed, "Failed to create payout account")
	}

	dbCtx, cancelDB := s.timeouts.database(ctx)
	defer cancelDB()

	stored, err := s.profiles.SetConnectAccount(dbCtx, owner.ID, accountID)
	if err != nil {
		return "", classifyUpstream(dbCtx, err, models.ErrKindInternal, "Failed to save payout account")
	}
	if stored {
		s.logger.WithFields(logrus.Fields{
			"profile_id": owner.ID,
			"account_id": accountID,
		}).Info("Connect account created")
		return accountID, nil
	}

	// A concurrent request stored its account first; continue with that one
	current, err := s.profiles.GetByID(dbCtx, owner.ID)
	if err != nil {
		return "", classifyUpstream(dbCtx, err, models.ErrKindInternal, "Failed to load profile")
	}
	if current == nil || !current.HasConnectAccount() {
		return "", models.NewAppError(models.ErrKindInternal, "Failed to save payout account")
	}
	return *current.StripeConnectAccountID, nil
}

// CheckStatus refreshes the owner's onboarding state from the provider
func (s *ConnectService) CheckStatus(ctx context.Context, profile *models.Profile) (*models.ConnectStatus, error) {
	if !profile.HasConnectAccount() {
		return &models.ConnectStatus{}, nil
	}
	accountID := *profile.StripeConnectAccountID

	providerCtx, cancel := s.timeouts.provider(ctx)
	defer cancel()

	providerStart := time.Now()
	account, err := s.gateway.GetConnectAccount(providerCtx, accountID)
	metrics.ObserveProviderCall("get_connect_account", providerStart, err)
	if err != nil {
		return nil, classifyUpstream(providerCtx, err, models.ErrKindInternal, "Failed to check payout account")
	}

	status := models.ConnectStatus{
		AccountID:        accountID,
		Connected:        true,
		Onboarded:        account.DetailsSubmitted && account.ChargesEnabled,
		DetailsSubmitted: account.DetailsSubmitted,
		ChargesEnabled:   account.ChargesEnabled,
		PayoutsEnabled:   account.PayoutsEnabled,
	}

	dbCtx, cancelDB := s.timeouts.database(ctx)
	defer cancelDB()

	if err := s.profiles.UpdateConnectStatus(dbCtx, profile.ID, status); err != nil {
		return nil, classifyUpstream(dbCtx, err, models.ErrKindInternal, "Failed to save payout status")
	}

	return &status, nil
}

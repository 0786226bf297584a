package services

import (
	"context"
	"time"

	"github.com/salonspace/booking-backend/internal/models"
	"github.com/salonspace/booking-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

// AuditStore persists payment audit entries
type AuditStore interface {
	Log(ctx context.Context, audit *models.PaymentAudit) error
}

// AuditService records the payment trail. Audit failures are logged and
// never fail the request that produced them.
type AuditService struct {
	store   AuditStore
	timeout time.Duration
	logger  *logrus.Logger
}

// NewAuditService creates a new audit service. A nil store disables auditing.
func NewAuditService(store AuditStore, timeout time.Duration, logger *logrus.Logger) *AuditService {
	return &AuditService{
		store:   store,
		timeout: timeout,
		logger:  logger,
	}
}

// Record stores an audit entry, detached from request cancellation
func (s *AuditService) Record(ctx context.Context, audit *models.PaymentAudit, meta *utils.RequestMeta) {
	if s == nil || s.store == nil || audit == nil {
		return
	}

	if meta != nil {
		audit.SetMetadata(meta.IP, meta.UserAgent)
		if audit.Details == nil {
			audit.Details = models.JSONB{}
		}
		audit.Details["device"] = meta.Device.ToMap()
	}

	ctx, cancel := boundedContext(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if err := s.store.Log(ctx, audit); err != nil {
		s.logger.WithError(err).WithField("event_type", audit.EventType).Error("AUDIT ERROR: payment audit not recorded")
	}
}

// recordFailure is shorthand for an audit entry describing a classified error
func (s *AuditService) recordFailure(ctx context.Context, audit *models.PaymentAudit, err error, start time.Time, meta *utils.RequestMeta) {
	if s == nil {
		return
	}
	audit.SetError(err.Error(), models.KindOf(err))
	audit.SetProcessingTime(start)
	s.Record(ctx, audit, meta)
}

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/salonspace/booking-backend/internal/metrics"
	"github.com/sirupsen/logrus"
)

const cronJobTimeout = time.Minute

// CronService manages scheduled background jobs
type CronService struct {
	cron     *cron.Cron
	relay    *OutboxRelay
	bookings *BookingService
	logger   *logrus.Logger
}

// NewCronService creates a new CronService. relay may be nil when no
// event stream is configured.
func NewCronService(relay *OutboxRelay, bookings *BookingService, logger *logrus.Logger) *CronService {
	// Seconds precision, skip a run while the previous one is still going
	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	return &CronService{
		cron:     c,
		relay:    relay,
		bookings: bookings,
		logger:   logger,
	}
}

// Start schedules all jobs and starts the scheduler
func (s *CronService) Start(outboxSchedule, completionSchedule string) error {
	s.logger.Info("Starting cron service...")

	// Job 1: relay booking events to the event stream
	if s.relay != nil {
		if _, err := s.cron.AddFunc(outboxSchedule, s.relayOutboxJob); err != nil {
			return fmt.Errorf("failed to schedule outbox relay job: %w", err)
		}
		s.logger.WithField("schedule", outboxSchedule).Info("✓ Scheduled: Relay booking events")
	}

	// Job 2: close bookings whose end date has passed
	// Cron format: second minute hour day month weekday
	if _, err := s.cron.AddFunc(completionSchedule, s.completeBookingsJob); err != nil {
		return fmt.Errorf("failed to schedule booking completion job: %w", err)
	}
	s.logger.WithField("schedule", completionSchedule).Info("✓ Scheduled: Complete past bookings")

	s.cron.Start()
	s.logger.Info("✓ Cron service started successfully")

	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("✓ Cron service stopped")
}

func (s *CronService) relayOutboxJob() {
	ctx, cancel := context.WithTimeout(context.Background(), cronJobTimeout)
	defer cancel()

	published, err := s.relay.RelayOnce(ctx)
	if err != nil {
		s.logger.WithError(err).Error("[CRON ERROR] Failed to relay booking events")
		return
	}
	if published > 0 {
		s.logger.WithField("published", published).Info("[CRON] ✓ Relayed booking events")
	}
}

func (s *CronService) completeBookingsJob() {
	s.logger.Info("[CRON] Starting booking completion job...")
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), cronJobTimeout)
	defer cancel()

	count, err := s.bookings.CompletePastBookings(ctx, time.Now())
	if err != nil {
		s.logger.WithError(err).Error("[CRON ERROR] Failed to complete past bookings")
		return
	}

	metrics.ObserveCompletedBookings(count)
	s.logger.WithFields(logrus.Fields{
		"completed": count,
		"duration":  time.Since(startTime).String(),
	}).Info("[CRON] ✓ Completed past bookings")
}

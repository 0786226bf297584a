package services

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/salonspace/booking-backend/internal/models"
)

// Timeouts bounds every call to the payment provider and the database
type Timeouts struct {
	Provider time.Duration
	Database time.Duration
}

func (t Timeouts) provider(ctx context.Context) (context.Context, context.CancelFunc) {
	return boundedContext(ctx, t.Provider)
}

func (t Timeouts) database(ctx context.Context) (context.Context, context.CancelFunc) {
	return boundedContext(ctx, t.Database)
}

func boundedContext(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// asProviderTimeout classifies deadline failures as ProviderTimeout and
// returns nil for any other error
func asProviderTimeout(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	var appErr *models.AppError
	if errors.As(err, &appErr) {
		if appErr.Kind == models.ErrKindProviderTimeout {
			return appErr
		}
		return nil
	}

	var netErr net.Error
	timedOut := errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout())
	if !timedOut {
		return nil
	}

	return models.WrapAppError(models.ErrKindProviderTimeout, "Upstream service timed out, please retry", err)
}

// classifyUpstream maps an upstream failure to a timeout or, when the error
// is not already classified, to the given fallback kind
func classifyUpstream(ctx context.Context, err error, fallback models.ErrorKind, message string) error {
	if timeoutErr := asProviderTimeout(ctx, err); timeoutErr != nil {
		return timeoutErr
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return models.WrapAppError(fallback, message, err)
}

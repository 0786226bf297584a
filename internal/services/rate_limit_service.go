package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/salonspace/booking-backend/internal/config"
)

const rateLimitKeyPrefix = "ratelimit"

// RateLimitService is a fixed-window request counter stored in Redis
type RateLimitService struct {
	client *redis.Client
	now    func() time.Time
}

// NewRateLimitService connects to Redis. Returns nil when no address is
// configured, which disables rate limiting.
func NewRateLimitService(cfg config.RedisConfig) *RateLimitService {
	if cfg.Addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})

	return &RateLimitService{
		client: client,
		now:    time.Now,
	}
}

// Allow counts one request for key in the current window and reports
// whether it is within limit. When it is not, the returned duration is the
// time left until the window resets.
func (s *RateLimitService) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	windowKey, resetIn := s.windowKey(key, window)

	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, windowKey)
		pipe.Expire(ctx, windowKey, window)
		return nil
	})
	if err != nil {
		return false, 0, fmt.Errorf("failed to count request: %w", err)
	}

	if incr.Val() > int64(limit) {
		return false, resetIn, nil
	}
	return true, 0, nil
}

// Ping checks the Redis connection
func (s *RateLimitService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the Redis connection pool
func (s *RateLimitService) Close() error {
	return s.client.Close()
}

// windowKey names the counter for the window containing now
func (s *RateLimitService) windowKey(key string, window time.Duration) (string, time.Duration) {
	now := s.now()
	windowStart := now.Truncate(window)
	resetIn := windowStart.Add(window).Sub(now)
	return fmt.Sprintf("%s:%s:%d", rateLimitKeyPrefix, key, windowStart.Unix()), resetIn
}

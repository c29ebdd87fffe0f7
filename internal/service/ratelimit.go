package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vesselapp/vessel/pkg/apperror"
)

// RateLimiter locks a per-user action for a cooldown window using redis
// SET NX. With a nil client every check passes.
type RateLimiter struct {
	rdb *redis.Client
}

func NewRateLimiter(rdb *redis.Client) *RateLimiter {
	return &RateLimiter{rdb: rdb}
}

// Allow reports whether the action is allowed and, if so, starts the cooldown.
func (l *RateLimiter) Allow(ctx context.Context, userID uuid.UUID, action string, cooldown time.Duration) (bool, error) {
	if l == nil || l.rdb == nil {
		return true, nil
	}

	key := fmt.Sprintf("rate_limit:user:%s:%s", userID.String(), action)

	wasSet, err := l.rdb.SetNX(ctx, key, "locked", cooldown).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit in redis: %w", err)
	}

	return wasSet, nil
}

// RetryAfter returns the remaining cooldown for an action.
func (l *RateLimiter) RetryAfter(ctx context.Context, userID uuid.UUID, action string) (time.Duration, error) {
	if l == nil || l.rdb == nil {
		return 0, nil
	}
	key := fmt.Sprintf("rate_limit:user:%s:%s", userID.String(), action)
	return l.rdb.TTL(ctx, key).Result()
}

// Exceeded builds the rate limit error for a rejected action, carrying the
// remaining cooldown when it can be read.
func (l *RateLimiter) Exceeded(ctx context.Context, userID uuid.UUID, action string) error {
	retryAfter, err := l.RetryAfter(ctx, userID, action)
	if err != nil || retryAfter < 0 {
		retryAfter = 0
	}
	return &apperror.RateLimitError{RetryAfter: retryAfter}
}

// Clear removes an active cooldown, e.g. when the guarded write failed.
func (l *RateLimiter) Clear(ctx context.Context, userID uuid.UUID, action string) error {
	if l == nil || l.rdb == nil {
		return nil
	}
	key := fmt.Sprintf("rate_limit:user:%s:%s", userID.String(), action)
	_, err := l.rdb.Del(ctx, key).Result()
	return err
}

package redis

import (
	"context"
	"fmt"
	"time"
)

// RequestLimiter is the fixed-window limiter guarding the HTTP surface.
// The worker's outbound throttling lives in internal/infra/ratelimit.
type RequestLimiter struct {
	client RedisClient
}

func NewRequestLimiter(client RedisClient) *RequestLimiter {
	return &RequestLimiter{client: client}
}

func (r *RequestLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 {
		if err := r.client.Expire(ctx, key, window); err != nil {
			return false, err
		}
	}

	return count <= int64(limit), nil
}

func CallerRequestKey(callerID string) string {
	return fmt.Sprintf("rate_limit:api:%s", callerID)
}

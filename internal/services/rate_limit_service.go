package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitService is a sliding-window request limiter backed by a redis
// sorted set per key.
type RateLimitService struct {
	client redis.UniversalClient
	prefix string
}

func NewRateLimitService(client redis.UniversalClient) *RateLimitService {
	return &RateLimitService{client: client, prefix: "rate_limit"}
}

func (r *RateLimitService) Key(parts ...string) string {
	key := r.prefix
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

// CheckRateLimit records one request under key and reports whether fewer
// than limit requests were seen within window before it.
func (r *RateLimitService) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	windowStart := now.Add(-window).UnixNano()

	pipe := r.client.Pipeline()

	// Remove old entries
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart))

	count := pipe.ZCard(ctx, key)

	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: now.UnixNano()})

	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return count.Val() < int64(limit), nil
}

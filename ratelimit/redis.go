package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "fishmap:login:"

// Redis counts attempts per fixed window in Redis, so several gateway
// instances share one budget. Only counters are stored: never tokens.
type Redis struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

var _ Limiter = (*Redis)(nil)

func NewRedis(redisURL string, perMinute int) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("[ratelimit Redis] parse url: %w", err)
	}
	return &Redis{
		client: redis.NewClient(opt),
		limit:  int64(perMinute),
		window: time.Minute,
	}, nil
}

// Allow fails open: when Redis cannot be reached the attempt is allowed and
// the error returned for logging.
func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	pipe := r.client.Pipeline()
	incr := pipe.Incr(ctx, redisKeyPrefix+key)
	pipe.Expire(ctx, redisKeyPrefix+key, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, err
	}
	return incr.Val() <= r.limit, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// Package redis is fixed window rate limiter over redis counters.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Decentr-net/mosaic/internal/middleware"
)

const keyPrefix = "mosaic:ratelimit:"

type limiter struct {
	c      redis.Cmdable
	limit  int64
	window time.Duration
	now    func() time.Time
}

// New creates limiter which allows limit requests per window for every key.
func New(c redis.Cmdable, limit int64, window time.Duration) middleware.Limiter {
	return limiter{
		c:      c,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (l limiter) Allow(ctx context.Context, key string) (bool, error) {
	bucket := l.now().UnixNano() / int64(l.window)
	k := keyPrefix + key + ":" + strconv.FormatInt(bucket, 10)

	var incr *redis.IntCmd
	if _, err := l.c.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		p.Expire(ctx, k, l.window)
		return nil
	}); err != nil {
		return false, fmt.Errorf("failed to increment counter: %w", err)
	}

	return incr.Val() <= l.limit, nil
}

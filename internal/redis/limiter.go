package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const rateLimitKeyPrefix = "ratelimit:"

// FixedWindowLimiter counts hits per subject in windows aligned to the clock.
type FixedWindowLimiter struct {
	client *goredis.Client
	window time.Duration
	now    func() time.Time
}

func NewFixedWindowLimiter(client *goredis.Client, window time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{client: client, window: window, now: time.Now}
}

// Allow records one hit for subject and reports whether it is within limit.
func (l *FixedWindowLimiter) Allow(ctx context.Context, subject string, limit int) (bool, error) {
	bucket := l.now().UnixNano() / int64(l.window)
	key := fmt.Sprintf("%s%s:%d", rateLimitKeyPrefix, subject, bucket)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, fmt.Errorf("rate limit expire: %w", err)
		}
	}
	return count <= int64(limit), nil
}

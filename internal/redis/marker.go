package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Markers records keys that have been handled at least once.
type Markers struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

func NewMarkers(client *goredis.Client, prefix string, ttl time.Duration) *Markers {
	return &Markers{client: client, prefix: prefix, ttl: ttl}
}

// Claim returns true the first time key is seen within the TTL.
func (m *Markers) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := m.client.SetNX(ctx, m.prefix+key, time.Now().UTC().Format(time.RFC3339), m.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim marker %s: %w", key, err)
	}
	return ok, nil
}

// Release drops a claim so the key can be handled again.
func (m *Markers) Release(ctx context.Context, key string) error {
	if err := m.client.Del(ctx, m.prefix+key).Err(); err != nil {
		return fmt.Errorf("release marker %s: %w", key, err)
	}
	return nil
}

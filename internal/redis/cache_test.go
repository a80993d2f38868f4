package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type testView struct {
	Name string `json:"name"`
}

// unreachableClient points at a port nothing listens on, so every command
// fails fast and the cache degrades to its loader.
func unreachableClient(t *testing.T) *goredis.Client {
	t.Helper()
	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestViewCacheFetchFallsBackToLoader(t *testing.T) {
	cache := NewViewCache[testView](unreachableClient(t), time.Minute)

	calls := 0
	v, err := cache.Fetch(context.Background(), "view:1", func(context.Context) (*testView, error) {
		calls++
		return &testView{Name: "alice"}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Name != "alice" || calls != 1 {
		t.Errorf("expected loader result, got %+v after %d calls", v, calls)
	}
}

func TestViewCacheFetchPropagatesLoaderError(t *testing.T) {
	cache := NewViewCache[testView](unreachableClient(t), 0)
	wantErr := errors.New("boom")

	_, err := cache.Fetch(context.Background(), "view:2", func(context.Context) (*testView, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected loader error, got %v", err)
	}
}

func TestViewCacheGetMiss(t *testing.T) {
	cache := NewViewCache[testView](unreachableClient(t), 0)
	if _, ok := cache.Get(context.Background(), "missing"); ok {
		t.Error("expected miss on unreachable server")
	}
}

func TestFixedWindowLimiterReportsRedisErrors(t *testing.T) {
	limiter := NewFixedWindowLimiter(unreachableClient(t), time.Minute)
	if _, err := limiter.Allow(context.Background(), "usr-1", 10); err == nil {
		t.Error("expected error from unreachable redis")
	}
}

func TestMarkersReportRedisErrors(t *testing.T) {
	markers := NewMarkers(unreachableClient(t), "notify:", time.Hour)
	if _, err := markers.Claim(context.Background(), "1-0"); err == nil {
		t.Error("expected error from unreachable redis")
	}
}

func TestViewCacheAlwaysExpires(t *testing.T) {
	tests := []struct {
		name string
		ttl  time.Duration
		want time.Duration
	}{
		{"explicit", 5 * time.Minute, 5 * time.Minute},
		{"zero", 0, DefaultViewTTL},
		{"negative", -time.Second, DefaultViewTTL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewViewCache[testView](unreachableClient(t), tt.ttl)
			if cache.ttl != tt.want {
				t.Errorf("ttl = %v, want %v", cache.ttl, tt.want)
			}
		})
	}
}

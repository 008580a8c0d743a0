package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestHashIP_Deterministic(t *testing.T) {
	t.Parallel()

	ip := "192.168.1.100"
	if hashIP(ip) != hashIP(ip) {
		t.Error("Same IP should produce same hash")
	}
}

func TestHashIP_Length(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ip   string
	}{
		{"IPv4", "192.168.1.1"},
		{"IPv6 localhost", "::1"},
		{"IPv6 full", "2001:0db8:85a3:0000:0000:8a2e:0370:7334"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if hash := hashIP(tt.ip); len(hash) != 16 {
				t.Errorf("hashIP(%q) length = %d, want 16", tt.ip, len(hash))
			}
		})
	}
}

func TestHashIP_Different(t *testing.T) {
	t.Parallel()

	if hashIP("10.0.0.1") == hashIP("10.0.0.2") {
		t.Error("Different IPs should produce different hashes")
	}
}

func TestRateLimit_DisabledRatesSkipRedis(t *testing.T) {
	t.Parallel()

	// A nil client would panic if touched.
	c := &Cache{}

	res, err := c.CheckUserRateLimit(context.Background(), "user", 0, 5)
	if err != nil || !res.Allowed || res.Remaining != 5 {
		t.Errorf("expected unlimited allowance, got %+v err=%v", res, err)
	}

	res, err = c.CheckIPRateLimit(context.Background(), "127.0.0.1", 0, 3)
	if err != nil || !res.Allowed {
		t.Errorf("expected unlimited allowance, got %+v err=%v", res, err)
	}
}

func TestTunePool_KeepsURLValues(t *testing.T) {
	t.Parallel()

	opt, err := redis.ParseURL("redis://localhost:6379/0?pool_size=42")
	if err != nil {
		t.Fatalf("ParseURL: %v", err)
	}
	tunePool(opt)

	if opt.PoolSize != 42 {
		t.Errorf("PoolSize = %d, want 42 from the URL", opt.PoolSize)
	}
	if opt.MinIdleConns != 2 || opt.PoolTimeout != 4*time.Second {
		t.Errorf("defaults not applied: min idle %d, pool timeout %s", opt.MinIdleConns, opt.PoolTimeout)
	}
}

func TestRateLimit_RedisErrorIsReported(t *testing.T) {
	t.Parallel()

	// Nothing listens on this port; the draw must fail instead of allowing silently.
	c := NewWithClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1}))
	t.Cleanup(func() { _ = c.Close() })

	if _, err := c.CheckIPRateLimit(context.Background(), "198.51.100.1", 5, 10); err == nil {
		t.Error("expected an error when Redis is unreachable")
	}
}

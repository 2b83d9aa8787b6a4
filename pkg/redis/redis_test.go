package redis

import (
	"context"
	"fmt"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/lens/backend/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, err := New(cfg)
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	assert.Nil(t, client.Redis())
	assert.NoError(t, client.Close())
}

func TestRateLimiter_Disabled(t *testing.T) {
	client, _ := New(&config.Config{})
	limiter := NewRateLimiter(client, "test")
	limit := EvaluationRateLimit("127.0.0.1", 5)

	// When Redis is disabled, all requests should be allowed
	for i := 0; i < 10; i++ {
		allowed, remaining, err := limiter.Allow(context.Background(), limit)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, limit.Limit, remaining)
	}
}

func TestEvaluationRateLimit(t *testing.T) {
	limit := EvaluationRateLimit("10.0.0.1", 30)
	assert.Equal(t, "eval:10.0.0.1", limit.Key)
	assert.Equal(t, 30, limit.Limit)
	assert.Equal(t, time.Minute, limit.Window)
}

func TestRateLimiter_SlidingWindow(t *testing.T) {
	if os.Getenv("REDIS_ADDR") == "" {
		t.Skip("REDIS_ADDR not set, skipping integration test")
	}

	host, port, err := net.SplitHostPort(os.Getenv("REDIS_ADDR"))
	require.NoError(t, err)

	client, err := New(&config.Config{Redis: config.RedisConfig{Host: host, Port: port, Enabled: true}})
	require.NoError(t, err)
	defer client.Close()

	limiter := NewRateLimiter(client, "lens:test")
	limit := RateLimitConfig{Key: fmt.Sprintf("sliding-%d", time.Now().UnixNano()), Limit: 3, Window: time.Minute}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		allowed, remaining, err := limiter.Allow(ctx, limit)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, 2-i, remaining)
	}

	allowed, _, err := limiter.Allow(ctx, limit)
	require.NoError(t, err)
	assert.False(t, allowed)
}

package resultcache

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/wonny/lens/backend/pkg/config"
)

func testLogConfig() *config.Config {
	return &config.Config{Env: "development", LogLevel: "debug", LogFormat: "json"}
}

func openTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	pool, err := pgxpool.New(context.Background(), os.Getenv("DATABASE_URL"))
	require.NoError(t, err, "database connection failed")
	t.Cleanup(pool.Close)
	return pool
}

func openTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: os.Getenv("REDIS_ADDR")})
	require.NoError(t, rdb.Ping(context.Background()).Err(), "redis connection failed")
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

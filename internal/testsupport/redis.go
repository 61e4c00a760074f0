package testsupport

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"

	"diabetes-risk/internal/adapters/config"
	redisclient "diabetes-risk/internal/adapters/redis"
)

// NewRedisClient connects to cfg and empties the selected database before and
// after the test. Point REDIS_DB at a database reserved for tests.
func NewRedisClient(t *testing.T, cfg config.RedisConfig) *redis.Client {
	t.Helper()

	client, err := redisclient.NewClient(cfg)
	if err != nil {
		t.Fatalf("redis unavailable at %s: %v", cfg.Addr(), err)
	}
	rdb := client.Client()

	flush := func() error { return rdb.FlushDB(context.Background()).Err() }
	if err := flush(); err != nil {
		t.Fatalf("failed to flush redis db %d: %v", cfg.DB, err)
	}
	t.Cleanup(func() {
		_ = flush()
		_ = client.Close()
	})

	return rdb
}

// NewTestRedis reads the connection from the environment, skipping the test
// when Redis is not configured
func NewTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	return NewRedisClient(t, RedisConfigFromEnv(t))
}

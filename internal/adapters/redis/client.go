package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"diabetes-risk/internal/adapters/config"
	"diabetes-risk/internal/metrics"
	"diabetes-risk/pkg/errors"
)

const connectTimeout = 5 * time.Second

// Client holds the connection backing the model-metrics cache
type Client struct {
	rdb *redis.Client
}

// NewClient connects and verifies the server. Cache reads sit on the request
// path, so timeouts are kept short.
func NewClient(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  connectTimeout,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	start := time.Now()
	err := rdb.Ping(ctx).Err()
	metrics.RecordDBQuery("redis", "connect", time.Since(start), err)
	if err != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(err, "failed to reach redis at %s", cfg.Addr())
	}

	return &Client{rdb: rdb}, nil
}

// Client returns the underlying go-redis client
func (c *Client) Client() *redis.Client {
	return c.rdb
}

// Close closes the connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

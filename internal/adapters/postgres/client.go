package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"diabetes-risk/internal/adapters/config"
	"diabetes-risk/internal/metrics"
	"diabetes-risk/pkg/errors"
)

const connectTimeout = 10 * time.Second

// Client owns the pool behind the evaluation table. The service only reads
// from it at metrics time, so the pool stays small.
type Client struct {
	db *sqlx.DB
}

// NewClient opens the pool and verifies it within connectTimeout
func NewClient(cfg config.PostgresConfig) (*Client, error) {
	db, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, errors.Wrap(err, "failed to open postgres")
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 10
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(max(1, maxConns/2))
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	start := time.Now()
	err = db.PingContext(ctx)
	metrics.RecordDBQuery("postgres", "connect", time.Since(start), err)
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "failed to reach postgres at %s:%d/%s", cfg.Host, cfg.Port, cfg.Database)
	}

	return &Client{db: db}, nil
}

// DB returns the pool
func (c *Client) DB() *sqlx.DB {
	return c.db
}

// Close closes the pool
func (c *Client) Close() error {
	return c.db.Close()
}

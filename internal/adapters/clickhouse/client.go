package clickhouse

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"diabetes-risk/internal/adapters/config"
	"diabetes-risk/internal/metrics"
	"diabetes-risk/pkg/errors"
)

const connectTimeout = 10 * time.Second

// Client holds the connection the prediction journal writes through
type Client struct {
	conn driver.Conn
}

// NewClient opens a compressed native connection and verifies it
func NewClient(cfg config.ClickHouseConfig) (*Client, error) {
	addr := cfg.Addr()
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout: 5 * time.Second,
		// Journal batches are small and infrequent
		MaxOpenConns: 4,
		MaxIdleConns: 2,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open clickhouse")
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	start := time.Now()
	err = conn.Ping(ctx)
	metrics.RecordDBQuery("clickhouse", "connect", time.Since(start), err)
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrapf(err, "failed to reach clickhouse at %s/%s", addr, cfg.Database)
	}

	return &Client{conn: conn}, nil
}

// Conn returns the underlying connection
func (c *Client) Conn() driver.Conn {
	return c.conn
}

// Close closes the connection
func (c *Client) Close() error {
	return c.conn.Close()
}

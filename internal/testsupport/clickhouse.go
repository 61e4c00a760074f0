package testsupport

import (
	"context"
	"fmt"
	"testing"
	"time"

	"diabetes-risk/internal/adapters/clickhouse"
	"diabetes-risk/internal/adapters/config"
)

// ClickHouseTestHelper hands out throwaway journal tables
type ClickHouseTestHelper struct {
	client *clickhouse.Client
}

// NewClickHouseTestHelper connects to cfg and closes the client after the test
func NewClickHouseTestHelper(t *testing.T, cfg config.ClickHouseConfig) *ClickHouseTestHelper {
	t.Helper()

	client, err := clickhouse.NewClient(cfg)
	if err != nil {
		t.Fatalf("clickhouse unavailable at %s: %v", cfg.Addr(), err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return &ClickHouseTestHelper{client: client}
}

// NewTestClickHouse reads the connection from the environment, skipping the
// test when ClickHouse is not configured
func NewTestClickHouse(t *testing.T) *ClickHouseTestHelper {
	t.Helper()
	return NewClickHouseTestHelper(t, ClickHouseConfigFromEnv(t))
}

// Client exposes the connection for repositories under test
func (h *ClickHouseTestHelper) Client() *clickhouse.Client {
	return h.client
}

// UniqueTableName returns a table name no other run uses. The table is
// dropped when the test ends, whether or not it was created.
func (h *ClickHouseTestHelper) UniqueTableName(t *testing.T, prefix string) string {
	t.Helper()

	table := fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := h.client.Conn().Exec(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			t.Logf("failed to drop %s: %v", table, err)
		}
	})
	return table
}

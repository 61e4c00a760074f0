package testsupport

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"

	"diabetes-risk/internal/adapters/config"
	"diabetes-risk/internal/adapters/postgres"
)

// PostgresTestHelper runs a test inside one transaction that never commits,
// so evaluation tables created by the test vanish with it.
type PostgresTestHelper struct {
	db   *sqlx.DB
	tx   *sqlx.Tx
	done bool
}

// NewPostgresTestHelper connects to cfg and opens the transaction
func NewPostgresTestHelper(t *testing.T, cfg config.PostgresConfig) *PostgresTestHelper {
	t.Helper()

	client, err := postgres.NewClient(cfg)
	if err != nil {
		t.Fatalf("postgres unavailable at %s:%d: %v", cfg.Host, cfg.Port, err)
	}
	t.Cleanup(func() { _ = client.Close() })

	tx, err := client.DB().BeginTxx(context.Background(), nil)
	if err != nil {
		t.Fatalf("failed to begin test transaction: %v", err)
	}

	h := &PostgresTestHelper{db: client.DB(), tx: tx}
	// Registered last so it runs before the client closes
	t.Cleanup(h.Rollback)
	return h
}

// NewTestPostgres reads the connection from the environment, skipping the
// test when Postgres is not configured
func NewTestPostgres(t *testing.T) *PostgresTestHelper {
	t.Helper()
	return NewPostgresTestHelper(t, PostgresConfigFromEnv(t))
}

// Tx is the test's transaction
func (h *PostgresTestHelper) Tx() *sqlx.Tx {
	return h.tx
}

// DB is the pool outside the transaction, for checking what leaked
func (h *PostgresTestHelper) DB() *sqlx.DB {
	return h.db
}

// Rollback discards everything the test wrote. Calling it twice is harmless.
func (h *PostgresTestHelper) Rollback() {
	if h.done {
		return
	}
	h.done = true
	_ = h.tx.Rollback()
}

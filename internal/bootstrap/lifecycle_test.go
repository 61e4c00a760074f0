package bootstrap

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diabetes-risk/internal/domain/prediction"
	chrepo "diabetes-risk/internal/repository/clickhouse"
	"diabetes-risk/pkg/errors"
	"diabetes-risk/pkg/logger"
)

type flushCounter struct {
	flushes int
}

func (f *flushCounter) CaptureError(context.Context, error, map[string]string) error { return nil }
func (f *flushCounter) CaptureMessage(context.Context, string, errors.Level, map[string]string) error {
	return nil
}
func (f *flushCounter) AddBreadcrumb(context.Context, string, string, errors.Level, map[string]interface{}) {
}
func (f *flushCounter) Flush(context.Context) error {
	f.flushes++
	return nil
}

// journalConn records journal inserts; unused driver methods stay nil.
type journalConn struct {
	driver.Conn
	mu   sync.Mutex
	rows int
}

func (c *journalConn) PrepareBatch(context.Context, string, ...driver.PrepareBatchOption) (driver.Batch, error) {
	return &journalBatch{conn: c}, nil
}

func (c *journalConn) inserted() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rows
}

type journalBatch struct {
	driver.Batch
	conn *journalConn
	rows int
}

func (b *journalBatch) AppendStruct(any) error { b.rows++; return nil }
func (b *journalBatch) Abort() error           { return nil }
func (b *journalBatch) Send() error {
	b.conn.mu.Lock()
	defer b.conn.mu.Unlock()
	b.conn.rows += b.rows
	return nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestLifecycle_ShutdownWithOptionalComponentsMissing(t *testing.T) {
	tracker := &flushCounter{}

	assert.NotPanics(t, func() {
		NewLifecycle().Shutdown(Components{ErrorTracker: tracker}, logger.NewNop())
	})
	assert.Equal(t, 1, tracker.flushes)
}

func TestLifecycle_ClosesEveryStoreEvenWhenOneFails(t *testing.T) {
	var closed []string
	store := func(name string, err error) io.Closer {
		return closerFunc(func() error {
			closed = append(closed, name)
			return err
		})
	}

	NewLifecycle().Shutdown(Components{
		WG: &sync.WaitGroup{},
		Stores: map[string]io.Closer{
			"postgres": store("postgres", errors.New("connection reset")),
			"redis":    store("redis", nil),
		},
	}, logger.NewNop())

	assert.ElementsMatch(t, []string{"postgres", "redis"}, closed)
}

func TestCloseAll_NamesFailures(t *testing.T) {
	err := closeAll(map[string]io.Closer{
		"clickhouse": closerFunc(func() error { return errors.New("broken pipe") }),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clickhouse: broken pipe")
}

func TestWaitGroup_GivesUpAtDeadline(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)
	defer wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := waitGroup(ctx, &wg)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestLifecycle_JournalKeepsRowsAppendedAfterCancel(t *testing.T) {
	conn := &journalConn{}
	journal := chrepo.NewPredictionJournal(conn, chrepo.JournalConfig{
		BatchSize:     100,
		FlushInterval: time.Hour,
	}, logger.NewNop())

	appCtx, cancel := context.WithCancel(context.Background())
	journal.Start(appCtx)
	cancel()

	// A request still draining during HTTP shutdown
	require.NoError(t, journal.Append(context.Background(), &prediction.Record{Label: "High Risk"}))

	NewLifecycle().Shutdown(Components{Journal: journal}, logger.NewNop())

	assert.Equal(t, 1, conn.inserted())
	assert.Equal(t, uint64(1), journal.Stats().Flushed)
}

package clickhouse

import (
	"context"
	"sync"
	"time"

	"diabetes-risk/pkg/errors"
	"diabetes-risk/pkg/logger"
)

const (
	defaultBatchSize    = 500
	defaultMaxAge       = 5 * time.Second
	finalFlushTimeout   = 10 * time.Second
	bufferedBatchFactor = 10
)

// FlushFunc performs the INSERT for one batch
type FlushFunc[T any] func(ctx context.Context, batch []T) error

// BatchWriterConfig contains configuration for BatchWriter
type BatchWriterConfig[T any] struct {
	FlushFunc FlushFunc[T]
	TableName string
	// MaxBatchSize wakes the flush loop. Default 500.
	MaxBatchSize int
	// MaxBuffered caps memory; rows beyond it are dropped. Default 10 batches.
	MaxBuffered int
	// MaxAge is the periodic flush interval. Default 5s.
	MaxAge time.Duration
	Logger *logger.Logger
}

// BatchWriterStats describes the writer's state
type BatchWriterStats struct {
	BufferSize   int
	LastFlushAge time.Duration
	MaxBatchSize int
	MaxAge       time.Duration
	Running      bool
	Flushed      uint64
	Failed       uint64
	Dropped      uint64
}

// BatchWriter buffers rows in memory and hands them to FlushFunc when the
// buffer reaches MaxBatchSize or MaxAge elapses. Add never performs I/O, so
// a slow or absent ClickHouse costs dropped rows, not latency.
type BatchWriter[T any] struct {
	cfg BatchWriterConfig[T]
	log *logger.Logger

	mu        sync.Mutex
	buffer    []T
	lastFlush time.Time
	running   bool
	started   bool
	flushed   uint64
	failed    uint64
	dropped   uint64

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func NewBatchWriter[T any](cfg BatchWriterConfig[T]) *BatchWriter[T] {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = defaultBatchSize
	}
	if cfg.MaxBuffered < cfg.MaxBatchSize {
		cfg.MaxBuffered = bufferedBatchFactor * cfg.MaxBatchSize
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = defaultMaxAge
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Get()
	}

	return &BatchWriter[T]{
		cfg:       cfg,
		log:       cfg.Logger.With("component", "batch_writer", "table", cfg.TableName),
		buffer:    make([]T, 0, cfg.MaxBatchSize),
		lastFlush: time.Now(),
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the flush loop. A writer starts at most once.
func (bw *BatchWriter[T]) Start(ctx context.Context) {
	bw.mu.Lock()
	if bw.started {
		bw.mu.Unlock()
		return
	}
	bw.started = true
	bw.running = true
	bw.mu.Unlock()

	go bw.loop(ctx)
	bw.log.Infow("Batch writer started", "batch_size", bw.cfg.MaxBatchSize, "max_age", bw.cfg.MaxAge)
}

// Add buffers a row. It reports false when the row was dropped.
func (bw *BatchWriter[T]) Add(item T) bool {
	bw.mu.Lock()
	if len(bw.buffer) >= bw.cfg.MaxBuffered {
		bw.dropped++
		bw.mu.Unlock()
		return false
	}
	bw.buffer = append(bw.buffer, item)
	full := len(bw.buffer) >= bw.cfg.MaxBatchSize
	bw.mu.Unlock()

	if full {
		select {
		case bw.wake <- struct{}{}:
		default:
		}
	}
	return true
}

// Flush writes everything buffered. A failed batch is counted and discarded.
func (bw *BatchWriter[T]) Flush(ctx context.Context) error {
	batch := bw.take()
	if len(batch) == 0 {
		return nil
	}

	start := time.Now()
	err := bw.cfg.FlushFunc(ctx, batch)
	took := time.Since(start)

	bw.mu.Lock()
	if err != nil {
		bw.failed += uint64(len(batch))
	} else {
		bw.flushed += uint64(len(batch))
	}
	bw.mu.Unlock()

	if err != nil {
		bw.log.Errorw("Batch flush failed", "rows", len(batch), "took", took, "error", err)
		return errors.Wrapf(err, "flush %d rows to %s", len(batch), bw.cfg.TableName)
	}
	bw.log.Debugw("Batch flushed", "rows", len(batch), "took", took)
	return nil
}

// take swaps the buffer out so FlushFunc runs without holding the lock
func (bw *BatchWriter[T]) take() []T {
	bw.mu.Lock()
	defer bw.mu.Unlock()

	if len(bw.buffer) == 0 {
		return nil
	}
	batch := bw.buffer
	bw.buffer = make([]T, 0, bw.cfg.MaxBatchSize)
	bw.lastFlush = time.Now()
	return batch
}

func (bw *BatchWriter[T]) loop(ctx context.Context) {
	defer close(bw.done)

	ticker := time.NewTicker(bw.cfg.MaxAge)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			bw.drain("context cancelled")
			return
		case <-bw.stop:
			bw.drain("stop requested")
			return
		case <-bw.wake:
			_ = bw.Flush(ctx)
		case <-ticker.C:
			_ = bw.Flush(ctx)
		}
	}
}

// drain flushes on a fresh context since the loop's may already be done
func (bw *BatchWriter[T]) drain(reason string) {
	bw.log.Infow("Batch writer draining", "reason", reason, "rows", bw.BufferSize())

	ctx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
	defer cancel()
	_ = bw.Flush(ctx)
}

// Stop waits for the loop to exit, then flushes rows added after its final
// drain, e.g. when the loop's context was cancelled before Stop.
func (bw *BatchWriter[T]) Stop(ctx context.Context) error {
	bw.mu.Lock()
	wasRunning := bw.running
	bw.running = false
	bw.mu.Unlock()

	if wasRunning {
		close(bw.stop)

		select {
		case <-bw.done:
		case <-ctx.Done():
			bw.log.Warn("Batch writer stop timed out")
			return errors.Wrap(ctx.Err(), "batch writer stop")
		}
	}
	return bw.Flush(ctx)
}

// BufferSize returns the number of rows waiting to be flushed
func (bw *BatchWriter[T]) BufferSize() int {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return len(bw.buffer)
}

func (bw *BatchWriter[T]) GetStats() BatchWriterStats {
	bw.mu.Lock()
	defer bw.mu.Unlock()

	return BatchWriterStats{
		BufferSize:   len(bw.buffer),
		LastFlushAge: time.Since(bw.lastFlush),
		MaxBatchSize: bw.cfg.MaxBatchSize,
		MaxAge:       bw.cfg.MaxAge,
		Running:      bw.running,
		Flushed:      bw.flushed,
		Failed:       bw.failed,
		Dropped:      bw.dropped,
	}
}

package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"diabetes-risk/internal/domain/prediction"
	"diabetes-risk/internal/metrics"
	chbatch "diabetes-risk/pkg/clickhouse"
	"diabetes-risk/pkg/errors"
	"diabetes-risk/pkg/logger"
)

// Compile-time checks
var (
	_ prediction.Journal       = (*PredictionJournal)(nil)
	_ prediction.JournalReader = (*PredictionJournal)(nil)
)

// DefaultJournalTable is the table served predictions are written to
const DefaultJournalTable = "prediction_journal"

// PredictionJournal buffers served predictions and writes them to ClickHouse
// in batches. Append never blocks the request path.
type PredictionJournal struct {
	conn   driver.Conn
	table  string
	writer *chbatch.BatchWriter[prediction.Record]
}

// JournalConfig tunes batching
type JournalConfig struct {
	Table         string
	BatchSize     int
	FlushInterval time.Duration
}

// NewPredictionJournal creates a new prediction journal
func NewPredictionJournal(conn driver.Conn, cfg JournalConfig, log *logger.Logger) *PredictionJournal {
	if cfg.Table == "" {
		cfg.Table = DefaultJournalTable
	}

	j := &PredictionJournal{conn: conn, table: cfg.Table}
	j.writer = chbatch.NewBatchWriter(chbatch.BatchWriterConfig[prediction.Record]{
		FlushFunc:    j.insert,
		TableName:    cfg.Table,
		MaxBatchSize: cfg.BatchSize,
		MaxAge:       cfg.FlushInterval,
		Logger:       log,
	})
	return j
}

// EnsureSchema creates the journal table when missing
func (j *PredictionJournal) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id          UUID,
			request_id  String,
			scored_at   DateTime64(3, 'UTC'),
			features    Array(Float64),
			label       LowCardinality(String),
			risk_score  Float64,
			probability Float64,
			scorer      LowCardinality(String),
			calibrated  Bool
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(scored_at)
		ORDER BY (scored_at, id)
	`, j.table)

	if err := j.conn.Exec(ctx, query); err != nil {
		return errors.Wrap(err, "failed to create prediction journal table")
	}
	return nil
}

// Start begins background flushing
func (j *PredictionJournal) Start(ctx context.Context) {
	j.writer.Start(ctx)
}

// Stop flushes buffered rows and stops the writer
func (j *PredictionJournal) Stop(ctx context.Context) error {
	return j.writer.Stop(ctx)
}

// Stats exposes the batch writer state
func (j *PredictionJournal) Stats() chbatch.BatchWriterStats {
	return j.writer.GetStats()
}

// Append implements prediction.Journal
func (j *PredictionJournal) Append(ctx context.Context, r *prediction.Record) error {
	if !j.writer.Add(*r) {
		metrics.JournalWrites.WithLabelValues("dropped").Inc()
		return errors.Wrap(errors.ErrUnavailable, "prediction journal buffer full")
	}
	metrics.JournalWrites.WithLabelValues("queued").Inc()
	return nil
}

func (j *PredictionJournal) insert(ctx context.Context, rows []prediction.Record) error {
	start := time.Now()
	err := j.send(ctx, rows)
	metrics.RecordDBQuery("clickhouse", "journal_insert", time.Since(start), err)

	status := "flushed"
	if err != nil {
		status = "error"
	}
	metrics.JournalWrites.WithLabelValues(status).Add(float64(len(rows)))
	return err
}

func (j *PredictionJournal) send(ctx context.Context, rows []prediction.Record) error {
	batch, err := j.conn.PrepareBatch(ctx, fmt.Sprintf(`
		INSERT INTO %s (
			id, request_id, scored_at, features, label,
			risk_score, probability, scorer, calibrated
		)`, j.table))
	if err != nil {
		return errors.Wrap(err, "failed to prepare journal batch")
	}

	for i := range rows {
		if err := batch.AppendStruct(&rows[i]); err != nil {
			_ = batch.Abort()
			return errors.Wrap(err, "failed to append journal row")
		}
	}

	if err := batch.Send(); err != nil {
		return errors.Wrap(err, "failed to send journal batch")
	}
	return nil
}

// CountByLabel implements prediction.JournalReader
func (j *PredictionJournal) CountByLabel(ctx context.Context, since time.Time) ([]prediction.LabelCount, error) {
	query := fmt.Sprintf(`
		SELECT
			label,
			count() AS count,
			avg(risk_score) AS avg_risk_score
		FROM %s
		WHERE scored_at >= ?
		GROUP BY label
		ORDER BY label
	`, j.table)

	var counts []prediction.LabelCount
	start := time.Now()
	err := j.conn.Select(ctx, &counts, query, since)
	metrics.RecordDBQuery("clickhouse", "journal_count", time.Since(start), err)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count journal rows")
	}
	return counts, nil
}

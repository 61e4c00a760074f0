package metrics

import (
	"context"
	"fmt"
	"time"

	"diabetes-risk/pkg/logger"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// StoreCollector collects gauges from the optional stores at scrape time.
// Any nil store is skipped.
type StoreCollector struct {
	log             *logger.Logger
	postgres        *sqlx.DB
	clickhouse      driver.Conn
	redis           *redis.Client
	evaluationTable string
	journalTable    string
	cachePattern    string

	// Descriptors
	evaluationSamples *prometheus.Desc
	journalRows       *prometheus.Desc
	cachedMetrics     *prometheus.Desc
}

// StoreCollectorConfig names the tables and key pattern to inspect
type StoreCollectorConfig struct {
	EvaluationTable string
	JournalTable    string
	CachePattern    string
}

// NewStoreCollector creates a new store metrics collector
func NewStoreCollector(log *logger.Logger, postgres *sqlx.DB, clickhouse driver.Conn, redis *redis.Client, cfg StoreCollectorConfig) *StoreCollector {
	return &StoreCollector{
		log:             log,
		postgres:        postgres,
		clickhouse:      clickhouse,
		redis:           redis,
		evaluationTable: cfg.EvaluationTable,
		journalTable:    cfg.JournalTable,
		cachePattern:    cfg.CachePattern,

		evaluationSamples: prometheus.NewDesc(
			"diabetes_evaluation_samples",
			"Number of held-out evaluation samples by outcome",
			[]string{"outcome"}, nil,
		),
		journalRows: prometheus.NewDesc(
			"diabetes_journal_predictions_24h",
			"Journaled predictions in the last 24h by label",
			[]string{"label"}, nil,
		),
		cachedMetrics: prometheus.NewDesc(
			"diabetes_cached_model_metrics",
			"Number of cached model-metrics entries",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *StoreCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.evaluationSamples
	ch <- c.journalRows
	ch <- c.cachedMetrics
}

// Collect implements prometheus.Collector
func (c *StoreCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if c.postgres != nil {
		c.collectEvaluationSamples(ctx, ch)
	}
	if c.clickhouse != nil {
		c.collectJournalRows(ctx, ch)
	}
	if c.redis != nil {
		c.collectCachedMetrics(ctx, ch)
	}
}

func (c *StoreCollector) collectEvaluationSamples(ctx context.Context, ch chan<- prometheus.Metric) {
	type outcomeCount struct {
		Outcome int `db:"outcome"`
		Count   int `db:"count"`
	}

	var stats []outcomeCount
	err := c.postgres.SelectContext(ctx, &stats, fmt.Sprintf(`
		SELECT outcome, COUNT(*) AS count
		FROM %s
		GROUP BY outcome
	`, c.evaluationTable))
	if err != nil {
		c.log.Error("Failed to collect evaluation sample counts", "error", err)
		return
	}

	for _, stat := range stats {
		ch <- prometheus.MustNewConstMetric(
			c.evaluationSamples,
			prometheus.GaugeValue,
			float64(stat.Count),
			fmt.Sprint(stat.Outcome),
		)
	}
}

func (c *StoreCollector) collectJournalRows(ctx context.Context, ch chan<- prometheus.Metric) {
	rows, err := c.clickhouse.Query(ctx, fmt.Sprintf(`
		SELECT label, count() AS count
		FROM %s
		WHERE scored_at > now() - INTERVAL 1 DAY
		GROUP BY label
	`, c.journalTable))
	if err != nil {
		c.log.Error("Failed to collect journal stats", "error", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var (
			label string
			count uint64
		)
		if err := rows.Scan(&label, &count); err != nil {
			c.log.Error("Failed to scan journal stats", "error", err)
			return
		}
		ch <- prometheus.MustNewConstMetric(
			c.journalRows,
			prometheus.GaugeValue,
			float64(count),
			label,
		)
	}
}

func (c *StoreCollector) collectCachedMetrics(ctx context.Context, ch chan<- prometheus.Metric) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := c.redis.Scan(ctx, cursor, c.cachePattern, 100).Result()
		if err != nil {
			c.log.Error("Failed to scan metrics cache keys", "error", err)
			return
		}
		total += len(keys)
		if next == 0 {
			break
		}
		cursor = next
	}

	ch <- prometheus.MustNewConstMetric(
		c.cachedMetrics,
		prometheus.GaugeValue,
		float64(total),
	)
}

// RegisterStoreCollector registers the store collector
func RegisterStoreCollector(collector *StoreCollector) {
	prometheus.MustRegister(collector)
}

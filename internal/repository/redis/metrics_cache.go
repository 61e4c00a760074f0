package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"diabetes-risk/internal/domain/insights"
	"diabetes-risk/internal/metrics"
	"diabetes-risk/pkg/errors"
)

// Compile-time check
var _ insights.MetricsCache = (*MetricsCacheRepository)(nil)

// KeyPrefix namespaces cached model metrics
const KeyPrefix = "model_metrics:"

// MetricsCacheRepository implements insights.MetricsCache using Redis.
// Entries are keyed by model version so a redeploy never serves stale curves.
type MetricsCacheRepository struct {
	client  *redis.Client
	version string
}

// NewMetricsCacheRepository creates a new metrics cache repository
func NewMetricsCacheRepository(client *redis.Client, modelVersion string) *MetricsCacheRepository {
	return &MetricsCacheRepository{
		client:  client,
		version: modelVersion,
	}
}

// Get retrieves cached metrics for a threshold
func (r *MetricsCacheRepository) Get(ctx context.Context, threshold float64) (*insights.Performance, error) {
	key := r.getKey(threshold)
	start := time.Now()

	data, err := r.client.Get(ctx, key).Result()
	metrics.RecordDBQuery("redis", "metrics_cache_get", time.Since(start), ignoreNil(err))
	if err == redis.Nil {
		metrics.MetricsCache.WithLabelValues("miss").Inc()
		return nil, errors.Wrapf(errors.ErrNotFound, "metrics not cached for threshold=%v", threshold)
	}
	if err != nil {
		metrics.MetricsCache.WithLabelValues("error").Inc()
		return nil, errors.Wrapf(err, "failed to get cached metrics: threshold=%v", threshold)
	}

	var p insights.Performance
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		metrics.MetricsCache.WithLabelValues("error").Inc()
		return nil, errors.Wrapf(err, "failed to unmarshal cached metrics: threshold=%v", threshold)
	}

	metrics.MetricsCache.WithLabelValues("hit").Inc()
	return &p, nil
}

// Set stores metrics for a threshold with TTL
func (r *MetricsCacheRepository) Set(ctx context.Context, threshold float64, p *insights.Performance, ttl time.Duration) error {
	data, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "failed to marshal metrics")
	}

	start := time.Now()
	err = r.client.Set(ctx, r.getKey(threshold), data, ttl).Err()
	metrics.RecordDBQuery("redis", "metrics_cache_set", time.Since(start), err)
	if err != nil {
		return errors.Wrapf(err, "failed to cache metrics: threshold=%v", threshold)
	}
	return nil
}

// Pattern matches every key this repository writes
func (r *MetricsCacheRepository) Pattern() string {
	return KeyPrefix + r.version + ":*"
}

func (r *MetricsCacheRepository) getKey(threshold float64) string {
	return KeyPrefix + r.version + ":" + strconv.FormatFloat(threshold, 'f', -1, 64)
}

func ignoreNil(err error) error {
	if err == redis.Nil {
		return nil
	}
	return err
}

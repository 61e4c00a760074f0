package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Prediction metrics
	Predictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diabetes_predictions_total",
			Help: "Total number of predictions served",
		},
		[]string{"label", "scorer"}, // scorer: probabilistic|decision
	)

	PredictionFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diabetes_prediction_failures_total",
			Help: "Total number of failed predictions by pipeline stage",
		},
		[]string{"stage"}, // stage: decode|normalize|score
	)

	ScoringLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "diabetes_scoring_latency_seconds",
			Help:    "Scorer latency in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"scorer"},
	)

	RiskScores = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "diabetes_risk_score",
			Help:    "Distribution of served risk scores (0-100)",
			Buckets: prometheus.LinearBuckets(10, 10, 9),
		},
	)

	// HTTP metrics
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diabetes_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "diabetes_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"route"},
	)

	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diabetes_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"route"},
	)

	// Database metrics
	DBQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diabetes_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"database", "operation", "status"}, // database: postgres|clickhouse|redis
	)

	DBQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "diabetes_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"database", "operation"},
	)

	MetricsCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diabetes_metrics_cache_total",
			Help: "Model metrics cache lookups",
		},
		[]string{"result"}, // result: hit|miss|error
	)

	// Journal / event metrics
	JournalWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diabetes_journal_writes_total",
			Help: "Prediction journal rows written",
		},
		[]string{"status"}, // status: queued|dropped|flushed|error
	)

	KafkaMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "diabetes_kafka_messages_total",
			Help: "Total Kafka messages produced",
		},
		[]string{"topic", "status"},
	)

	registerOnce sync.Once
)

// Init registers all metrics with Prometheus. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		// Prediction metrics
		prometheus.MustRegister(Predictions)
		prometheus.MustRegister(PredictionFailures)
		prometheus.MustRegister(ScoringLatency)
		prometheus.MustRegister(RiskScores)

		// HTTP metrics
		prometheus.MustRegister(HTTPRequests)
		prometheus.MustRegister(HTTPDuration)
		prometheus.MustRegister(RateLimited)

		// Database metrics
		prometheus.MustRegister(DBQueries)
		prometheus.MustRegister(DBQueryDuration)
		prometheus.MustRegister(MetricsCache)

		// Journal / event metrics
		prometheus.MustRegister(JournalWrites)
		prometheus.MustRegister(KafkaMessages)
	})
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordPrediction records a served prediction
func RecordPrediction(label, scorer string, riskScore float64, latency time.Duration) {
	Predictions.WithLabelValues(label, scorer).Inc()
	ScoringLatency.WithLabelValues(scorer).Observe(latency.Seconds())
	RiskScores.Observe(riskScore)
}

// RecordPredictionFailure records a failed prediction at the given stage
func RecordPredictionFailure(stage string) {
	PredictionFailures.WithLabelValues(stage).Inc()
}

// RecordHTTPRequest records a handled HTTP request
func RecordHTTPRequest(route, method string, status int, duration time.Duration) {
	HTTPRequests.WithLabelValues(route, method, statusClass(status)).Inc()
	HTTPDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordDBQuery records a database query
func RecordDBQuery(database, operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	DBQueries.WithLabelValues(database, operation, status).Inc()
	DBQueryDuration.WithLabelValues(database, operation).Observe(duration.Seconds())
}

// RecordKafkaMessage records a produced message
func RecordKafkaMessage(topic string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	KafkaMessages.WithLabelValues(topic, status).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

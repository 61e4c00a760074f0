package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"diabetes-risk/pkg/errors"
)

type Config struct {
	App           AppConfig
	HTTP          HTTPConfig
	Model         ModelConfig
	Insights      InsightsConfig
	Postgres      PostgresConfig
	ClickHouse    ClickHouseConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"diabetes-risk"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type HTTPConfig struct {
	Port         int           `envconfig:"HTTP_PORT" default:"5000"`
	ReadTimeout  time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"15s"`
	IdleTimeout  time.Duration `envconfig:"HTTP_IDLE_TIMEOUT" default:"60s"`
	MaxBodyBytes int64         `envconfig:"HTTP_MAX_BODY_BYTES" default:"65536"`

	// Empty means every origin is allowed
	CORSOrigins []string `envconfig:"HTTP_CORS_ORIGINS"`

	// Per-client budget on /predict. Zero, the default, disables limiting;
	// enabling it adds 429 to the /predict contract.
	RateLimitRPS   float64 `envconfig:"HTTP_RATE_LIMIT_RPS" default:"0"`
	RateLimitBurst int     `envconfig:"HTTP_RATE_LIMIT_BURST" default:"40"`
}

type ModelConfig struct {
	ScalerPath        string `envconfig:"MODEL_SCALER_PATH" default:"models/scaler.json"`
	ClassifierPath    string `envconfig:"MODEL_CLASSIFIER_PATH" default:"models/diabetes_model.onnx"`
	SharedLibraryPath string `envconfig:"ONNXRUNTIME_LIB_PATH"`
	LabelOutput       string `envconfig:"MODEL_LABEL_OUTPUT"`
	ScoreOutput       string `envconfig:"MODEL_SCORE_OUTPUT"`
	ScoreKind         string `envconfig:"MODEL_SCORE_KIND" default:"auto"` // auto, probability, decision
}

type InsightsConfig struct {
	PopulationSize int   `envconfig:"INSIGHTS_POPULATION_SIZE" default:"500"`
	Seed           int64 `envconfig:"INSIGHTS_SEED" default:"0"` // 0 means time-seeded

	// Held-out evaluation set. CSV wins over Postgres when both are set.
	EvaluationCSV   string        `envconfig:"INSIGHTS_EVALUATION_CSV"`
	EvaluationTable string        `envconfig:"INSIGHTS_EVALUATION_TABLE" default:"evaluation_samples"`
	MetricsCacheTTL time.Duration `envconfig:"INSIGHTS_METRICS_CACHE_TTL" default:"10m"`
}

type PostgresConfig struct {
	Enabled  bool   `envconfig:"POSTGRES_ENABLED" default:"false"`
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"postgres"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	Database string `envconfig:"POSTGRES_DB" default:"diabetes"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"10"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type ClickHouseConfig struct {
	Enabled       bool          `envconfig:"CLICKHOUSE_ENABLED" default:"false"`
	Host          string        `envconfig:"CLICKHOUSE_HOST" default:"localhost"`
	Port          int           `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	User          string        `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password      string        `envconfig:"CLICKHOUSE_PASSWORD"`
	Database      string        `envconfig:"CLICKHOUSE_DB" default:"diabetes"`
	BatchSize     int           `envconfig:"CLICKHOUSE_BATCH_SIZE" default:"500"`
	FlushInterval time.Duration `envconfig:"CLICKHOUSE_FLUSH_INTERVAL" default:"5s"`
}

func (c ClickHouseConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type RedisConfig struct {
	Enabled  bool   `envconfig:"REDIS_ENABLED" default:"false"`
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Enabled     bool     `envconfig:"KAFKA_ENABLED" default:"false"`
	Brokers     []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	Topic       string   `envconfig:"KAFKA_PREDICTIONS_TOPIC" default:"predictions.scored"`
	FailedTopic string   `envconfig:"KAFKA_FAILURES_TOPIC" default:"predictions.failed"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	Provider    string `envconfig:"ERROR_TRACKING_PROVIDER" default:"sentry"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings that would only fail later at first use
func (c *Config) Validate() error {
	switch c.Model.ScoreKind {
	case "auto", "probability", "decision":
	default:
		return errors.Wrapf(errors.ErrInvalidInput, "MODEL_SCORE_KIND must be auto, probability or decision, got %q", c.Model.ScoreKind)
	}
	if c.Insights.PopulationSize <= 0 {
		return errors.Wrapf(errors.ErrInvalidInput, "INSIGHTS_POPULATION_SIZE must be positive, got %d", c.Insights.PopulationSize)
	}
	if c.ErrorTracking.Enabled && c.ErrorTracking.Provider == "sentry" && c.ErrorTracking.SentryDSN == "" {
		return errors.Wrap(errors.ErrInvalidInput, "SENTRY_DSN is required when error tracking is enabled")
	}
	return nil
}

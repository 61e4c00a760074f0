package bootstrap

import (
	"context"
	"time"

	chclient "diabetes-risk/internal/adapters/clickhouse"
	"diabetes-risk/internal/adapters/config"
	errnoop "diabetes-risk/internal/adapters/errors/noop"
	"diabetes-risk/internal/adapters/errors/sentry"
	"diabetes-risk/internal/adapters/kafka"
	pgclient "diabetes-risk/internal/adapters/postgres"
	redisclient "diabetes-risk/internal/adapters/redis"
	"diabetes-risk/internal/api"
	"diabetes-risk/internal/api/health"
	insightsapi "diabetes-risk/internal/api/insights"
	"diabetes-risk/internal/api/middleware"
	"diabetes-risk/internal/api/predict"
	"diabetes-risk/internal/domain/insights"
	"diabetes-risk/internal/events"
	"diabetes-risk/internal/metrics"
	"diabetes-risk/internal/ml"
	chrepo "diabetes-risk/internal/repository/clickhouse"
	filerepo "diabetes-risk/internal/repository/file"
	pgrepo "diabetes-risk/internal/repository/postgres"
	redisrepo "diabetes-risk/internal/repository/redis"
	insightsservice "diabetes-risk/internal/services/insights"
	predictionservice "diabetes-risk/internal/services/prediction"
	"diabetes-risk/pkg/errors"
	"diabetes-risk/pkg/logger"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// ========================================
// Phase 1: Configuration & Logging
// ========================================

// MustInitConfig loads configuration and initializes logger
func (c *Container) MustInitConfig() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	c.Config = cfg

	// Initialize logger
	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}

	c.Log = logger.Get()
	c.Log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	// Initialize error tracker
	c.ErrorTracker = provideErrorTracker(cfg, c.Log)
	logger.SetErrorTracker(c.ErrorTracker)
}

// ========================================
// Phase 2: Model artifacts
// ========================================

// MustInitModel loads the scaler and classifier. A missing or incompatible
// artifact is fatal.
func (c *Container) MustInitModel() {
	c.Log.Info("Loading model artifacts...")

	model, err := ml.Load(ml.Config{
		ScalerPath:        c.Config.Model.ScalerPath,
		ModelPath:         c.Config.Model.ClassifierPath,
		SharedLibraryPath: c.Config.Model.SharedLibraryPath,
		LabelOutput:       c.Config.Model.LabelOutput,
		ScoreOutput:       c.Config.Model.ScoreOutput,
		ScoreKind:         c.Config.Model.ScoreKind,
	})
	if err != nil {
		c.Log.Fatalf("failed to load model: %v", err)
	}
	c.Model = model

	info := model.Info()
	c.Log.Infow("✓ Model loaded",
		"scorer", info.Kind,
		"format", info.Format,
		"calibrated", info.Calibrated,
		"model_size", info.ModelSize,
		"version", info.Version,
	)
}

// ========================================
// Phase 3: Infrastructure Layer
// ========================================

// MustInitInfrastructure connects the enabled data stores (Postgres, ClickHouse, Redis)
func (c *Container) MustInitInfrastructure() {
	var err error

	// PostgreSQL
	if c.Config.Postgres.Enabled {
		c.Log.Info("Connecting to PostgreSQL...")
		c.PG, err = pgclient.NewClient(c.Config.Postgres)
		if err != nil {
			c.Log.Fatalf("failed to connect postgres: %v", err)
		}
		c.Log.Info("✓ PostgreSQL connected")
	}

	// ClickHouse
	if c.Config.ClickHouse.Enabled {
		c.Log.Info("Connecting to ClickHouse...")
		c.CH, err = chclient.NewClient(c.Config.ClickHouse)
		if err != nil {
			c.Log.Fatalf("failed to connect clickhouse: %v", err)
		}
		c.Log.Info("✓ ClickHouse connected")
	}

	// Redis
	if c.Config.Redis.Enabled {
		c.Log.Info("Connecting to Redis...")
		c.Redis, err = redisclient.NewClient(c.Config.Redis)
		if err != nil {
			c.Log.Fatalf("failed to connect redis: %v", err)
		}
		c.Log.Info("✓ Redis connected")
	}
}

// ========================================
// Phase 4: Domain Layer - Repositories
// ========================================

// MustInitRepositories initializes the repositories backed by enabled stores
func (c *Container) MustInitRepositories() {
	ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
	defer cancel()

	// Prediction journal (ClickHouse)
	if c.CH != nil {
		journal := chrepo.NewPredictionJournal(c.CH.Conn(), chrepo.JournalConfig{
			BatchSize:     c.Config.ClickHouse.BatchSize,
			FlushInterval: c.Config.ClickHouse.FlushInterval,
		}, c.Log)
		if err := journal.EnsureSchema(ctx); err != nil {
			c.Log.Errorw("Prediction journal disabled", "error", err)
		} else {
			c.Repos.Journal = journal
		}
	}

	// Held-out evaluation set (CSV wins over Postgres)
	switch {
	case c.Config.Insights.EvaluationCSV != "":
		c.Repos.Evaluation = filerepo.NewEvaluationCSV(c.Config.Insights.EvaluationCSV)
	case c.PG != nil:
		repo, err := pgrepo.NewEvaluationRepository(c.PG.DB(), c.Config.Insights.EvaluationTable)
		if err != nil {
			c.Log.Fatalf("failed to create evaluation repository: %v", err)
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			c.Log.Fatalf("failed to ensure evaluation schema: %v", err)
		}
		c.Repos.Evaluation = repo
	}

	// Model-metrics cache (Redis), keyed by artifact version
	if c.Redis != nil {
		c.Repos.MetricsCache = redisrepo.NewMetricsCacheRepository(c.Redis.Client(), c.Model.Info().Version)
	}

	c.registerStoreCollector()

	c.Log.Infow("✓ Repositories initialized",
		"journal", c.Repos.Journal != nil,
		"evaluation", c.Repos.Evaluation != nil,
		"metrics_cache", c.Repos.MetricsCache != nil,
	)
}

func (c *Container) registerStoreCollector() {
	if c.PG == nil && c.CH == nil && c.Redis == nil {
		return
	}

	var (
		db   *sqlx.DB
		conn driver.Conn
		rdb  *redis.Client
		cfg  metrics.StoreCollectorConfig
	)
	if _, ok := c.Repos.Evaluation.(*pgrepo.EvaluationRepository); ok {
		db = c.PG.DB()
		cfg.EvaluationTable = c.Config.Insights.EvaluationTable
	}
	if c.Repos.Journal != nil {
		conn = c.CH.Conn()
		cfg.JournalTable = chrepo.DefaultJournalTable
	}
	if c.Repos.MetricsCache != nil {
		rdb = c.Redis.Client()
		cfg.CachePattern = c.Repos.MetricsCache.Pattern()
	}

	metrics.RegisterStoreCollector(metrics.NewStoreCollector(c.Log, db, conn, rdb, cfg))
}

// ========================================
// Phase 5: External Adapters
// ========================================

// MustInitAdapters initializes the Kafka producer and event publisher
func (c *Container) MustInitAdapters() {
	if !c.Config.Kafka.Enabled {
		c.Log.Info("Kafka disabled, prediction events are not published")
		return
	}

	c.Adapters.KafkaProducer = provideKafkaProducer(c.Config, c.Log)
	c.Adapters.EventPublisher = events.NewPublisher(c.Adapters.KafkaProducer, c.Log).
		WithTopics(c.Config.Kafka.Topic, c.Config.Kafka.FailedTopic)

	c.Log.Info("✓ External adapters initialized")
}

// ========================================
// Phase 6: Domain Layer - Services
// ========================================

// MustInitServices initializes the prediction and insights services
func (c *Container) MustInitServices() {
	// Typed nil pointers must not leak into the interfaces
	opts := predictionservice.Options{Tracker: c.ErrorTracker}
	if c.Repos.Journal != nil {
		opts.Journal = c.Repos.Journal
	}
	if c.Adapters.EventPublisher != nil {
		opts.Events = c.Adapters.EventPublisher
	}
	c.Services.Prediction = predictionservice.NewService(c.Model, opts, c.Log)

	var cache insights.MetricsCache
	if c.Repos.MetricsCache != nil {
		cache = c.Repos.MetricsCache
	}
	c.Services.Insights = insightsservice.NewService(insightsservice.Config{
		PopulationSize: c.Config.Insights.PopulationSize,
		Seed:           c.Config.Insights.Seed,
		CacheTTL:       c.Config.Insights.MetricsCacheTTL,
	}, c.Model, c.Repos.Evaluation, cache, c.Log)
	if c.Repos.Journal != nil {
		c.Services.Insights.WithJournal(c.Repos.Journal)
	}

	c.Log.Info("✓ Services initialized")
}

// ========================================
// Phase 7: Application Layer
// ========================================

// MustInitApplication builds the HTTP server and its handlers
func (c *Container) MustInitApplication() {
	metrics.Init()

	stores := health.Stores{}
	if c.PG != nil {
		stores.Postgres = c.PG.DB()
	}
	if c.CH != nil {
		stores.ClickHouse = c.CH.Conn()
	}
	if c.Redis != nil {
		stores.Redis = c.Redis.Client()
	}

	version := c.Model.Info().Version
	c.Application.HealthHandler = health.New(c.Log, c.Model, stores, c.Config.App.Name, version)
	c.Application.RateLimiter = middleware.NewRateLimiter(
		c.Config.HTTP.RateLimitRPS,
		c.Config.HTTP.RateLimitBurst,
		c.Log,
	)

	c.Application.HTTPServer = provideHTTPServer(c, version)

	c.Log.Info("✓ Application layer initialized")
}

// ========================================
// Provider Functions
// ========================================

func provideErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return errnoop.New(log)
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment, cfg.App.Name)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return errnoop.New(log)
	}

	log.Info("✓ Error tracking initialized (Sentry)")
	return tracker
}

func provideKafkaProducer(cfg *config.Config, log *logger.Logger) *kafka.Producer {
	log.Info("Initializing Kafka producer...")
	if len(cfg.Kafka.Brokers) == 0 {
		log.Warn("Kafka brokers not configured, using default localhost:9092")
		cfg.Kafka.Brokers = []string{"localhost:9092"}
	}

	// Async keeps broker latency off the request path
	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers: cfg.Kafka.Brokers,
		Async:   true,
		Log:     log,
	})
	log.Infow("✓ Kafka producer initialized",
		"scored_topic", cfg.Kafka.Topic,
		"failed_topic", cfg.Kafka.FailedTopic,
	)
	return producer
}

func provideHTTPServer(c *Container, version string) *api.Server {
	cfg := c.Config

	return api.NewServer(api.ServerConfig{
		Port:         cfg.HTTP.Port,
		ServiceName:  cfg.App.Name,
		Version:      version,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		CORSOrigins:  cfg.HTTP.CORSOrigins,
	}, api.Handlers{
		Health:      c.Application.HealthHandler,
		Predict:     predict.NewHandler(c.Services.Prediction, c.Log),
		Insights:    insightsapi.NewHandler(c.Services.Insights, c.Model.Info(), c.Log),
		RateLimiter: c.Application.RateLimiter,
		Tracker:     c.ErrorTracker,
	}, c.Log)
}

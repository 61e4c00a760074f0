package bootstrap

import (
	"context"
	"io"
	"sync"

	chclient "diabetes-risk/internal/adapters/clickhouse"
	"diabetes-risk/internal/adapters/config"
	"diabetes-risk/internal/adapters/kafka"
	pgclient "diabetes-risk/internal/adapters/postgres"
	redisclient "diabetes-risk/internal/adapters/redis"
	"diabetes-risk/internal/api"
	"diabetes-risk/internal/api/health"
	"diabetes-risk/internal/api/middleware"
	"diabetes-risk/internal/domain/evaluation"
	"diabetes-risk/internal/events"
	"diabetes-risk/internal/ml"
	chrepo "diabetes-risk/internal/repository/clickhouse"
	redisrepo "diabetes-risk/internal/repository/redis"
	insightsservice "diabetes-risk/internal/services/insights"
	predictionservice "diabetes-risk/internal/services/prediction"
	"diabetes-risk/pkg/errors"
	"diabetes-risk/pkg/logger"
)

// Container holds all application dependencies and their lifecycle
// Components are organized in initialization order
type Container struct {
	// Core configuration & logging
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Immutable scoring handle, shared by every request
	Model *ml.Model

	// Infrastructure Layer (optional data stores, nil when disabled)
	PG    *pgclient.Client
	CH    *chclient.Client
	Redis *redisclient.Client

	// Domain Layer - Repositories
	Repos *Repositories

	// Domain Layer - Services
	Services *Services

	// External Adapters
	Adapters *Adapters

	// Application Layer
	Application *Application

	// Lifecycle management
	Lifecycle *Lifecycle
	WG        *sync.WaitGroup
	Context   context.Context
	Cancel    context.CancelFunc
}

// Repositories groups all domain repositories. Every field may be nil.
type Repositories struct {
	Journal      *chrepo.PredictionJournal
	Evaluation   evaluation.Source
	MetricsCache *redisrepo.MetricsCacheRepository
}

// Services groups all application services
type Services struct {
	Prediction *predictionservice.Service
	Insights   *insightsservice.Service
}

// Adapters groups all external adapters
type Adapters struct {
	KafkaProducer  *kafka.Producer
	EventPublisher *events.Publisher
}

// Application groups application layer components
type Application struct {
	HTTPServer    *api.Server
	HealthHandler *health.Handler
	RateLimiter   *middleware.RateLimiter
}

// NewContainer creates a new dependency container
func NewContainer() *Container {
	ctx, cancel := context.WithCancel(context.Background())

	return &Container{
		Repos:       &Repositories{},
		Services:    &Services{},
		Adapters:    &Adapters{},
		Application: &Application{},
		Lifecycle:   NewLifecycle(),
		WG:          &sync.WaitGroup{},
		Context:     ctx,
		Cancel:      cancel,
	}
}

// MustInit initializes all components in the correct order
// Panics on any initialization error (fail-fast at startup)
func (c *Container) MustInit() {
	c.MustInitConfig()
	c.MustInitModel()
	c.MustInitInfrastructure()
	c.MustInitRepositories()
	c.MustInitAdapters()
	c.MustInitServices()
	c.MustInitApplication()
}

// Start starts all background components
func (c *Container) Start() error {
	c.Log.Info("Starting all systems...")

	// Prediction journal flush loop. It outlives Cancel so requests still
	// draining during HTTP shutdown keep their rows; Lifecycle stops it.
	if c.Repos.Journal != nil {
		c.Repos.Journal.Start(context.WithoutCancel(c.Context))
		c.Log.Info("✓ Prediction journal started")
	}

	// Idle client sweeper for the rate limiter
	if c.Application.RateLimiter != nil {
		c.WG.Add(1)
		go func() {
			defer c.WG.Done()
			c.Application.RateLimiter.Run(c.Context)
		}()
	}

	// Start HTTP server
	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := c.Application.HTTPServer.Start(); err != nil {
			c.Log.Errorf("HTTP server failed: %v", err)
			c.Cancel() // Trigger shutdown on fatal HTTP error
		}
	}()

	c.Log.Infow("✓ All systems operational",
		"scorer", c.Model.Kind(),
		"calibrated", c.Model.Info().Calibrated,
		"metrics_source", c.Services.Insights.MetricsSource(),
	)
	return nil
}

// Shutdown performs graceful shutdown in the correct order
func (c *Container) Shutdown() {
	c.Log.Info("Initiating graceful shutdown...")

	// Cancel application context to signal background loops to stop
	c.Cancel()

	// Only connected stores go in, so no typed nil reaches io.Closer
	stores := make(map[string]io.Closer)
	if c.PG != nil {
		stores["postgres"] = c.PG
	}
	if c.CH != nil {
		stores["clickhouse"] = c.CH
	}
	if c.Redis != nil {
		stores["redis"] = c.Redis
	}

	c.Lifecycle.Shutdown(Components{
		WG:           c.WG,
		HTTPServer:   c.Application.HTTPServer,
		Journal:      c.Repos.Journal,
		Producer:     c.Adapters.KafkaProducer,
		Model:        c.Model,
		Stores:       stores,
		ErrorTracker: c.ErrorTracker,
	}, c.Log)
}

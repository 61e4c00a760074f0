package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/cors"

	"diabetes-risk/internal/api/health"
	insightsapi "diabetes-risk/internal/api/insights"
	"diabetes-risk/internal/api/middleware"
	"diabetes-risk/internal/api/predict"
	"diabetes-risk/internal/metrics"
	"diabetes-risk/pkg/errors"
	"diabetes-risk/pkg/logger"
)

// ServerConfig contains configuration for HTTP server
type ServerConfig struct {
	Port         int
	ServiceName  string
	Version      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxBodyBytes int64
	CORSOrigins  []string // empty or "*" allows any origin
}

// Handlers groups the route handlers
type Handlers struct {
	Health      *health.Handler
	Predict     *predict.Handler
	Insights    *insightsapi.Handler
	RateLimiter *middleware.RateLimiter // optional, guards /predict
	Tracker     errors.Tracker          // optional
}

// Server wraps HTTP server with lifecycle management
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer creates and configures HTTP server with all routes
func NewServer(cfg ServerConfig, h Handlers, log *logger.Logger) *Server {
	port := 5000
	if cfg.Port > 0 {
		port = cfg.Port
	}

	log.Infof("HTTP server configured on port %d", port)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      NewHandler(cfg, h, log),
		ReadTimeout:  orDefault(cfg.ReadTimeout, 15*time.Second),
		WriteTimeout: orDefault(cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:  orDefault(cfg.IdleTimeout, 60*time.Second),
	}

	return &Server{
		httpServer: httpServer,
		log:        log,
	}
}

// NewHandler builds the routed, wrapped handler tree
func NewHandler(cfg ServerConfig, h Handlers, log *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Prediction
	var predictHandler http.Handler = h.Predict
	if h.RateLimiter != nil {
		predictHandler = h.RateLimiter.Middleware("/predict")(predictHandler)
	}
	mux.Handle("POST /predict", predictHandler)

	// Charts and model introspection
	mux.HandleFunc("GET /population-stats", h.Insights.HandlePopulation)
	mux.HandleFunc("GET /model-metrics", h.Insights.HandleModelMetrics)
	mux.HandleFunc("GET /model-info", h.Insights.HandleModelInfo)
	mux.HandleFunc("GET /prediction-stats", h.Insights.HandlePredictionStats)

	// Health check endpoints (Kubernetes liveness and readiness)
	mux.HandleFunc("GET /health", h.Health.HandleHealth)
	mux.HandleFunc("GET /ready", h.Health.HandleReadiness)
	mux.HandleFunc("GET /live", h.Health.HandleLiveness)

	// Prometheus metrics endpoint
	mux.Handle("GET /metrics", metrics.Handler())

	// Root endpoint (service info)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"service":"%s","version":"%s","status":"running"}`,
			cfg.ServiceName, cfg.Version)
	})

	handler := middleware.Chain(mux,
		middleware.RequestID(log, h.Tracker),
		middleware.Logging(log),
		middleware.Recover(log, h.Tracker),
		middleware.MaxBodyBytes(cfg.MaxBodyBytes),
	)

	return newCORS(cfg.CORSOrigins).Handler(handler)
}

func newCORS(origins []string) *cors.Cors {
	opts := cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		opts.AllowedOrigins = []string{"*"}
	} else {
		opts.AllowedOrigins = origins
	}
	return cors.New(opts)
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}

// Start begins listening for HTTP requests
// Blocks until server is stopped or encounters an error
func (s *Server) Start() error {
	s.log.Infof("Starting HTTP server on %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "http server failed")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
// Waits for active connections to complete within timeout
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Stopping HTTP server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "http server shutdown failed")
	}

	s.log.Info("✓ HTTP server stopped")
	return nil
}

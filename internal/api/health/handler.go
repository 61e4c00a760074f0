package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"diabetes-risk/internal/ml"
	"diabetes-risk/pkg/logger"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// Component status values
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Handler provides health check endpoints. Every store is optional; a nil
// store is not checked.
type Handler struct {
	log         *logger.Logger
	model       ml.Scorer
	postgres    *sqlx.DB
	clickhouse  driver.Conn
	redis       *redis.Client
	startTime   time.Time
	serviceName string
	version     string
}

// Stores groups the optional backing stores
type Stores struct {
	Postgres   *sqlx.DB
	ClickHouse driver.Conn
	Redis      *redis.Client
}

// New creates a new health check handler
func New(
	log *logger.Logger,
	model ml.Scorer,
	stores Stores,
	serviceName string,
	version string,
) *Handler {
	return &Handler{
		log:         log,
		model:       model,
		postgres:    stores.Postgres,
		clickhouse:  stores.ClickHouse,
		redis:       stores.Redis,
		startTime:   time.Now(),
		serviceName: serviceName,
		version:     version,
	}
}

// HealthStatus represents the overall readiness status
type HealthStatus struct {
	Status    string                     `json:"status"` // "healthy", "unhealthy"
	Service   string                     `json:"service"`
	Version   string                     `json:"version"`
	Uptime    string                     `json:"uptime"`
	Timestamp string                     `json:"timestamp"`
	Checks    map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth represents health of a single component
type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time,omitempty"`
	Error        string `json:"error,omitempty"`
}

// HandleHealth reports that the process is up. It never checks dependencies.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "Backend running",
	})
}

// HandleLiveness returns 200 OK if service is running
// Used by Kubernetes liveness checks
func (h *Handler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "alive",
	})
}

// HandleReadiness checks the scorer and every configured store
// Used by Kubernetes readiness checks
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]ComponentHealth)
	checks["model"] = h.checkModel()

	if h.postgres != nil {
		checks["postgres"] = h.check("postgres", func() error { return h.postgres.PingContext(ctx) })
	}
	if h.clickhouse != nil {
		checks["clickhouse"] = h.check("clickhouse", func() error { return h.clickhouse.Ping(ctx) })
	}
	if h.redis != nil {
		checks["redis"] = h.check("redis", func() error { return h.redis.Ping(ctx).Err() })
	}

	allHealthy := true
	for _, c := range checks {
		if c.Status != StatusHealthy {
			allHealthy = false
		}
	}

	status := HealthStatus{
		Status:    StatusHealthy,
		Service:   h.serviceName,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().Format(time.RFC3339),
		Checks:    checks,
	}

	statusCode := http.StatusOK
	if !allHealthy {
		status.Status = StatusUnhealthy
		statusCode = http.StatusServiceUnavailable
		h.log.Warnw("Readiness check failed", "checks", checks)
	}

	writeJSON(w, statusCode, status)
}

func (h *Handler) checkModel() ComponentHealth {
	if h.model == nil {
		return ComponentHealth{Status: StatusUnhealthy, Error: "model not loaded"}
	}
	return ComponentHealth{Status: StatusHealthy}
}

// check times a ping against one store
func (h *Handler) check(name string, ping func() error) ComponentHealth {
	start := time.Now()
	err := ping()
	elapsed := time.Since(start)

	if err != nil {
		h.log.Warnw("Health check failed", "component", name, "error", err, "elapsed", elapsed)
		return ComponentHealth{
			Status:       StatusUnhealthy,
			ResponseTime: elapsed.String(),
			Error:        err.Error(),
		}
	}

	return ComponentHealth{
		Status:       StatusHealthy,
		ResponseTime: elapsed.String(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

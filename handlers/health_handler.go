package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/upb/catering-erp/utils"
	"go.uber.org/zap"
)

// Pinger is an optional dependency checked by readiness
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsFunc reports a point-in-time snapshot of an in-process component
type StatsFunc func() interface{}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]string      `json:"checks,omitempty"`
	Stats     map[string]interface{} `json:"stats,omitempty"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	db     *sql.DB
	redis  Pinger
	stats  map[string]StatsFunc
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. redis may be nil.
func NewHealthHandler(db *sql.DB, redis Pinger, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		redis:  redis,
		stats:  make(map[string]StatsFunc),
		logger: logger,
	}
}

// WithStats adds a named snapshot to the readiness body
func (h *HealthHandler) WithStats(name string, fn StatsFunc) *HealthHandler {
	h.stats[name] = fn
	return h
}

// HandleHealth handles GET /healthz
// Basic health check - always returns 200 if service is running
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, "", HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleReadiness handles GET /readyz
// Readiness check - validates the control-plane database and, when
// configured, Redis
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	if err := h.checkDatabase(ctx); err != nil {
		h.logger.Warn("database health check failed", zap.Error(err))
		checks["database"] = "unhealthy"
		allHealthy = false
	} else {
		checks["database"] = "healthy"
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			h.logger.Warn("redis health check failed", zap.Error(err))
			checks["redis"] = "unhealthy"
			allHealthy = false
		} else {
			checks["redis"] = "healthy"
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	message := "ready"
	if !allHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
		message = "not ready"
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}
	if len(h.stats) > 0 {
		response.Stats = make(map[string]interface{}, len(h.stats))
		for name, fn := range h.stats {
			response.Stats[name] = fn()
		}
	}

	if err := utils.WriteEnvelope(w, httpStatus, message, response); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}

// checkDatabase checks database connectivity
func (h *HealthHandler) checkDatabase(ctx context.Context) error {
	if h.db == nil {
		return nil // No database configured
	}

	if err := h.db.PingContext(ctx); err != nil {
		return err
	}

	var result int
	return h.db.QueryRowContext(ctx, "SELECT 1").Scan(&result)
}

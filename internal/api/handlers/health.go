package handlers

import (
	"context"
	"net/http"
	"time"

	"honeypot-lab/pkg/logger"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	cache     Pinger
	database  Pinger
	version   string
	logger    *logger.Logger
	startTime time.Time
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(cache, database Pinger, version string, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		cache:     cache,
		database:  database,
		version:   version,
		logger:    log.WithComponent("health"),
		startTime: time.Now(),
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Home handles GET /
func (h *HealthHandler) Home(w http.ResponseWriter, r *http.Request) {
	respondJSON(h.logger, w, http.StatusOK, map[string]string{
		"message": "Agentic HoneyPot API is running",
	})
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	respondJSON(h.logger, w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready - checks the optional backends
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"sessions": "healthy"}
	status := http.StatusOK
	overallStatus := "ready"

	probe := func(name string, p Pinger) {
		if p == nil {
			checks[name] = "not configured"
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			checks[name] = "unhealthy: " + err.Error()
			status = http.StatusServiceUnavailable
			overallStatus = "not ready"
			return
		}
		checks[name] = "healthy"
	}

	probe("redis", h.cache)
	probe("postgres", h.database)

	respondJSON(h.logger, w, status, HealthResponse{
		Status:    overallStatus,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}

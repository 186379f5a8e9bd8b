package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"honeypot-lab/internal/detection"
	"honeypot-lab/internal/domain/models"
	"honeypot-lab/internal/domain/services"
	"honeypot-lab/internal/infrastructure/database/repository"
	"honeypot-lab/pkg/logger"
)

// Pinger is a backend whose reachability is reported by /ready
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReportLister lists archived report deliveries
type ReportLister interface {
	Recent(ctx context.Context, filter repository.ReportFilter) ([]*models.DeliveryRecord, error)
}

// DispatchStatser exposes callback delivery counters
type DispatchStatser interface {
	Stats() services.DispatcherStats
}

// Handlers holds all API handlers
type Handlers struct {
	Health   *HealthHandler
	Message  *MessageHandler
	Classify *ClassifyHandler
	Stats    *StatsHandler
	Reports  *ReportsHandler
	Debug    *DebugHandler
}

// Dependencies holds dependencies for handlers. Cache, Database and Reports may be nil.
type Dependencies struct {
	Engine      *services.Engine
	Scored      *detection.Classifier
	Dispatcher  DispatchStatser
	Reports     ReportLister
	Cache       Pinger
	Database    Pinger
	Version     string
	AlwaysReply bool
	Logger      *logger.Logger
}

// NewHandlers creates all handlers
func NewHandlers(deps Dependencies) *Handlers {
	return &Handlers{
		Health:   NewHealthHandler(deps.Cache, deps.Database, deps.Version, deps.Logger),
		Message:  NewMessageHandler(deps.Engine, deps.AlwaysReply, deps.Logger),
		Classify: NewClassifyHandler(deps.Scored, deps.Logger),
		Stats:    NewStatsHandler(deps.Engine, deps.Dispatcher, deps.Logger),
		Reports:  NewReportsHandler(deps.Reports, deps.Logger),
		Debug:    NewDebugHandler(deps.Engine, deps.Logger),
	}
}

// respondJSON sends a JSON response
func respondJSON(log *logger.Logger, w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

// respondError sends an error response
func respondError(log *logger.Logger, w http.ResponseWriter, status int, message string) {
	respondJSON(log, w, status, map[string]string{"error": message})
}

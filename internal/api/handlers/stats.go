package handlers

import (
	"net/http"
	"time"

	"honeypot-lab/internal/domain/services"
	"honeypot-lab/pkg/logger"
)

// StatsHandler handles statistics endpoints
type StatsHandler struct {
	engine     *services.Engine
	dispatcher DispatchStatser
	logger     *logger.Logger
}

// NewStatsHandler creates a new StatsHandler
func NewStatsHandler(engine *services.Engine, dispatcher DispatchStatser, log *logger.Logger) *StatsHandler {
	return &StatsHandler{
		engine:     engine,
		dispatcher: dispatcher,
		logger:     log.WithComponent("stats"),
	}
}

// StatsResponse combines conversation and delivery counters
type StatsResponse struct {
	Engine    services.EngineStats      `json:"engine"`
	Callbacks *services.DispatcherStats `json:"callbacks,omitempty"`
	Timestamp time.Time                 `json:"timestamp"`
}

// Get handles GET /v1/stats
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		Engine:    h.engine.Stats(),
		Timestamp: time.Now().UTC(),
	}
	if h.dispatcher != nil {
		stats := h.dispatcher.Stats()
		resp.Callbacks = &stats
	}
	respondJSON(h.logger, w, http.StatusOK, resp)
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"honeypot-lab/internal/domain/services"
	"honeypot-lab/pkg/logger"
)

// DebugHandler exposes read-only session state
type DebugHandler struct {
	engine *services.Engine
	logger *logger.Logger
}

// NewDebugHandler creates a new DebugHandler
func NewDebugHandler(engine *services.Engine, log *logger.Logger) *DebugHandler {
	return &DebugHandler{
		engine: engine,
		logger: log.WithComponent("debug-handler"),
	}
}

// Session handles GET /debug/session/{sessionId}. Unknown sessions yield {}.
func (h *DebugHandler) Session(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	session, err := h.engine.Session(sessionID)
	if errors.Is(err, services.ErrSessionNotFound) {
		respondJSON(h.logger, w, http.StatusOK, struct{}{})
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("session_id", sessionID).Msg("failed to read session")
		respondJSON(h.logger, w, http.StatusOK, struct{}{})
		return
	}

	respondJSON(h.logger, w, http.StatusOK, session)
}

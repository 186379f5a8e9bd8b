package handlers

import (
	"net/http"
	"strconv"

	"honeypot-lab/internal/domain/models"
	"honeypot-lab/internal/infrastructure/database/repository"
	"honeypot-lab/pkg/logger"
)

// ReportsHandler lists archived final report deliveries
type ReportsHandler struct {
	reports ReportLister
	logger  *logger.Logger
}

// NewReportsHandler creates a new ReportsHandler. reports may be nil when
// no database is configured.
func NewReportsHandler(reports ReportLister, log *logger.Logger) *ReportsHandler {
	return &ReportsHandler{
		reports: reports,
		logger:  log.WithComponent("reports-handler"),
	}
}

// List handles GET /v1/reports?session_id=&status=&limit=
func (h *ReportsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		respondError(h.logger, w, http.StatusServiceUnavailable, "report archive not configured")
		return
	}

	q := r.URL.Query()
	filter := repository.ReportFilter{
		SessionID: q.Get("session_id"),
		Status:    models.DeliveryStatus(q.Get("status")),
		Limit:     50,
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > 500 {
			respondError(h.logger, w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		filter.Limit = limit
	}

	records, err := h.reports.Recent(r.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list reports")
		respondError(h.logger, w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	if records == nil {
		records = []*models.DeliveryRecord{}
	}

	respondJSON(h.logger, w, http.StatusOK, map[string]any{
		"reports": records,
		"count":   len(records),
	})
}

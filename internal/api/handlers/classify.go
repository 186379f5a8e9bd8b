package handlers

import (
	"encoding/json"
	"net/http"

	"honeypot-lab/internal/detection"
	"honeypot-lab/pkg/logger"
)

// ClassifyHandler scores a single message without touching any session
type ClassifyHandler struct {
	classifier *detection.Classifier
	logger     *logger.Logger
}

// NewClassifyHandler creates a new ClassifyHandler
func NewClassifyHandler(classifier *detection.Classifier, log *logger.Logger) *ClassifyHandler {
	return &ClassifyHandler{
		classifier: classifier,
		logger:     log.WithComponent("classify-handler"),
	}
}

// ClassifyRequest is the body of POST /v1/classify
type ClassifyRequest struct {
	Text string `json:"text"`
}

// ClassifyResponse carries the verdict under the classifier's policy
type ClassifyResponse struct {
	Policy    detection.Policy `json:"policy"`
	IsScam    bool             `json:"isScam"`
	RiskLevel string           `json:"riskLevel,omitempty"`
	Reasons   []string         `json:"reasons"`
}

// Classify handles POST /v1/classify
func (h *ClassifyHandler) Classify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBody)).Decode(&req); err != nil {
		respondError(h.logger, w, http.StatusBadRequest, "invalid request body")
		return
	}

	verdict := h.classifier.Classify(req.Text)
	reasons := verdict.Reasons
	if reasons == nil {
		reasons = []string{}
	}

	respondJSON(h.logger, w, http.StatusOK, ClassifyResponse{
		Policy:    h.classifier.Policy(),
		IsScam:    verdict.IsScam,
		RiskLevel: string(verdict.RiskLevel),
		Reasons:   reasons,
	})
}

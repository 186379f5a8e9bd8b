package streaming

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"honeypot-lab/internal/domain/models"
)

// EventType represents the type of report event
type EventType string

const (
	EventTypeReportDelivered EventType = "delivered"
	EventTypeReportFailed    EventType = "failed"
	EventTypeReportSkipped   EventType = "skipped"
)

// ReportEvent announces the outcome of one final report delivery
type ReportEvent struct {
	ID         string          `json:"id"`
	Type       EventType       `json:"type"`
	Timestamp  time.Time       `json:"timestamp"`
	DeliveryID string          `json:"delivery_id"`
	SessionID  string          `json:"session_id"`
	Attempts   int             `json:"attempts"`
	StatusCode int             `json:"status_code,omitempty"`
	Error      string          `json:"error,omitempty"`
	DurationMs int64           `json:"duration_ms"`
	Report     json.RawMessage `json:"report,omitempty"`
}

// NewReportEvent creates an event from a delivery record
func NewReportEvent(rec *models.DeliveryRecord) *ReportEvent {
	return &ReportEvent{
		ID:         uuid.New().String(),
		Type:       EventType(rec.Status),
		Timestamp:  time.Now().UTC(),
		DeliveryID: rec.ID.String(),
		SessionID:  rec.SessionID,
		Attempts:   rec.Attempts,
		StatusCode: rec.StatusCode,
		Error:      rec.Error,
		DurationMs: rec.Duration.Milliseconds(),
		Report:     rec.Report,
	}
}

// Subject returns the NATS subject for the event: honeypot.reports.<type>
func (e *ReportEvent) Subject() string {
	t := e.Type
	if t == "" {
		t = "unknown"
	}
	return "honeypot.reports." + string(t)
}

package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// FinalReport is the one-time snapshot delivered to the external collector
type FinalReport struct {
	SessionID              string             `json:"sessionId"`
	ScamDetected           bool               `json:"scamDetected"`
	TotalMessagesExchanged int                `json:"totalMessagesExchanged"`
	ExtractedIntelligence  IntelligenceRecord `json:"extractedIntelligence"`
	AgentNotes             string             `json:"agentNotes"`
}

// DeliveryStatus represents the outcome of a report delivery
type DeliveryStatus string

const (
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusFailed    DeliveryStatus = "failed"
	// DeliveryStatusSkipped means another replica already claimed the session's report.
	DeliveryStatusSkipped DeliveryStatus = "skipped"
)

// DeliveryRecord is the archived outcome of handing one report to the collector
type DeliveryRecord struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	SessionID  string          `json:"session_id" db:"session_id"`
	Status     DeliveryStatus  `json:"status" db:"status"`
	Attempts   int             `json:"attempts" db:"attempts"`
	StatusCode int             `json:"status_code,omitempty" db:"status_code"`
	Error      string          `json:"error,omitempty" db:"error"`
	Report     json.RawMessage `json:"report" db:"report"`
	Duration   time.Duration   `json:"duration" db:"duration_ms"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

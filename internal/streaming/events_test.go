package streaming

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"honeypot-lab/internal/domain/models"
)

func TestNewReportEvent(t *testing.T) {
	t.Parallel()

	rec := &models.DeliveryRecord{
		ID:         uuid.New(),
		SessionID:  "abc",
		Status:     models.DeliveryStatusDelivered,
		Attempts:   1,
		StatusCode: 200,
		Report:     json.RawMessage(`{"sessionId":"abc"}`),
		Duration:   1500 * time.Millisecond,
	}

	event := NewReportEvent(rec)

	if event.Type != EventTypeReportDelivered {
		t.Errorf("Type = %q, want %q", event.Type, EventTypeReportDelivered)
	}
	if event.DeliveryID != rec.ID.String() {
		t.Errorf("DeliveryID = %q, want %q", event.DeliveryID, rec.ID.String())
	}
	if event.DurationMs != 1500 {
		t.Errorf("DurationMs = %d, want 1500", event.DurationMs)
	}
	if got := event.Subject(); got != "honeypot.reports.delivered" {
		t.Errorf("Subject() = %q", got)
	}
}

func TestReportEventSubject(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status models.DeliveryStatus
		want   string
	}{
		{models.DeliveryStatusDelivered, "honeypot.reports.delivered"},
		{models.DeliveryStatusFailed, "honeypot.reports.failed"},
		{models.DeliveryStatusSkipped, "honeypot.reports.skipped"},
		{"", "honeypot.reports.unknown"},
	}

	for _, tt := range tests {
		event := NewReportEvent(&models.DeliveryRecord{Status: tt.status})
		if got := event.Subject(); got != tt.want {
			t.Errorf("Subject() for %q = %q, want %q", tt.status, got, tt.want)
		}
	}
}

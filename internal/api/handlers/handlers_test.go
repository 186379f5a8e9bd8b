package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"honeypot-lab/internal/detection"
	"honeypot-lab/internal/domain/models"
	"honeypot-lab/internal/domain/services"
	"honeypot-lab/internal/infrastructure/database/repository"
	"honeypot-lab/pkg/logger"
)

type recordingDispatcher struct {
	mu      sync.Mutex
	reports []*models.FinalReport
}

func (d *recordingDispatcher) Dispatch(report *models.FinalReport) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reports = append(d.reports, report)
	return true
}

func (d *recordingDispatcher) Stats() services.DispatcherStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return services.DispatcherStats{Queued: int64(len(d.reports))}
}

func newTestEngine(d services.ReportDispatcher) *services.Engine {
	patterns := detection.DefaultPatternLibrary()
	return services.NewEngine(
		services.NewMemorySessionStore(4),
		detection.NewExtractor(patterns),
		detection.NewClassifier(patterns, detection.PolicyBinary),
		detection.NewDecoyGenerator(patterns, detection.NewSeededRand(7)),
		d,
		services.DefaultEngineConfig(),
		logger.NewNop(),
	)
}

func postMessage(t *testing.T, h *MessageHandler, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/message", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Handle(w, req)

	var got map[string]any
	if w.Code == http.StatusOK {
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
	}
	return w, got
}

func TestMessageHandlerNonScam(t *testing.T) {
	t.Parallel()

	h := NewMessageHandler(newTestEngine(&recordingDispatcher{}), false, logger.NewNop())
	w, got := postMessage(t, h, `{"sessionId":"s1","message":{"sender":"scammer","text":"Hello there"}}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if got["status"] != "ok" || got["scamDetected"] != false {
		t.Errorf("Unexpected response: %v", got)
	}
	if _, ok := got["reply"]; ok {
		t.Errorf("Expected no reply on non-scam turn, got %v", got["reply"])
	}
}

func TestMessageHandlerAlwaysReply(t *testing.T) {
	t.Parallel()

	h := NewMessageHandler(newTestEngine(&recordingDispatcher{}), true, logger.NewNop())
	_, got := postMessage(t, h, `{"sessionId":"s1","message":{"text":"Hello there"}}`)

	if got["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", got["status"])
	}
	if reply, _ := got["reply"].(string); reply == "" {
		t.Error("Expected a reply when always_reply is set")
	}
}

func TestMessageHandlerScamTriggersReportOnSecondMessage(t *testing.T) {
	t.Parallel()

	d := &recordingDispatcher{}
	h := NewMessageHandler(newTestEngine(d), false, logger.NewNop())

	_, first := postMessage(t, h, `{"sessionId":"s2","message":{"text":"Your account is blocked. Verify now."}}`)
	if first["status"] != "success" || first["scamDetected"] != true {
		t.Fatalf("Unexpected first response: %v", first)
	}
	if reply, _ := first["reply"].(string); reply == "" {
		t.Error("Expected reply on scam turn")
	}
	if len(d.reports) != 0 {
		t.Fatalf("Expected no report after first message, got %d", len(d.reports))
	}

	postMessage(t, h, `{"sessionId":"s2","message":"Send to scam@upi urgent"}`)
	if len(d.reports) != 1 {
		t.Fatalf("Expected one report, got %d", len(d.reports))
	}
	if d.reports[0].TotalMessagesExchanged != 2 {
		t.Errorf("Expected 2 messages in report, got %d", d.reports[0].TotalMessagesExchanged)
	}

	postMessage(t, h, `{"sessionId":"s2","message":"urgent urgent"}`)
	if len(d.reports) != 1 {
		t.Errorf("Expected report to be sent once, got %d", len(d.reports))
	}
}

func TestMessageHandlerBadRequests(t *testing.T) {
	t.Parallel()

	h := NewMessageHandler(newTestEngine(&recordingDispatcher{}), false, logger.NewNop())

	tests := []struct {
		name string
		body string
	}{
		{"not json", `hello`},
		{"missing session", `{"message":{"text":"hi"}}`},
		{"empty session", `{"sessionId":"","message":"hi"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := postMessage(t, h, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", w.Code)
			}
		})
	}
}

func TestMessageHandlerMissingText(t *testing.T) {
	t.Parallel()

	h := NewMessageHandler(newTestEngine(&recordingDispatcher{}), false, logger.NewNop())
	w, got := postMessage(t, h, `{"sessionId":"s3","conversationHistory":[],"metadata":{"channel":"SMS"}}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if got["scamDetected"] != false {
		t.Errorf("Expected empty text to be non-scam, got %v", got)
	}
}

func TestInboundMessageUnmarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{`{"text":"hi","sender":"x","timestamp":1700000000}`, "hi"},
		{`"bare text"`, "bare text"},
		{`null`, ""},
		{`{}`, ""},
	}
	for _, tt := range tests {
		var m InboundMessage
		if err := json.Unmarshal([]byte(tt.raw), &m); err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", tt.raw, err)
		}
		if m.Text != tt.want {
			t.Errorf("Unmarshal(%s).Text = %q, want %q", tt.raw, m.Text, tt.want)
		}
	}
}

func TestClassifyHandlerScored(t *testing.T) {
	t.Parallel()

	patterns := detection.DefaultPatternLibrary()
	h := NewClassifyHandler(detection.NewClassifier(patterns, detection.PolicyScored), logger.NewNop())

	body := `{"text":"Click https://x.co to claim your prize, call +919876543210"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/classify", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Classify(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var got ClassifyResponse
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !got.IsScam || got.RiskLevel != "HIGH" {
		t.Errorf("Expected HIGH scam verdict, got %+v", got)
	}
	if got.Policy != detection.PolicyScored {
		t.Errorf("Expected scored policy, got %q", got.Policy)
	}
}

func TestDebugHandler(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(&recordingDispatcher{})
	engine.HandleMessage("known", "Call 9876543210 now")
	h := NewDebugHandler(engine, logger.NewNop())

	router := chi.NewRouter()
	router.Get("/debug/session/{sessionId}", h.Session)

	t.Run("unknown session", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/debug/session/nope", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		if body := strings.TrimSpace(w.Body.String()); body != "{}" {
			t.Errorf("Expected {}, got %s", body)
		}
	})

	t.Run("known session", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/debug/session/known", nil))

		var got models.Session
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if got.ID != "known" || len(got.Messages) != 1 {
			t.Errorf("Unexpected session: %+v", got)
		}
		if len(got.Extracted.PhoneNumbers) != 1 || got.Extracted.PhoneNumbers[0] != "9876543210" {
			t.Errorf("Expected extracted phone number, got %v", got.Extracted.PhoneNumbers)
		}
	})
}

func TestStatsHandler(t *testing.T) {
	t.Parallel()

	d := &recordingDispatcher{}
	engine := newTestEngine(d)
	engine.HandleMessage("a", "urgent")
	engine.HandleMessage("a", "verify")

	h := NewStatsHandler(engine, d, logger.NewNop())
	w := httptest.NewRecorder()
	h.Get(w, httptest.NewRequest(http.MethodGet, "/v1/stats", nil))

	var got StatsResponse
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got.Engine.MessagesHandled != 2 || got.Engine.ReportsTriggered != 1 {
		t.Errorf("Unexpected engine stats: %+v", got.Engine)
	}
	if got.Callbacks == nil || got.Callbacks.Queued != 1 {
		t.Errorf("Unexpected callback stats: %+v", got.Callbacks)
	}
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthReady(t *testing.T) {
	t.Parallel()

	t.Run("no backends", func(t *testing.T) {
		h := NewHealthHandler(nil, nil, "test", logger.NewNop())
		w := httptest.NewRecorder()
		h.Ready(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
	})

	t.Run("redis down", func(t *testing.T) {
		h := NewHealthHandler(stubPinger{err: errors.New("refused")}, nil, "test", logger.NewNop())
		w := httptest.NewRecorder()
		h.Ready(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d", w.Code)
		}
		var got HealthResponse
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if !strings.HasPrefix(got.Checks["redis"], "unhealthy") {
			t.Errorf("Expected redis unhealthy, got %q", got.Checks["redis"])
		}
	})
}

func TestHome(t *testing.T) {
	t.Parallel()

	h := NewHealthHandler(nil, nil, "test", logger.NewNop())
	w := httptest.NewRecorder()
	h.Home(w, httptest.NewRequest(http.MethodGet, "/", nil))

	var got map[string]string
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got["message"] != "Agentic HoneyPot API is running" {
		t.Errorf("Unexpected home message: %q", got["message"])
	}
}

type stubReports struct {
	filter  repository.ReportFilter
	records []*models.DeliveryRecord
}

func (s *stubReports) Recent(_ context.Context, filter repository.ReportFilter) ([]*models.DeliveryRecord, error) {
	s.filter = filter
	return s.records, nil
}

func TestReportsHandler(t *testing.T) {
	t.Parallel()

	t.Run("not configured", func(t *testing.T) {
		h := NewReportsHandler(nil, logger.NewNop())
		w := httptest.NewRecorder()
		h.List(w, httptest.NewRequest(http.MethodGet, "/v1/reports", nil))
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d", w.Code)
		}
	})

	t.Run("filters", func(t *testing.T) {
		store := &stubReports{records: []*models.DeliveryRecord{{SessionID: "abc", Status: models.DeliveryStatusDelivered}}}
		h := NewReportsHandler(store, logger.NewNop())
		w := httptest.NewRecorder()
		h.List(w, httptest.NewRequest(http.MethodGet, "/v1/reports?session_id=abc&status=delivered&limit=10", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		if store.filter.SessionID != "abc" || store.filter.Status != models.DeliveryStatusDelivered || store.filter.Limit != 10 {
			t.Errorf("Unexpected filter: %+v", store.filter)
		}
	})

	t.Run("bad limit", func(t *testing.T) {
		h := NewReportsHandler(&stubReports{}, logger.NewNop())
		w := httptest.NewRecorder()
		h.List(w, httptest.NewRequest(http.MethodGet, "/v1/reports?limit=abc", nil))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})
}

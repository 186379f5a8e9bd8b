package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"honeypot-lab/internal/api/handlers"
	"honeypot-lab/internal/config"
	"honeypot-lab/internal/detection"
	"honeypot-lab/internal/domain/models"
	"honeypot-lab/internal/domain/services"
	"honeypot-lab/pkg/logger"
)

type discardDispatcher struct{}

func (discardDispatcher) Dispatch(*models.FinalReport) bool { return true }

func newTestRouter(t *testing.T, mutate func(*config.Config)) http.Handler {
	t.Helper()

	cfg, err := config.LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault() error = %v", err)
	}
	if mutate != nil {
		mutate(cfg)
	}

	patterns := detection.DefaultPatternLibrary()
	engine := services.NewEngine(
		services.NewMemorySessionStore(4),
		detection.NewExtractor(patterns),
		detection.NewClassifier(patterns, detection.PolicyBinary),
		detection.NewDecoyGenerator(patterns, detection.NewSeededRand(1)),
		discardDispatcher{},
		services.DefaultEngineConfig(),
		logger.NewNop(),
	)

	h := handlers.NewHandlers(handlers.Dependencies{
		Engine:  engine,
		Scored:  detection.NewClassifier(patterns, detection.PolicyScored),
		Version: "test",
		Logger:  logger.NewNop(),
	})
	return NewRouter(*cfg, h, nil, logger.NewNop()).Setup()
}

func TestRouterRoutes(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, func(c *config.Config) {
		c.Auth.APIKey = "k"
		c.Auth.AdminToken = "admin"
		c.Debug.Enabled = true
	})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		header map[string]string
		want   int
	}{
		{"home", http.MethodGet, "/", "", nil, http.StatusOK},
		{"health", http.MethodGet, "/health", "", nil, http.StatusOK},
		{"message without key", http.MethodPost, "/v1/message", `{"sessionId":"a","message":"hi"}`, nil, http.StatusUnauthorized},
		{"message with key", http.MethodPost, "/v1/message", `{"sessionId":"a","message":"hi"}`, map[string]string{"x-api-key": "k"}, http.StatusOK},
		{"classify", http.MethodPost, "/v1/classify", `{"text":"urgent"}`, map[string]string{"Authorization": "Bearer k"}, http.StatusOK},
		{"stats", http.MethodGet, "/v1/stats", "", map[string]string{"x-api-key": "k"}, http.StatusOK},
		{"reports without admin", http.MethodGet, "/v1/reports", "", map[string]string{"x-api-key": "k"}, http.StatusForbidden},
		{"reports without database", http.MethodGet, "/v1/reports", "", map[string]string{"x-api-key": "k", "X-Admin-Token": "admin"}, http.StatusServiceUnavailable},
		{"debug with admin", http.MethodGet, "/debug/session/a", "", map[string]string{"X-Admin-Token": "admin"}, http.StatusOK},
		{"debug without admin", http.MethodGet, "/debug/session/a", "", nil, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("%s %s: expected status %d, got %d", tt.method, tt.path, tt.want, w.Code)
			}
		})
	}
}

func TestRouterDebugDisabled(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, func(c *config.Config) {
		c.Debug.Enabled = false
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/debug/session/a", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

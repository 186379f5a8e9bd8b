package services

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"honeypot-lab/internal/detection"
	"honeypot-lab/internal/domain/models"
	"honeypot-lab/pkg/logger"
)

// recordingDispatcher captures reports instead of delivering them
type recordingDispatcher struct {
	mu      sync.Mutex
	reports []*models.FinalReport
	reject  bool
}

func (r *recordingDispatcher) Dispatch(report *models.FinalReport) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reject {
		return false
	}
	r.reports = append(r.reports, report)
	return true
}

func (r *recordingDispatcher) all() []*models.FinalReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.FinalReport, len(r.reports))
	copy(out, r.reports)
	return out
}

func newTestEngine(d ReportDispatcher) (*Engine, *MemorySessionStore) {
	patterns := detection.DefaultPatternLibrary()
	store := NewMemorySessionStore(8)
	engine := NewEngine(
		store,
		detection.NewExtractor(patterns),
		detection.NewClassifier(patterns, detection.PolicyBinary),
		detection.NewDecoyGenerator(patterns, detection.NewSeededRand(1)),
		d,
		DefaultEngineConfig(),
		logger.NewNop(),
	)
	return engine, store
}

func TestEngineReportsOnSecondScamMessage(t *testing.T) {
	t.Parallel()

	d := &recordingDispatcher{}
	engine, _ := newTestEngine(d)

	first := engine.HandleMessage("s1", "Your account is blocked, verify at http://x.co or pay to john@upi")
	if !first.ScamDetected {
		t.Fatal("first message should be classified as scam")
	}
	if first.MessageCount != 1 || first.ReportTriggered {
		t.Fatalf("first message: count=%d triggered=%v", first.MessageCount, first.ReportTriggered)
	}
	if first.Text == "" {
		t.Error("expected a decoy reply")
	}
	if len(d.all()) != 0 {
		t.Fatal("no report expected after one message")
	}

	second := engine.HandleMessage("s1", "urgent, call +919876543210")
	if !second.ScamDetected || !second.ReportTriggered || second.MessageCount != 2 {
		t.Fatalf("second message: %+v", second)
	}

	reports := d.all()
	if len(reports) != 1 {
		t.Fatalf("expected exactly one report, got %d", len(reports))
	}
	r := reports[0]
	if r.SessionID != "s1" || !r.ScamDetected || r.TotalMessagesExchanged != 2 {
		t.Errorf("unexpected report header: %+v", r)
	}
	if got := r.ExtractedIntelligence.PhoneNumbers; len(got) != 1 || got[0] != "+919876543210" {
		t.Errorf("PhoneNumbers = %v", got)
	}
	if got := r.ExtractedIntelligence.UPIIDs; len(got) != 1 || got[0] != "john@upi" {
		t.Errorf("UPIIDs = %v", got)
	}
	if got := r.ExtractedIntelligence.SuspiciousKeywords; len(got) != 3 {
		t.Errorf("SuspiciousKeywords = %v, want verify, blocked, urgent", got)
	}

	third := engine.HandleMessage("s1", "verify now, urgent")
	if third.ReportTriggered || len(d.all()) != 1 {
		t.Fatal("report must be sent at most once per session")
	}

	sess, err := engine.Session("s1")
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if !sess.CallbackSent || sess.MessageCount() != 3 {
		t.Errorf("session state: callbackSent=%v count=%d", sess.CallbackSent, sess.MessageCount())
	}
}

func TestEngineNonScamSecondMessageDoesNotReport(t *testing.T) {
	t.Parallel()

	d := &recordingDispatcher{}
	engine, _ := newTestEngine(d)

	engine.HandleMessage("s2", "your account is blocked")
	reply := engine.HandleMessage("s2", "hello?")
	if reply.ScamDetected || reply.ReportTriggered {
		t.Fatalf("benign message should not trigger: %+v", reply)
	}
	if len(d.all()) != 0 {
		t.Fatal("unexpected report")
	}

	reply = engine.HandleMessage("s2", "click the link")
	if !reply.ReportTriggered || reply.MessageCount != 3 {
		t.Fatalf("third scam message should trigger: %+v", reply)
	}
}

func TestEngineEmptyTextIsHandled(t *testing.T) {
	t.Parallel()

	engine, _ := newTestEngine(&recordingDispatcher{})
	reply := engine.HandleMessage("s3", "")
	if reply.ScamDetected || reply.MessageCount != 1 || reply.Text == "" {
		t.Fatalf("unexpected reply for empty text: %+v", reply)
	}
}

func TestEngineUnknownSessionIsNotFound(t *testing.T) {
	t.Parallel()

	engine, _ := newTestEngine(&recordingDispatcher{})
	_, err := engine.Session("nope")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Session() error = %v, want ErrSessionNotFound", err)
	}
}

func TestEngineConcurrentMessagesReportOnce(t *testing.T) {
	t.Parallel()

	d := &recordingDispatcher{}
	engine, _ := newTestEngine(d)

	const (
		sessions   = 10
		perSession = 50
	)

	var wg sync.WaitGroup
	for s := 0; s < sessions; s++ {
		for i := 0; i < perSession; i++ {
			wg.Add(1)
			go func(s, i int) {
				defer wg.Done()
				engine.HandleMessage(fmt.Sprintf("sess-%d", s), fmt.Sprintf("urgent #%d verify", i))
			}(s, i)
		}
	}
	wg.Wait()

	reports := d.all()
	if len(reports) != sessions {
		t.Fatalf("expected %d reports, got %d", sessions, len(reports))
	}

	seen := make(map[string]bool)
	for _, r := range reports {
		if seen[r.SessionID] {
			t.Fatalf("session %s reported twice", r.SessionID)
		}
		seen[r.SessionID] = true
		if r.TotalMessagesExchanged < 2 {
			t.Errorf("report for %s sent after %d messages", r.SessionID, r.TotalMessagesExchanged)
		}
	}

	for s := 0; s < sessions; s++ {
		sess, err := engine.Session(fmt.Sprintf("sess-%d", s))
		if err != nil {
			t.Fatal(err)
		}
		if sess.MessageCount() != perSession {
			t.Errorf("session %d has %d messages, want %d", s, sess.MessageCount(), perSession)
		}
		if len(sess.Extracted.SuspiciousKeywords) != 2*perSession {
			t.Errorf("session %d has %d keywords", s, len(sess.Extracted.SuspiciousKeywords))
		}
	}

	if stats := engine.Stats(); stats.ReportsTriggered != sessions || stats.MessagesHandled != sessions*perSession {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestEngineReportIsASnapshot(t *testing.T) {
	t.Parallel()

	d := &recordingDispatcher{}
	engine, _ := newTestEngine(d)

	engine.HandleMessage("snap", "blocked: call +911234567890")
	engine.HandleMessage("snap", "verify at http://a.example")
	engine.HandleMessage("snap", "urgent, call +919999999999 http://b.example")

	r := d.all()[0]
	if r.TotalMessagesExchanged != 2 {
		t.Fatalf("TotalMessagesExchanged = %d", r.TotalMessagesExchanged)
	}
	if len(r.ExtractedIntelligence.PhoneNumbers) != 1 || len(r.ExtractedIntelligence.PhishingLinks) != 1 {
		t.Errorf("report mutated after dispatch: %+v", r.ExtractedIntelligence)
	}
}

func TestEngineRejectedDispatchKeepsFlag(t *testing.T) {
	t.Parallel()

	d := &recordingDispatcher{reject: true}
	engine, _ := newTestEngine(d)

	engine.HandleMessage("r", "blocked")
	if reply := engine.HandleMessage("r", "blocked"); !reply.ReportTriggered {
		t.Fatal("expected trigger")
	}
	d.mu.Lock()
	d.reject = false
	d.mu.Unlock()

	if reply := engine.HandleMessage("r", "blocked"); reply.ReportTriggered {
		t.Fatal("callbackSent must not revert after a rejected dispatch")
	}
	sess, _ := engine.Session("r")
	if !sess.CallbackSent {
		t.Fatal("callbackSent should remain true")
	}
}

func TestAgentNotes(t *testing.T) {
	t.Parallel()

	intel := models.NewIntelligenceRecord()
	if got := AgentNotes(intel); got != defaultAgentNotes {
		t.Errorf("AgentNotes(empty) = %q", got)
	}

	intel.SuspiciousKeywords = []string{"urgent", "blocked"}
	intel.UPIIDs = []string{"john@upi"}
	want := "Scammer used urgency, account-block threats and payment redirection tactics"
	if got := AgentNotes(intel); got != want {
		t.Errorf("AgentNotes() = %q, want %q", got, want)
	}
}

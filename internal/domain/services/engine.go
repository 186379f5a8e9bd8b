package services

import (
	"context"
	"sync/atomic"
	"time"

	"honeypot-lab/internal/detection"
	"honeypot-lab/internal/domain/models"
	"honeypot-lab/pkg/logger"
)

// ReportDispatcher accepts final reports for out-of-band delivery.
// Dispatch must not block on network I/O.
type ReportDispatcher interface {
	Dispatch(report *models.FinalReport) bool
}

// EngineConfig contains configuration for the session engine
type EngineConfig struct {
	// MinMessagesForReport is the post-append message count needed before reporting.
	MinMessagesForReport int
}

// DefaultEngineConfig returns sensible defaults
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{MinMessagesForReport: 2}
}

// Reply is the engine's answer to one inbound message
type Reply struct {
	Text            string         `json:"reply"`
	ScamDetected    bool           `json:"scamDetected"`
	Verdict         models.Verdict `json:"verdict"`
	MessageCount    int            `json:"messageCount"`
	ReportTriggered bool           `json:"reportTriggered"`
}

// EngineStats contains counters about handled traffic
type EngineStats struct {
	MessagesHandled  int64 `json:"messages_handled"`
	ScamMessages     int64 `json:"scam_messages"`
	ReportsTriggered int64 `json:"reports_triggered"`
	ActiveSessions   int   `json:"active_sessions"`
}

// Engine sequences extraction, classification, decoy replies and the
// one-time final report for every conversation.
type Engine struct {
	store      SessionStore
	extractor  *detection.Extractor
	classifier *detection.Classifier
	decoy      *detection.DecoyGenerator
	dispatcher ReportDispatcher
	config     EngineConfig
	logger     *logger.Logger

	messages atomic.Int64
	scams    atomic.Int64
	reports  atomic.Int64
}

// NewEngine creates a session engine. The store is owned by the engine from here on.
func NewEngine(
	store SessionStore,
	extractor *detection.Extractor,
	classifier *detection.Classifier,
	decoy *detection.DecoyGenerator,
	dispatcher ReportDispatcher,
	cfg EngineConfig,
	log *logger.Logger,
) *Engine {
	if cfg.MinMessagesForReport < 1 {
		cfg.MinMessagesForReport = DefaultEngineConfig().MinMessagesForReport
	}
	return &Engine{
		store:      store,
		extractor:  extractor,
		classifier: classifier,
		decoy:      decoy,
		dispatcher: dispatcher,
		config:     cfg,
		logger:     log.WithComponent("session-engine"),
	}
}

// HandleMessage processes one inbound message and always returns a usable reply.
func (e *Engine) HandleMessage(sessionID, text string) Reply {
	// The verdict depends on this message only, so it is computed outside the session lock.
	verdict := e.classifier.Classify(text)
	found := e.extractor.Extract(text)

	var (
		reply  Reply
		report *models.FinalReport
	)

	e.store.Mutate(sessionID, func(s *models.Session) {
		s.Messages = append(s.Messages, text)
		s.Extracted.Merge(found)

		count := s.MessageCount()
		reply = Reply{
			Text:         e.decoy.Reply(text, count),
			ScamDetected: verdict.IsScam,
			Verdict:      verdict,
			MessageCount: count,
		}

		if verdict.IsScam && count >= e.config.MinMessagesForReport && !s.CallbackSent {
			report = buildFinalReport(s)
			s.CallbackSent = true
			reply.ReportTriggered = true
		}
	})

	e.messages.Add(1)
	if verdict.IsScam {
		e.scams.Add(1)
	}

	log := e.logger.WithSession(sessionID)
	log.Debug().
		Bool("scam", verdict.IsScam).
		Int("messages", reply.MessageCount).
		Int("artifacts", found.Total()).
		Msg("message handled")

	if report != nil {
		e.reports.Add(1)
		if !e.dispatcher.Dispatch(report) {
			log.Warn().Msg("final report was not accepted for delivery")
		} else {
			log.Info().
				Int("messages", report.TotalMessagesExchanged).
				Msg("final report queued")
		}
	}

	return reply
}

// Session returns a read-only copy of the stored session
func (e *Engine) Session(sessionID string) (models.Session, error) {
	return e.store.Snapshot(sessionID)
}

// Stats returns handled-traffic counters
func (e *Engine) Stats() EngineStats {
	return EngineStats{
		MessagesHandled:  e.messages.Load(),
		ScamMessages:     e.scams.Load(),
		ReportsTriggered: e.reports.Load(),
		ActiveSessions:   e.store.Len(),
	}
}

// RunJanitor evicts sessions idle for longer than ttl every interval until ctx is done
func (e *Engine) RunJanitor(ctx context.Context, ttl, interval time.Duration) error {
	if ttl <= 0 || interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if n := e.store.EvictIdle(now.Add(-ttl)); n > 0 {
				e.logger.Info().Int("evicted", n).Msg("evicted idle sessions")
			}
		}
	}
}

// buildFinalReport deep-copies s; callers must hold the session lock
func buildFinalReport(s *models.Session) *models.FinalReport {
	intel := s.Extracted.Clone()
	return &models.FinalReport{
		SessionID:              s.ID,
		ScamDetected:           true,
		TotalMessagesExchanged: s.MessageCount(),
		ExtractedIntelligence:  intel,
		AgentNotes:             AgentNotes(intel),
	}
}

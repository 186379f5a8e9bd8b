package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"honeypot-lab/internal/domain/models"
	"honeypot-lab/pkg/logger"
)

// ReportLedger records which sessions have already been reported, across replicas.
// ClaimReport returns false when another process claimed the session first.
type ReportLedger interface {
	ClaimReport(ctx context.Context, sessionID string) (bool, error)
}

// DeliveryRecorder archives delivery outcomes
type DeliveryRecorder interface {
	RecordDelivery(ctx context.Context, rec *models.DeliveryRecord) error
}

// DeliveryPublisher announces delivery outcomes to other systems
type DeliveryPublisher interface {
	PublishDelivery(ctx context.Context, rec *models.DeliveryRecord) error
}

// DispatchHooks are optional collaborators of the dispatcher. Nil fields are skipped.
type DispatchHooks struct {
	Ledger    ReportLedger
	Recorder  DeliveryRecorder
	Publisher DeliveryPublisher
}

// CallbackDispatcherConfig contains configuration for the callback dispatcher
type CallbackDispatcherConfig struct {
	URL          string
	Secret       string
	Timeout      time.Duration
	Workers      int
	QueueSize    int
	MaxAttempts  int
	RetryBackoff time.Duration
}

// DefaultCallbackDispatcherConfig returns sensible defaults
func DefaultCallbackDispatcherConfig() *CallbackDispatcherConfig {
	return &CallbackDispatcherConfig{
		Timeout:      5 * time.Second,
		Workers:      2,
		QueueSize:    256,
		MaxAttempts:  1,
		RetryBackoff: 2 * time.Second,
	}
}

// DispatcherStats contains delivery counters
type DispatcherStats struct {
	Queued    int64 `json:"queued"`
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
	Skipped   int64 `json:"skipped"`
}

// reportJob is one queued report
type reportJob struct {
	id     uuid.UUID
	report *models.FinalReport
}

// CallbackDispatcher delivers final reports to the collector on dedicated
// worker goroutines. Failures are logged and never reach the caller.
type CallbackDispatcher struct {
	config     CallbackDispatcherConfig
	hooks      DispatchHooks
	queue      chan *reportJob
	httpClient *http.Client
	logger     *logger.Logger

	mu      sync.RWMutex
	stopped bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	queued    atomic.Int64
	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
	skipped   atomic.Int64
}

// NewCallbackDispatcher creates a dispatcher and starts its workers
func NewCallbackDispatcher(cfg *CallbackDispatcherConfig, hooks DispatchHooks, log *logger.Logger) *CallbackDispatcher {
	defaults := DefaultCallbackDispatcherConfig()
	if cfg == nil {
		cfg = defaults
	}
	c := *cfg
	if c.Timeout <= 0 {
		c.Timeout = defaults.Timeout
	}
	if c.Workers <= 0 {
		c.Workers = defaults.Workers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = defaults.QueueSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaults.MaxAttempts
	}

	d := &CallbackDispatcher{
		config: c,
		hooks:  hooks,
		queue:  make(chan *reportJob, c.QueueSize),
		httpClient: &http.Client{
			Timeout: c.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: log.WithComponent("callback-dispatcher"),
		stopCh: make(chan struct{}),
	}

	d.startWorkers()

	return d
}

func (d *CallbackDispatcher) startWorkers() {
	for i := 0; i < d.config.Workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.logger.Info().
		Int("workers", d.config.Workers).
		Str("url", d.config.URL).
		Msg("callback workers started")
}

func (d *CallbackDispatcher) worker(id int) {
	defer d.wg.Done()

	for {
		select {
		case <-d.stopCh:
			// Drain what was accepted before Stop
			for {
				select {
				case job := <-d.queue:
					d.deliver(job)
				default:
					d.logger.Debug().Int("worker", id).Msg("callback worker stopping")
					return
				}
			}
		case job := <-d.queue:
			d.deliver(job)
		}
	}
}

// Stop rejects new reports, delivers the queued ones and waits for the workers
func (d *CallbackDispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.stopCh)
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info().Msg("callback dispatcher stopped")
}

// Dispatch queues report for delivery without blocking. It returns false when
// the dispatcher is stopped or the queue is full; the report is then dropped.
func (d *CallbackDispatcher) Dispatch(report *models.FinalReport) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.dropped.Add(1)
		d.logger.Warn().Str("session_id", report.SessionID).Msg("dispatcher stopped, dropping report")
		return false
	}

	job := &reportJob{id: uuid.New(), report: report}

	select {
	case d.queue <- job:
		d.queued.Add(1)
		d.logger.Debug().
			Str("session_id", report.SessionID).
			Str("delivery_id", job.id.String()).
			Msg("report queued")
		return true
	default:
		d.dropped.Add(1)
		d.logger.Warn().
			Str("session_id", report.SessionID).
			Msg("callback queue full, dropping report")
		return false
	}
}

// Stats returns delivery counters
func (d *CallbackDispatcher) Stats() DispatcherStats {
	return DispatcherStats{
		Queued:    d.queued.Load(),
		Delivered: d.delivered.Load(),
		Failed:    d.failed.Load(),
		Dropped:   d.dropped.Load(),
		Skipped:   d.skipped.Load(),
	}
}

// deliver sends one report, retrying up to MaxAttempts
func (d *CallbackDispatcher) deliver(job *reportJob) {
	start := time.Now()
	rec := &models.DeliveryRecord{
		ID:        job.id,
		SessionID: job.report.SessionID,
		CreatedAt: start,
	}
	log := d.logger.With().
		Str("session_id", job.report.SessionID).
		Str("delivery_id", job.id.String()).
		Logger()

	payload, err := json.Marshal(job.report)
	if err != nil {
		rec.Status = models.DeliveryStatusFailed
		rec.Error = fmt.Sprintf("marshal report: %v", err)
		d.finish(rec, start)
		return
	}
	rec.Report = payload

	if d.hooks.Ledger != nil {
		claimed, err := d.claim(job.report.SessionID)
		if err != nil {
			log.Warn().Err(err).Msg("report ledger unavailable, delivering anyway")
		} else if !claimed {
			rec.Status = models.DeliveryStatusSkipped
			d.finish(rec, start)
			return
		}
	}

	for attempt := 1; attempt <= d.config.MaxAttempts; attempt++ {
		rec.Attempts = attempt
		status, err := d.post(payload, job.id, attempt)
		rec.StatusCode = status
		if err == nil {
			rec.Status = models.DeliveryStatusDelivered
			rec.Error = ""
			break
		}

		rec.Status = models.DeliveryStatusFailed
		rec.Error = err.Error()
		log.Warn().Err(err).Int("attempt", attempt).Msg("callback attempt failed")

		if attempt < d.config.MaxAttempts && !d.wait(d.config.RetryBackoff*time.Duration(attempt)) {
			break
		}
	}

	d.finish(rec, start)
}

func (d *CallbackDispatcher) claim(sessionID string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.config.Timeout)
	defer cancel()
	return d.hooks.Ledger.ClaimReport(ctx, sessionID)
}

// wait sleeps for delay and reports false if the dispatcher is stopping
func (d *CallbackDispatcher) wait(delay time.Duration) bool {
	if delay <= 0 {
		return true
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-d.stopCh:
		return false
	}
}

// post performs one HTTP delivery bounded by the configured timeout
func (d *CallbackDispatcher) post(payload []byte, deliveryID uuid.UUID, attempt int) (int, error) {
	if d.config.URL == "" {
		return 0, errors.New("no collector url configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.config.URL, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Honeypot-Callback/1.0")
	req.Header.Set("X-Delivery-ID", deliveryID.String())
	req.Header.Set("X-Delivery-Attempt", strconv.Itoa(attempt))
	if d.config.Secret != "" {
		req.Header.Set("X-Signature", "sha256="+signPayload(payload, d.config.Secret))
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("collector returned HTTP %d: %s", resp.StatusCode, string(body))
	}
	return resp.StatusCode, nil
}

// finish updates counters, logs the outcome and notifies the optional hooks
func (d *CallbackDispatcher) finish(rec *models.DeliveryRecord, start time.Time) {
	rec.Duration = time.Since(start)

	switch rec.Status {
	case models.DeliveryStatusDelivered:
		d.delivered.Add(1)
		d.logger.Info().
			Str("session_id", rec.SessionID).
			Int("status", rec.StatusCode).
			Int("attempts", rec.Attempts).
			Dur("duration", rec.Duration).
			Msg("final report delivered")
	case models.DeliveryStatusSkipped:
		d.skipped.Add(1)
		d.logger.Info().
			Str("session_id", rec.SessionID).
			Msg("final report already claimed elsewhere, skipping")
	default:
		d.failed.Add(1)
		d.logger.Error().
			Str("session_id", rec.SessionID).
			Int("attempts", rec.Attempts).
			Str("error", rec.Error).
			Msg("final report delivery failed")
	}

	if d.hooks.Recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), d.config.Timeout)
		if err := d.hooks.Recorder.RecordDelivery(ctx, rec); err != nil {
			d.logger.Warn().Err(err).Str("session_id", rec.SessionID).Msg("failed to archive delivery")
		}
		cancel()
	}

	if d.hooks.Publisher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), d.config.Timeout)
		if err := d.hooks.Publisher.PublishDelivery(ctx, rec); err != nil {
			d.logger.Warn().Err(err).Str("session_id", rec.SessionID).Msg("failed to publish delivery event")
		}
		cancel()
	}
}

// signPayload creates an HMAC signature for the payload
func signPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"honeypot-lab/internal/domain/models"
	"honeypot-lab/internal/infrastructure/database"
)

const reportSchema = `
	CREATE TABLE IF NOT EXISTS honeypot_reports (
		id          UUID PRIMARY KEY,
		session_id  TEXT NOT NULL,
		status      TEXT NOT NULL,
		attempts    INTEGER NOT NULL DEFAULT 0,
		status_code INTEGER,
		error       TEXT,
		report      JSONB NOT NULL,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		created_at  TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS honeypot_reports_session_idx ON honeypot_reports (session_id);
	CREATE INDEX IF NOT EXISTS honeypot_reports_created_idx ON honeypot_reports (created_at DESC);`

// ReportRepository archives final report deliveries
type ReportRepository struct {
	db database.DBTX
}

// NewReportRepository creates a new report repository
func NewReportRepository(db database.DBTX) *ReportRepository {
	return &ReportRepository{db: db}
}

// EnsureSchema creates the archive table if it does not exist
func (r *ReportRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, reportSchema); err != nil {
		return fmt.Errorf("failed to create report schema: %w", err)
	}
	return nil
}

// RecordDelivery inserts one delivery outcome
func (r *ReportRepository) RecordDelivery(ctx context.Context, rec *models.DeliveryRecord) error {
	query := `
		INSERT INTO honeypot_reports (
			id, session_id, status, attempts, status_code, error, report, duration_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	report := rec.Report
	if len(report) == 0 {
		report = []byte("{}")
	}

	_, err := r.db.Exec(ctx, query,
		rec.ID, rec.SessionID, string(rec.Status), rec.Attempts,
		intOrNull(rec.StatusCode), textOrNull(rec.Error), report,
		rec.Duration.Milliseconds(), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	return nil
}

// ReportFilter narrows Recent
type ReportFilter struct {
	SessionID string
	Status    models.DeliveryStatus
	Limit     int
}

// Recent returns the newest delivery records matching filter
func (r *ReportRepository) Recent(ctx context.Context, filter ReportFilter) ([]*models.DeliveryRecord, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 50
	}

	query := `
		SELECT id, session_id, status, attempts, COALESCE(status_code, 0), COALESCE(error, ''),
		       report, duration_ms, created_at
		FROM honeypot_reports
		WHERE ($1 = '' OR session_id = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, filter.SessionID, string(filter.Status), filter.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	records, err := pgx.CollectRows(rows, scanDeliveryRecord)
	if err != nil {
		return nil, fmt.Errorf("failed to scan reports: %w", err)
	}
	return records, nil
}

func scanDeliveryRecord(row pgx.CollectableRow) (*models.DeliveryRecord, error) {
	var (
		rec        models.DeliveryRecord
		status     string
		durationMs int64
	)
	err := row.Scan(
		&rec.ID, &rec.SessionID, &status, &rec.Attempts, &rec.StatusCode, &rec.Error,
		&rec.Report, &durationMs, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Status = models.DeliveryStatus(status)
	rec.Duration = time.Duration(durationMs) * time.Millisecond
	return &rec, nil
}

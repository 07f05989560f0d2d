package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/DamionHane/FHEReporting/internal/models"
)

// ReportRepository handles report database operations.
type ReportRepository struct {
	db *sql.DB
}

// NewReportRepository creates a new report repository.
func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// CreateReport inserts a new report. The sequence assigns ids starting at 1;
// ids are never reused.
func (r *ReportRepository) CreateReport(ctx context.Context, report *models.Report) error {
	query := `
		INSERT INTO reports (
			status, submitted_at,
			sealed_reporter, sealed_category, sealed_timestamp, sealed_anonymity, sealed_severity,
			obfuscated_severity, callback_completed, revealed_severity, refund_claimed, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		report.Status,
		report.SubmittedAt,
		report.SealedReporter,
		report.SealedCategory,
		report.SealedTimestamp,
		report.SealedAnonymity,
		report.SealedSeverity,
		report.ObfuscatedSeverity,
		report.CallbackCompleted,
		report.RevealedSeverity,
		report.RefundClaimed,
		report.UpdatedAt,
	).Scan(&report.ID)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}

	return nil
}

const reportColumns = `
	id, status, submitted_at,
	sealed_reporter, sealed_category, sealed_timestamp, sealed_anonymity, sealed_severity,
	obfuscated_severity, investigator,
	decryption_request_id, decryption_requested_at, decryption_deadline,
	callback_completed, revealed_severity, refund_claimed, updated_at
`

func scanReport(row interface{ Scan(...any) error }) (*models.Report, error) {
	report := &models.Report{}
	err := row.Scan(
		&report.ID,
		&report.Status,
		&report.SubmittedAt,
		&report.SealedReporter,
		&report.SealedCategory,
		&report.SealedTimestamp,
		&report.SealedAnonymity,
		&report.SealedSeverity,
		&report.ObfuscatedSeverity,
		&report.Investigator,
		&report.DecryptionRequestID,
		&report.DecryptionRequestedAt,
		&report.DecryptionDeadline,
		&report.CallbackCompleted,
		&report.RevealedSeverity,
		&report.RefundClaimed,
		&report.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return report, nil
}

// GetReport retrieves a report by id. Returns nil when unknown.
func (r *ReportRepository) GetReport(ctx context.Context, id int64) (*models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`

	report, err := scanReport(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return report, nil
}

// UpdateReport persists all mutable report fields.
func (r *ReportRepository) UpdateReport(ctx context.Context, report *models.Report) error {
	query := `
		UPDATE reports
		SET status = $1, investigator = $2,
		    decryption_request_id = $3, decryption_requested_at = $4, decryption_deadline = $5,
		    callback_completed = $6, revealed_severity = $7, refund_claimed = $8, updated_at = $9
		WHERE id = $10
	`

	result, err := r.db.ExecContext(ctx, query,
		report.Status,
		report.Investigator,
		report.DecryptionRequestID,
		report.DecryptionRequestedAt,
		report.DecryptionDeadline,
		report.CallbackCompleted,
		report.RevealedSeverity,
		report.RefundClaimed,
		report.UpdatedAt,
		report.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update report: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("report %d not found for update", report.ID)
	}

	return nil
}

// CountReports returns the total number of reports.
func (r *ReportRepository) CountReports(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reports`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return count, nil
}

// Stats aggregates report counts by status in one query.
func (r *ReportRepository) Stats(ctx context.Context) (*models.ReportStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status = $2)
		FROM reports
	`

	stats := &models.ReportStats{}
	err := r.db.QueryRowContext(ctx, query, models.StatusResolved, models.StatusRefunded).
		Scan(&stats.Total, &stats.Resolved, &stats.Refunded)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate report stats: %w", err)
	}

	stats.Pending = stats.Total - stats.Resolved - stats.Refunded
	return stats, nil
}

// ListByStatus returns all reports in the given status.
func (r *ReportRepository) ListByStatus(ctx context.Context, status models.ReportStatus) ([]models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE status = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []models.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, *report)
	}
	return reports, rows.Err()
}

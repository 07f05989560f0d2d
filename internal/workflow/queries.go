package workflow

import (
	"context"
	"fmt"

	"github.com/DamionHane/FHEReporting/internal/models"
)

// GetBasicInfo returns the public projection of a report.
func (s *Service) GetBasicInfo(ctx context.Context, reportID int64) (*models.BasicInfo, error) {
	report, err := s.getReport(ctx, reportID)
	if err != nil {
		return nil, err
	}

	info := &models.BasicInfo{
		ReportID:           report.ID,
		Exists:             true,
		Status:             report.Status,
		SubmittedAt:        report.SubmittedAt,
		CallbackCompleted:  report.CallbackCompleted,
		RevealedSeverity:   report.RevealedSeverity,
		ObfuscatedSeverity: report.ObfuscatedSeverity,
	}
	if report.Investigator != nil {
		info.Investigator = *report.Investigator
	}
	return info, nil
}

// GetInvestigationInfo returns the investigation record for a report. Notes
// are visible only to the authority and the assigned investigator; other
// callers receive the record with the notes stripped.
func (s *Service) GetInvestigationInfo(ctx context.Context, caller string, reportID int64) (*models.Investigation, error) {
	report, err := s.getReport(ctx, reportID)
	if err != nil {
		return nil, err
	}

	inv, err := s.investigations.GetByReportID(ctx, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to load investigation: %w", err)
	}
	if inv == nil {
		return nil, fmt.Errorf("%w: report %d has no investigation", ErrReportNotFound, reportID)
	}

	if err := s.requireCaseAccess(ctx, caller, report); err != nil {
		redacted := *inv
		redacted.Notes = ""
		return &redacted, nil
	}
	return inv, nil
}

// GetDecryptionStatus returns the oracle-exchange projection for a report.
func (s *Service) GetDecryptionStatus(ctx context.Context, reportID int64) (*models.DecryptionStatus, error) {
	report, err := s.getReport(ctx, reportID)
	if err != nil {
		return nil, err
	}

	status := &models.DecryptionStatus{
		ReportID:  report.ID,
		Completed: report.CallbackCompleted,
	}
	if report.DecryptionRequestID != nil {
		status.RequestID = *report.DecryptionRequestID
		status.RequestedAt = report.DecryptionRequestedAt
		status.Deadline = report.DecryptionDeadline
		status.InFlight = report.Status == models.StatusDecryptionPending && !report.CallbackCompleted
	}
	return status, nil
}

// GetStats returns the aggregate counts. pending = total - resolved - refunded.
func (s *Service) GetStats(ctx context.Context) (*models.ReportStats, error) {
	stats, err := s.reports.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	return stats, nil
}

// GetInvestigatorReports lists the report ids in an investigator's portfolio.
func (s *Service) GetInvestigatorReports(ctx context.Context, investigator string) ([]int64, error) {
	ids, err := s.investigations.ListReportsByInvestigator(ctx, investigator)
	if err != nil {
		return nil, fmt.Errorf("failed to list investigator reports: %w", err)
	}
	return ids, nil
}

// AuditTrail returns recorded events, oldest first. Reading the trail
// exposes actors and assignments, so only the authority may call it.
func (s *Service) AuditTrail(ctx context.Context, caller string, limit, offset int) ([]models.AuditLog, error) {
	if err := s.requireAuthority(ctx, caller); err != nil {
		return nil, err
	}

	logs, err := s.audit.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	return logs, nil
}

// NoteCount returns the number of note lines recorded on an investigation.
func NoteCount(inv *models.Investigation) int {
	if inv == nil {
		return 0
	}
	return summarizeNotes(inv.Notes)
}

package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DamionHane/FHEReporting/internal/models"
)

// ClaimDecryptionTimeoutRefund terminates a report whose decryption window
// elapsed without a callback. Any caller may invoke it; the preconditions,
// not the caller identity, gate the effect. Succeeds at most once per report.
func (s *Service) ClaimDecryptionTimeoutRefund(ctx context.Context, caller string, reportID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.getReport(ctx, reportID)
	if err != nil {
		return err
	}
	if report.Status != models.StatusDecryptionPending {
		return fmt.Errorf("%w: report %d is %s, expected %s",
			ErrInvalidState, reportID, report.Status, models.StatusDecryptionPending)
	}
	if report.RefundClaimed {
		return fmt.Errorf("%w: refund already claimed for report %d", ErrInvalidState, reportID)
	}

	now := s.clock.Now()
	if report.DecryptionDeadline == nil || !now.After(*report.DecryptionDeadline) {
		return fmt.Errorf("%w: decryption deadline for report %d not passed", ErrDeadlineNotReached, reportID)
	}

	if err := s.refund(ctx, report, now); err != nil {
		return err
	}

	s.record(ctx, caller, models.EventRefundIssued, &reportID,
		fmt.Sprintf("decryption timeout refund issued for report %d", reportID))
	slog.Info("Refund issued", "report_id", reportID, "reason", "decryption_timeout")

	return nil
}

// ClaimInvestigationTimeoutRefund terminates a report whose investigation
// deadline elapsed. Same terminal effects as the decryption refund, plus the
// investigation-timeout entry.
func (s *Service) ClaimInvestigationTimeoutRefund(ctx context.Context, caller string, reportID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.getReport(ctx, reportID)
	if err != nil {
		return err
	}
	inv, err := s.investigations.GetByReportID(ctx, reportID)
	if err != nil {
		return fmt.Errorf("failed to load investigation: %w", err)
	}
	if inv == nil || !inv.Active {
		return fmt.Errorf("%w: report %d has no active investigation", ErrInvalidState, reportID)
	}
	if report.RefundClaimed {
		return fmt.Errorf("%w: refund already claimed for report %d", ErrInvalidState, reportID)
	}

	now := s.clock.Now()
	if !now.After(inv.Deadline) {
		return fmt.Errorf("%w: investigation deadline for report %d not passed", ErrDeadlineNotReached, reportID)
	}

	if err := s.refund(ctx, report, now); err != nil {
		return err
	}

	s.record(ctx, caller, models.EventInvestigationTimeout, &reportID,
		fmt.Sprintf("investigation for report %d timed out at %s", reportID, inv.Deadline.Format(time.RFC3339)))
	s.record(ctx, caller, models.EventRefundIssued, &reportID,
		fmt.Sprintf("investigation timeout refund issued for report %d", reportID))
	slog.Info("Refund issued", "report_id", reportID, "reason", "investigation_timeout")

	return nil
}

// refund applies the shared terminal effects: mark the refund claimed, set
// the terminal status, deactivate the investigation if one is active.
func (s *Service) refund(ctx context.Context, report *models.Report, now time.Time) error {
	report.RefundClaimed = true
	report.Status = models.StatusRefunded
	report.UpdatedAt = now
	if err := s.reports.UpdateReport(ctx, report); err != nil {
		return fmt.Errorf("failed to update report: %w", err)
	}
	return s.deactivateInvestigation(ctx, report.ID, now)
}

// SweepExpiredRefunds claims every refund whose deadline has passed, acting
// as the given actor. Reports claimed concurrently by another caller are
// skipped. Returns the number of refunds issued.
func (s *Service) SweepExpiredRefunds(ctx context.Context, actor string) (int, error) {
	now := s.clock.Now()
	claimed := 0

	pending, err := s.reports.ListByStatus(ctx, models.StatusDecryptionPending)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending reports: %w", err)
	}
	for _, report := range pending {
		if report.RefundClaimed || report.DecryptionDeadline == nil || !now.After(*report.DecryptionDeadline) {
			continue
		}
		if err := s.ClaimDecryptionTimeoutRefund(ctx, actor, report.ID); err != nil {
			slog.Warn("Refund sweep skipped report", "report_id", report.ID, "error", err)
			continue
		}
		claimed++
	}

	active, err := s.investigations.ListActive(ctx)
	if err != nil {
		return claimed, fmt.Errorf("failed to list active investigations: %w", err)
	}
	for _, inv := range active {
		if !now.After(inv.Deadline) {
			continue
		}
		if err := s.ClaimInvestigationTimeoutRefund(ctx, actor, inv.ReportID); err != nil {
			slog.Warn("Refund sweep skipped report", "report_id", inv.ReportID, "error", err)
			continue
		}
		claimed++
	}

	return claimed, nil
}

// IsRefundAvailable reports whether either timeout track has elapsed for a
// report whose refund is still unclaimed. Pure predicate, no side effects.
func (s *Service) IsRefundAvailable(ctx context.Context, reportID int64) (bool, error) {
	report, err := s.getReport(ctx, reportID)
	if err != nil {
		return false, err
	}
	if report.RefundClaimed || report.Status.IsTerminal() {
		return false, nil
	}

	now := s.clock.Now()
	if report.Status == models.StatusDecryptionPending &&
		report.DecryptionDeadline != nil && now.After(*report.DecryptionDeadline) {
		return true, nil
	}

	inv, err := s.investigations.GetByReportID(ctx, reportID)
	if err != nil {
		return false, fmt.Errorf("failed to load investigation: %w", err)
	}
	if inv != nil && inv.Active && now.After(inv.Deadline) {
		return true, nil
	}

	return false, nil
}

package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/DamionHane/FHEReporting/internal/models"
)

// RequestDecryption packages the sealed category, severity, and timestamp
// into one opaque request and dispatches it to the external oracle. Caller
// must be the authority or the assigned investigator, the report must be
// under an unexpired investigation, and no decryption may already be in
// flight. Returns the request id and the decryption deadline.
func (s *Service) RequestDecryption(ctx context.Context, caller string, reportID int64) (string, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.getReport(ctx, reportID)
	if err != nil {
		return "", time.Time{}, err
	}
	if err := s.requireCaseAccess(ctx, caller, report); err != nil {
		return "", time.Time{}, err
	}

	if report.Status != models.StatusUnderInvestigation {
		return "", time.Time{}, fmt.Errorf("%w: report %d is %s, expected %s",
			ErrInvalidState, reportID, report.Status, models.StatusUnderInvestigation)
	}
	if report.DecryptionRequestID != nil {
		return "", time.Time{}, fmt.Errorf("%w: decryption already in flight for report %d",
			ErrInvalidState, reportID)
	}

	inv, err := s.investigations.GetByReportID(ctx, reportID)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to load investigation: %w", err)
	}
	if inv == nil {
		return "", time.Time{}, fmt.Errorf("%w: report %d has no investigation", ErrInvalidState, reportID)
	}

	now := s.clock.Now()
	if now.After(inv.Deadline) {
		return "", time.Time{}, fmt.Errorf("%w: investigation for report %d expired at %s",
			ErrInvalidState, reportID, inv.Deadline.Format(time.RFC3339))
	}

	boxes := make(map[string][]byte, 3)
	for kind, handleID := range map[string]string{
		SealedKindCategory:  report.SealedCategory,
		SealedKindSeverity:  report.SealedSeverity,
		SealedKindTimestamp: report.SealedTimestamp,
	} {
		sealed, err := s.sealer.Handle(ctx, handleID)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("failed to load sealed %s: %w", kind, err)
		}
		boxes[kind] = sealed.Ciphertext
	}

	requestID := uuid.NewString()
	deadline := now.Add(s.cfg.DecryptionWindow)
	oracleReq := &models.OracleRequest{
		RequestID:       requestID,
		ReportID:        reportID,
		SealedCategory:  boxes[SealedKindCategory],
		SealedSeverity:  boxes[SealedKindSeverity],
		SealedTimestamp: boxes[SealedKindTimestamp],
		RequestedAt:     now,
		Deadline:        deadline,
	}

	// Dispatch before recording: a failed handoff must leave no state behind.
	if err := s.dispatcher.Dispatch(ctx, oracleReq); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to dispatch decryption request: %w", err)
	}

	if err := s.requests.CreateRequest(ctx, &models.DecryptionRequest{
		ID:          requestID,
		ReportID:    reportID,
		RequestedAt: now,
	}); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to record decryption request: %w", err)
	}

	report.DecryptionRequestID = &requestID
	report.DecryptionRequestedAt = &now
	report.DecryptionDeadline = &deadline
	report.Status = models.StatusDecryptionPending
	report.UpdatedAt = now
	if err := s.reports.UpdateReport(ctx, report); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to update report: %w", err)
	}

	s.record(ctx, caller, models.EventDecryptionRequested, &reportID,
		fmt.Sprintf("decryption requested for report %d, request %s, deadline %s",
			reportID, requestID, deadline.Format(time.RFC3339)))
	slog.Info("Decryption requested", "report_id", reportID, "request_id", requestID, "deadline", deadline)

	return requestID, deadline, nil
}

// HandleCallback applies a verified oracle result. Callable by anyone: the
// proof, not the caller, is what authorizes the write. An invalid proof fails
// closed with no state change. The report auto-resolves iff the revealed
// severity reaches the threshold; otherwise it stays DECRYPTION_PENDING
// awaiting a manual UpdateStatus.
func (s *Service) HandleCallback(ctx context.Context, requestID string, values models.ClearValues, proof []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.verifier.Verify(requestID, values, proof); err != nil {
		return err
	}

	req, err := s.requests.GetRequest(ctx, requestID)
	if err != nil {
		return fmt.Errorf("failed to load decryption request: %w", err)
	}
	if req == nil {
		return fmt.Errorf("%w: unknown request %s", ErrReportNotFound, requestID)
	}
	if req.Completed {
		return fmt.Errorf("%w: request %s already completed", ErrInvalidState, requestID)
	}

	report, err := s.getReport(ctx, req.ReportID)
	if err != nil {
		return err
	}
	if report.Status != models.StatusDecryptionPending ||
		report.DecryptionRequestID == nil || *report.DecryptionRequestID != requestID {
		return fmt.Errorf("%w: report %d no longer awaits request %s",
			ErrInvalidState, req.ReportID, requestID)
	}

	now := s.clock.Now()
	req.Completed = true
	if err := s.requests.UpdateRequest(ctx, req); err != nil {
		return fmt.Errorf("failed to complete decryption request: %w", err)
	}

	report.RevealedSeverity = values.Severity
	report.CallbackCompleted = true
	report.UpdatedAt = now

	autoResolved := values.Severity >= s.cfg.AutoResolveThreshold
	if autoResolved {
		report.Status = models.StatusResolved
	}
	if err := s.reports.UpdateReport(ctx, report); err != nil {
		return fmt.Errorf("failed to update report: %w", err)
	}
	if autoResolved {
		if err := s.deactivateInvestigation(ctx, report.ID, now); err != nil {
			return err
		}
	}

	outcome := "awaiting manual resolution"
	if autoResolved {
		outcome = "auto-resolved"
	}
	s.record(ctx, "oracle", models.EventDecryptionCompleted, &report.ID,
		fmt.Sprintf("decryption completed for report %d, revealed severity %d, %s",
			report.ID, values.Severity, outcome))
	slog.Info("Decryption completed",
		"report_id", report.ID, "request_id", requestID,
		"revealed_severity", values.Severity, "auto_resolved", autoResolved)

	return nil
}

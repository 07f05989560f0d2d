package workflow

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/DamionHane/FHEReporting/internal/models"
	"github.com/DamionHane/FHEReporting/internal/privacy"
)

// Sealed field kinds. The kind doubles as the AEAD associated data.
const (
	SealedKindReporter  = "reporter"
	SealedKindCategory  = "category"
	SealedKindTimestamp = "timestamp"
	SealedKindAnonymity = "anonymity"
	SealedKindSeverity  = "severity"
)

const (
	// MaxCategory is the highest valid report category.
	MaxCategory = 5
	// MinSeverity and MaxSeverity bound the raw severity scale.
	MinSeverity = 1
	MaxSeverity = 100
)

// Config holds the workflow policy knobs.
type Config struct {
	// InvestigationWindow is the deadline applied at assignment (reference: 90 days).
	InvestigationWindow time.Duration
	// DecryptionWindow is the deadline applied at decryption dispatch (reference: 7 days).
	DecryptionWindow time.Duration
	// AutoResolveThreshold is the revealed severity at or above which a
	// completed callback resolves the report automatically.
	AutoResolveThreshold uint8
	// NotesCostUnit is added to the investigation cost counter per notes update.
	NotesCostUnit int64
}

// Service owns the report/investigation state machine. Every mutating
// operation runs under one mutex so mutations apply as indivisible,
// sequentially ordered transactions; the only asynchronous boundary is the
// oracle round trip between RequestDecryption and HandleCallback.
type Service struct {
	mu sync.Mutex

	reports        ReportStore
	investigations InvestigationStore
	requests       RequestStore
	roster         RosterStore
	audit          AuditStore
	sealer         Sealer
	dispatcher     OracleDispatcher
	verifier       ProofVerifier
	obfuscator     *privacy.Obfuscator
	clock          Clock
	cfg            Config
}

// NewService creates the workflow service.
func NewService(
	reports ReportStore,
	investigations InvestigationStore,
	requests RequestStore,
	roster RosterStore,
	audit AuditStore,
	sealer Sealer,
	dispatcher OracleDispatcher,
	verifier ProofVerifier,
	clock Clock,
	cfg Config,
) *Service {
	return &Service{
		reports:        reports,
		investigations: investigations,
		requests:       requests,
		roster:         roster,
		audit:          audit,
		sealer:         sealer,
		dispatcher:     dispatcher,
		verifier:       verifier,
		obfuscator:     privacy.NewObfuscator(),
		clock:          clock,
		cfg:            cfg,
	}
}

// Submit validates, seals, and registers a new report. Only the obfuscated
// severity ever leaves this function in clear.
func (s *Service) Submit(ctx context.Context, caller string, category uint8, anonymous bool, severity uint8) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if category > MaxCategory {
		return 0, fmt.Errorf("%w: category %d out of range [0,%d]", ErrInvalidInput, category, MaxCategory)
	}
	if severity < MinSeverity || severity > MaxSeverity {
		return 0, fmt.Errorf("%w: severity %d out of range [%d,%d]", ErrInvalidInput, severity, MinSeverity, MaxSeverity)
	}

	authority, err := s.roster.Authority(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load authority: %w", err)
	}

	now := s.clock.Now()
	submissions, err := s.reports.CountReports(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}

	multiplier := s.obfuscator.Multiplier(uint64(submissions), caller, now)
	obfuscated := privacy.Obfuscate(severity, multiplier)

	report := &models.Report{
		Status:             models.StatusSubmitted,
		SubmittedAt:        now,
		ObfuscatedSeverity: obfuscated,
		UpdatedAt:          now,
	}

	sealedFields := []struct {
		kind  string
		value []byte
		dest  *string
	}{
		{SealedKindReporter, []byte(caller), &report.SealedReporter},
		{SealedKindCategory, []byte{category}, &report.SealedCategory},
		{SealedKindTimestamp, encodeInt64(now.Unix()), &report.SealedTimestamp},
		{SealedKindAnonymity, encodeBool(anonymous), &report.SealedAnonymity},
		{SealedKindSeverity, []byte{severity}, &report.SealedSeverity},
	}
	for _, field := range sealedFields {
		sealed, err := s.sealer.Seal(ctx, field.kind, field.value)
		if err != nil {
			return 0, fmt.Errorf("failed to seal %s: %w", field.kind, err)
		}
		if err := s.sealer.GrantAccess(ctx, sealed.ID, authority); err != nil {
			return 0, fmt.Errorf("failed to grant authority access to %s: %w", field.kind, err)
		}
		*field.dest = sealed.ID
	}

	if err := s.reports.CreateReport(ctx, report); err != nil {
		return 0, fmt.Errorf("failed to create report: %w", err)
	}

	s.record(ctx, caller, models.EventReportSubmitted, &report.ID,
		fmt.Sprintf("report %d submitted, obfuscated severity %d", report.ID, obfuscated))
	slog.Info("Report submitted", "report_id", report.ID, "obfuscated_severity", obfuscated)

	return report.ID, nil
}

// Assign puts a report under investigation by an authorized investigator.
// Caller must be the authority.
func (s *Service) Assign(ctx context.Context, caller string, reportID int64, investigator string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAuthority(ctx, caller); err != nil {
		return err
	}
	if investigator == "" {
		return fmt.Errorf("%w: investigator address is null", ErrInvalidInput)
	}
	authorized, err := s.roster.IsInvestigator(ctx, investigator)
	if err != nil {
		return fmt.Errorf("failed to check investigator: %w", err)
	}
	if !authorized {
		return fmt.Errorf("%w: %s is not an authorized investigator", ErrInvalidInput, investigator)
	}

	report, err := s.getReport(ctx, reportID)
	if err != nil {
		return err
	}
	if report.Status != models.StatusSubmitted {
		return fmt.Errorf("%w: report %d is %s, expected %s",
			ErrInvalidState, reportID, report.Status, models.StatusSubmitted)
	}

	now := s.clock.Now()
	inv := &models.Investigation{
		ReportID:     reportID,
		Investigator: investigator,
		StartedAt:    now,
		UpdatedAt:    now,
		Deadline:     now.Add(s.cfg.InvestigationWindow),
		Active:       true,
	}
	if err := s.investigations.CreateInvestigation(ctx, inv); err != nil {
		return fmt.Errorf("failed to create investigation: %w", err)
	}

	report.Investigator = &investigator
	report.Status = models.StatusUnderInvestigation
	report.UpdatedAt = now
	if err := s.reports.UpdateReport(ctx, report); err != nil {
		return fmt.Errorf("failed to update report: %w", err)
	}

	// The investigator may read the case facts but never the reporter identity
	// or the anonymity flag.
	for _, handle := range []string{report.SealedCategory, report.SealedTimestamp, report.SealedSeverity} {
		if err := s.sealer.GrantAccess(ctx, handle, investigator); err != nil {
			return fmt.Errorf("failed to grant investigator access: %w", err)
		}
	}

	s.record(ctx, caller, models.EventReportAssigned, &reportID,
		fmt.Sprintf("report %d assigned to %s, deadline %s", reportID, investigator, inv.Deadline.Format(time.RFC3339)))
	slog.Info("Report assigned", "report_id", reportID, "investigator", investigator, "deadline", inv.Deadline)

	return nil
}

// AddNotes appends free-text notes to the investigation. Caller must be the
// authority or the assigned investigator.
func (s *Service) AddNotes(ctx context.Context, caller string, reportID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.getReport(ctx, reportID)
	if err != nil {
		return err
	}
	if err := s.requireCaseAccess(ctx, caller, report); err != nil {
		return err
	}

	inv, err := s.investigations.GetByReportID(ctx, reportID)
	if err != nil {
		return fmt.Errorf("failed to load investigation: %w", err)
	}
	if inv == nil {
		return fmt.Errorf("%w: report %d has no investigation", ErrInvalidState, reportID)
	}

	now := s.clock.Now()
	if inv.Notes == "" {
		inv.Notes = text
	} else {
		inv.Notes = inv.Notes + "\n" + text
	}
	inv.UpdatedAt = now
	inv.CostUnits += s.cfg.NotesCostUnit
	if err := s.investigations.UpdateInvestigation(ctx, inv); err != nil {
		return fmt.Errorf("failed to update investigation: %w", err)
	}

	s.record(ctx, caller, models.EventNotesUpdated, &reportID,
		fmt.Sprintf("notes updated on report %d", reportID))

	return nil
}

// UpdateStatus applies a manual status transition. Caller must be the
// authority or the assigned investigator. Manual transitions may only enter
// RESOLVED or DISMISSED, and only along the status graph; REFUNDED belongs to
// the refund entry points.
func (s *Service) UpdateStatus(ctx context.Context, caller string, reportID int64, newStatus models.ReportStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !newStatus.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, newStatus)
	}

	report, err := s.getReport(ctx, reportID)
	if err != nil {
		return err
	}
	if err := s.requireCaseAccess(ctx, caller, report); err != nil {
		return err
	}

	if newStatus != models.StatusResolved && newStatus != models.StatusDismissed {
		return fmt.Errorf("%w: status %s cannot be set manually", ErrInvalidState, newStatus)
	}
	if err := validateTransition(report.Status, newStatus); err != nil {
		return err
	}

	oldStatus := report.Status
	now := s.clock.Now()
	report.Status = newStatus
	report.UpdatedAt = now
	if err := s.reports.UpdateReport(ctx, report); err != nil {
		return fmt.Errorf("failed to update report: %w", err)
	}

	if err := s.deactivateInvestigation(ctx, reportID, now); err != nil {
		return err
	}

	s.record(ctx, caller, models.EventReportStatusChanged, &reportID,
		fmt.Sprintf("report %d status changed: %s -> %s", reportID, oldStatus, newStatus))
	slog.Info("Report status changed", "report_id", reportID, "from", oldStatus, "to", newStatus)

	return nil
}

// transitions is the status graph. REFUNDED edges exist in the graph but are
// reachable only through the refund entry points.
var transitions = map[models.ReportStatus][]models.ReportStatus{
	models.StatusSubmitted:          {models.StatusUnderInvestigation},
	models.StatusUnderInvestigation: {models.StatusDecryptionPending, models.StatusRefunded},
	models.StatusDecryptionPending:  {models.StatusResolved, models.StatusDismissed, models.StatusRefunded},
	models.StatusResolved:           {},
	models.StatusDismissed:          {},
	models.StatusRefunded:           {},
}

func validateTransition(from, to models.ReportStatus) error {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidState, from, to)
}

// requireAuthority fails unless caller is the current authority.
func (s *Service) requireAuthority(ctx context.Context, caller string) error {
	authority, err := s.roster.Authority(ctx)
	if err != nil {
		return fmt.Errorf("failed to load authority: %w", err)
	}
	if caller == "" || caller != authority {
		return fmt.Errorf("%w: caller is not the authority", ErrUnauthorized)
	}
	return nil
}

// requireCaseAccess fails unless caller is the authority or the investigator
// assigned to the report.
func (s *Service) requireCaseAccess(ctx context.Context, caller string, report *models.Report) error {
	authority, err := s.roster.Authority(ctx)
	if err != nil {
		return fmt.Errorf("failed to load authority: %w", err)
	}
	if caller != "" && caller == authority {
		return nil
	}
	if report.Investigator != nil && caller != "" && caller == *report.Investigator {
		return nil
	}
	return fmt.Errorf("%w: caller is neither authority nor assigned investigator", ErrUnauthorized)
}

func (s *Service) getReport(ctx context.Context, id int64) (*models.Report, error) {
	report, err := s.reports.GetReport(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	if report == nil {
		return nil, fmt.Errorf("%w: id %d", ErrReportNotFound, id)
	}
	return report, nil
}

// deactivateInvestigation closes the investigation for a report if one is
// still active.
func (s *Service) deactivateInvestigation(ctx context.Context, reportID int64, now time.Time) error {
	inv, err := s.investigations.GetByReportID(ctx, reportID)
	if err != nil {
		return fmt.Errorf("failed to load investigation: %w", err)
	}
	if inv == nil || !inv.Active {
		return nil
	}
	inv.Active = false
	inv.UpdatedAt = now
	if err := s.investigations.UpdateInvestigation(ctx, inv); err != nil {
		return fmt.Errorf("failed to deactivate investigation: %w", err)
	}
	return nil
}

// record appends an audit entry. Audit failures are logged, never fatal to
// the operation that already applied.
func (s *Service) record(ctx context.Context, actor, event string, reportID *int64, details string) {
	entry := &models.AuditLog{
		Actor:     actor,
		Event:     event,
		ReportID:  reportID,
		Details:   details,
		CreatedAt: s.clock.Now(),
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		slog.Error("Failed to append audit entry", "event", event, "error", err)
	}
}

func encodeInt64(v int64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	return buf[:]
}

func encodeBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

// DecodeTimestamp is the inverse of the sealed timestamp encoding.
func DecodeTimestamp(raw []byte) (int64, error) {
	if len(raw) != 8 {
		return 0, fmt.Errorf("timestamp payload must be 8 bytes, got %d", len(raw))
	}
	return int64(binary.BigEndian.Uint64(raw)), nil
}

func summarizeNotes(notes string) int {
	if notes == "" {
		return 0
	}
	return len(strings.Split(notes, "\n"))
}

package models

import (
	"time"
)

// ReportStatus is the lifecycle state of a report.
type ReportStatus string

const (
	StatusSubmitted          ReportStatus = "SUBMITTED"
	StatusUnderInvestigation ReportStatus = "UNDER_INVESTIGATION"
	StatusDecryptionPending  ReportStatus = "DECRYPTION_PENDING"
	StatusResolved           ReportStatus = "RESOLVED"
	StatusDismissed          ReportStatus = "DISMISSED"
	StatusRefunded           ReportStatus = "REFUNDED"
)

// IsTerminal reports whether no further status transition is possible.
func (s ReportStatus) IsTerminal() bool {
	return s == StatusResolved || s == StatusDismissed || s == StatusRefunded
}

// IsValid reports whether s is one of the known statuses.
func (s ReportStatus) IsValid() bool {
	switch s {
	case StatusSubmitted, StatusUnderInvestigation, StatusDecryptionPending,
		StatusResolved, StatusDismissed, StatusRefunded:
		return true
	}
	return false
}

// Report represents one submitted case record. The sensitive fields are stored
// as sealed-value handles; only the obfuscated severity is ever public.
type Report struct {
	ID          int64        `json:"id" db:"id"`
	Status      ReportStatus `json:"status" db:"status"`
	SubmittedAt time.Time    `json:"submitted_at" db:"submitted_at"`

	SealedReporter  string `json:"-" db:"sealed_reporter"`
	SealedCategory  string `json:"-" db:"sealed_category"`
	SealedTimestamp string `json:"-" db:"sealed_timestamp"`
	SealedAnonymity string `json:"-" db:"sealed_anonymity"`
	SealedSeverity  string `json:"-" db:"sealed_severity"`

	ObfuscatedSeverity uint32 `json:"obfuscated_severity" db:"obfuscated_severity"`

	Investigator *string `json:"investigator,omitempty" db:"investigator"`

	DecryptionRequestID   *string    `json:"decryption_request_id,omitempty" db:"decryption_request_id"`
	DecryptionRequestedAt *time.Time `json:"decryption_requested_at,omitempty" db:"decryption_requested_at"`
	DecryptionDeadline    *time.Time `json:"decryption_deadline,omitempty" db:"decryption_deadline"`
	CallbackCompleted     bool       `json:"callback_completed" db:"callback_completed"`
	RevealedSeverity      uint8      `json:"revealed_severity" db:"revealed_severity"`

	RefundClaimed bool      `json:"refund_claimed" db:"refund_claimed"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Investigation is the mutable workflow record tracking an assigned report.
// Created on assignment, deactivated on resolution, dismissal, or refund,
// never deleted.
type Investigation struct {
	ID           int64     `json:"id" db:"id"`
	ReportID     int64     `json:"report_id" db:"report_id"`
	Investigator string    `json:"investigator" db:"investigator"`
	StartedAt    time.Time `json:"started_at" db:"started_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
	Deadline     time.Time `json:"deadline" db:"deadline"`
	Active       bool      `json:"active" db:"active"`
	Notes        string    `json:"notes,omitempty" db:"notes"`
	CostUnits    int64     `json:"cost_units" db:"cost_units"`
}

// SealedValue is an opaque, access-controlled datum readable only by granted
// principals. The ciphertext is an AEAD box over the original value.
type SealedValue struct {
	ID         string    `json:"id" db:"id"`
	Kind       string    `json:"kind" db:"kind"`
	Ciphertext []byte    `json:"-" db:"ciphertext"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// DecryptionRequest indexes an in-flight oracle exchange by request id.
type DecryptionRequest struct {
	ID          string    `json:"id" db:"id"`
	ReportID    int64     `json:"report_id" db:"report_id"`
	RequestedAt time.Time `json:"requested_at" db:"requested_at"`
	Completed   bool      `json:"completed" db:"completed"`
}

// ClearValues is the decoded result of an oracle decryption.
type ClearValues struct {
	Category  uint8 `json:"category"`
	Severity  uint8 `json:"severity"`
	Timestamp int64 `json:"timestamp"`
}

// OracleRequest is the payload dispatched to the external oracle. It carries
// the sealed boxes themselves so the oracle never touches the store.
type OracleRequest struct {
	RequestID       string    `json:"request_id"`
	ReportID        int64     `json:"report_id"`
	SealedCategory  []byte    `json:"sealed_category"`
	SealedSeverity  []byte    `json:"sealed_severity"`
	SealedTimestamp []byte    `json:"sealed_timestamp"`
	RequestedAt     time.Time `json:"requested_at"`
	Deadline        time.Time `json:"deadline"`
}

// ReportStats is the aggregate projection over all reports.
// total == resolved + pending + refunded always holds.
type ReportStats struct {
	Total    int64 `json:"total"`
	Resolved int64 `json:"resolved"`
	Pending  int64 `json:"pending"`
	Refunded int64 `json:"refunded"`
}

// Event names recorded in the audit log, one per successful mutating operation.
const (
	EventReportSubmitted      = "ReportSubmitted"
	EventReportAssigned       = "ReportAssigned"
	EventReportStatusChanged  = "ReportStatusChanged"
	EventInvestigatorAdded    = "InvestigatorAdded"
	EventInvestigatorRemoved  = "InvestigatorRemoved"
	EventAuthorityTransferred = "AuthorityTransferred"
	EventDecryptionRequested  = "DecryptionRequested"
	EventDecryptionCompleted  = "DecryptionCompleted"
	EventRefundIssued         = "RefundIssued"
	EventInvestigationTimeout = "InvestigationTimeout"
	EventNotesUpdated         = "NotesUpdated"
)

// AuditLog records one workflow event for compliance
type AuditLog struct {
	ID        int64     `json:"id" db:"id"`
	Actor     string    `json:"actor" db:"actor"`
	Event     string    `json:"event" db:"event"`
	ReportID  *int64    `json:"report_id,omitempty" db:"report_id"`
	Details   string    `json:"details" db:"details"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// BasicInfo is the public read projection of a report.
type BasicInfo struct {
	ReportID           int64        `json:"report_id"`
	Exists             bool         `json:"exists"`
	Status             ReportStatus `json:"status"`
	SubmittedAt        time.Time    `json:"submitted_at"`
	Investigator       string       `json:"investigator,omitempty"`
	CallbackCompleted  bool         `json:"callback_completed"`
	RevealedSeverity   uint8        `json:"revealed_severity"`
	ObfuscatedSeverity uint32       `json:"obfuscated_severity"`
}

// DecryptionStatus is the read projection of the oracle exchange for a report.
type DecryptionStatus struct {
	ReportID    int64      `json:"report_id"`
	InFlight    bool       `json:"in_flight"`
	RequestID   string     `json:"request_id,omitempty"`
	RequestedAt *time.Time `json:"requested_at,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Completed   bool       `json:"completed"`
}

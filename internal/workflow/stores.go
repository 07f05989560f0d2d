package workflow

import (
	"context"
	"time"

	"github.com/DamionHane/FHEReporting/internal/models"
)

// ReportStore persists reports. CreateReport assigns the next sequential id
// starting at 1; ids are never reused.
type ReportStore interface {
	CreateReport(ctx context.Context, report *models.Report) error
	GetReport(ctx context.Context, id int64) (*models.Report, error)
	UpdateReport(ctx context.Context, report *models.Report) error
	CountReports(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (*models.ReportStats, error)
	ListByStatus(ctx context.Context, status models.ReportStatus) ([]models.Report, error)
}

// InvestigationStore persists investigations, one active per report at most.
type InvestigationStore interface {
	CreateInvestigation(ctx context.Context, inv *models.Investigation) error
	GetByReportID(ctx context.Context, reportID int64) (*models.Investigation, error)
	UpdateInvestigation(ctx context.Context, inv *models.Investigation) error
	ListActive(ctx context.Context) ([]models.Investigation, error)
	ListReportsByInvestigator(ctx context.Context, investigator string) ([]int64, error)
}

// RequestStore indexes in-flight decryption requests by request id.
type RequestStore interface {
	CreateRequest(ctx context.Context, req *models.DecryptionRequest) error
	GetRequest(ctx context.Context, id string) (*models.DecryptionRequest, error)
	UpdateRequest(ctx context.Context, req *models.DecryptionRequest) error
}

// RosterStore tracks the authority principal and the investigator roster.
type RosterStore interface {
	Authority(ctx context.Context) (string, error)
	SetAuthority(ctx context.Context, addr string) error
	IsInvestigator(ctx context.Context, addr string) (bool, error)
	AddInvestigator(ctx context.Context, addr string) error
	RemoveInvestigator(ctx context.Context, addr string) error
}

// AuditStore appends workflow events and reads them back oldest first.
type AuditStore interface {
	Append(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, limit, offset int) ([]models.AuditLog, error)
}

// Sealer is the sealing/encryption capability consumed by the workflow. The
// concrete cryptography is opaque to this package.
type Sealer interface {
	Seal(ctx context.Context, kind string, value []byte) (*models.SealedValue, error)
	GrantAccess(ctx context.Context, handleID, principal string) error
	Handle(ctx context.Context, handleID string) (*models.SealedValue, error)
}

// OracleDispatcher transports a decryption request to the external oracle.
// Dispatch returns as soon as the request is handed off; the matching callback
// arrives at an arbitrary later point.
type OracleDispatcher interface {
	Dispatch(ctx context.Context, req *models.OracleRequest) error
}

// ProofVerifier checks a callback proof against the canonical request context.
type ProofVerifier interface {
	Verify(requestID string, values models.ClearValues, proof []byte) error
}

// Clock supplies wall-clock time. Tests substitute a fake.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

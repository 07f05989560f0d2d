// Package memory implements every store interface over process-local maps.
// It backs the test suite and the STORE_DRIVER=memory development mode; the
// Postgres repositories mirror its behavior.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/DamionHane/FHEReporting/internal/models"
)

// Store is an in-memory implementation of the workflow and sealing stores.
type Store struct {
	mu sync.RWMutex

	nextReportID        int64
	nextInvestigationID int64
	nextAuditID         int64

	reports        map[int64]models.Report
	investigations map[int64]models.Investigation // keyed by report id
	requests       map[string]models.DecryptionRequest
	authority      string
	investigators  map[string]bool
	auditLog       []models.AuditLog
	sealedValues   map[string]models.SealedValue
	grants         map[string]map[string]bool // handle id -> principal set
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		nextReportID:        1,
		nextInvestigationID: 1,
		nextAuditID:         1,
		reports:             make(map[int64]models.Report),
		investigations:      make(map[int64]models.Investigation),
		requests:            make(map[string]models.DecryptionRequest),
		investigators:       make(map[string]bool),
		sealedValues:        make(map[string]models.SealedValue),
		grants:              make(map[string]map[string]bool),
	}
}

// CreateReport assigns the next sequential id and stores the report.
func (s *Store) CreateReport(_ context.Context, report *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	report.ID = s.nextReportID
	s.nextReportID++
	s.reports[report.ID] = *report
	return nil
}

// GetReport returns a copy of the report, or nil if unknown.
func (s *Store) GetReport(_ context.Context, id int64) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, nil
	}
	return &report, nil
}

// UpdateReport overwrites a stored report.
func (s *Store) UpdateReport(_ context.Context, report *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reports[report.ID] = *report
	return nil
}

// CountReports returns the number of stored reports.
func (s *Store) CountReports(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.reports)), nil
}

// Stats scans all records. Acceptable for the in-memory store.
func (s *Store) Stats(_ context.Context) (*models.ReportStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &models.ReportStats{}
	for _, report := range s.reports {
		stats.Total++
		switch report.Status {
		case models.StatusResolved:
			stats.Resolved++
		case models.StatusRefunded:
			stats.Refunded++
		}
	}
	stats.Pending = stats.Total - stats.Resolved - stats.Refunded
	return stats, nil
}

// ListByStatus returns all reports currently in the given status.
func (s *Store) ListByStatus(_ context.Context, status models.ReportStatus) ([]models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Report
	for _, report := range s.reports {
		if report.Status == status {
			out = append(out, report)
		}
	}
	return out, nil
}

// CreateInvestigation stores a new investigation keyed by report id.
func (s *Store) CreateInvestigation(_ context.Context, inv *models.Investigation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv.ID = s.nextInvestigationID
	s.nextInvestigationID++
	s.investigations[inv.ReportID] = *inv
	return nil
}

// GetByReportID returns a copy of the report's investigation, or nil.
func (s *Store) GetByReportID(_ context.Context, reportID int64) (*models.Investigation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.investigations[reportID]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

// UpdateInvestigation overwrites a stored investigation.
func (s *Store) UpdateInvestigation(_ context.Context, inv *models.Investigation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.investigations[inv.ReportID] = *inv
	return nil
}

// ListActive returns all investigations still marked active.
func (s *Store) ListActive(_ context.Context) ([]models.Investigation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Investigation
	for _, inv := range s.investigations {
		if inv.Active {
			out = append(out, inv)
		}
	}
	return out, nil
}

// ListReportsByInvestigator returns the report ids ever assigned to an
// investigator.
func (s *Store) ListReportsByInvestigator(_ context.Context, investigator string) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []int64
	for _, inv := range s.investigations {
		if inv.Investigator == investigator {
			out = append(out, inv.ReportID)
		}
	}
	slices.Sort(out)
	return out, nil
}

// CreateRequest stores a decryption request.
func (s *Store) CreateRequest(_ context.Context, req *models.DecryptionRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests[req.ID] = *req
	return nil
}

// GetRequest returns a copy of the request, or nil if unknown.
func (s *Store) GetRequest(_ context.Context, id string) (*models.DecryptionRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, nil
	}
	return &req, nil
}

// UpdateRequest overwrites a stored request.
func (s *Store) UpdateRequest(_ context.Context, req *models.DecryptionRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests[req.ID] = *req
	return nil
}

// Authority returns the current authority principal.
func (s *Store) Authority(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.authority, nil
}

// SetAuthority replaces the authority principal.
func (s *Store) SetAuthority(_ context.Context, addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.authority = addr
	return nil
}

// IsInvestigator reports roster membership.
func (s *Store) IsInvestigator(_ context.Context, addr string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.investigators[addr], nil
}

// AddInvestigator adds a roster member.
func (s *Store) AddInvestigator(_ context.Context, addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.investigators[addr] = true
	return nil
}

// RemoveInvestigator removes a roster member.
func (s *Store) RemoveInvestigator(_ context.Context, addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.investigators, addr)
	return nil
}

// Append stores an audit entry.
func (s *Store) Append(_ context.Context, entry *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.ID = s.nextAuditID
	s.nextAuditID++
	s.auditLog = append(s.auditLog, *entry)
	return nil
}

// List returns audit entries, newest last.
func (s *Store) List(_ context.Context, limit, offset int) ([]models.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if offset >= len(s.auditLog) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(s.auditLog) {
		end = len(s.auditLog)
	}
	out := make([]models.AuditLog, end-offset)
	copy(out, s.auditLog[offset:end])
	return out, nil
}

// SaveValue stores a sealed value.
func (s *Store) SaveValue(_ context.Context, value *models.SealedValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *value
	stored.Ciphertext = append([]byte(nil), value.Ciphertext...)
	s.sealedValues[value.ID] = stored
	return nil
}

// GetValue returns a copy of a sealed value, or nil if unknown.
func (s *Store) GetValue(_ context.Context, id string) (*models.SealedValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.sealedValues[id]
	if !ok {
		return nil, nil
	}
	out := value
	out.Ciphertext = append([]byte(nil), value.Ciphertext...)
	return &out, nil
}

// SaveGrant records a principal's access to a sealed value.
func (s *Store) SaveGrant(_ context.Context, handleID, principal string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.grants[handleID] == nil {
		s.grants[handleID] = make(map[string]bool)
	}
	s.grants[handleID][principal] = true
	return nil
}

// HasGrant reports whether a principal may open a sealed value.
func (s *Store) HasGrant(_ context.Context, handleID, principal string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.grants[handleID][principal], nil
}

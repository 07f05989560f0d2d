package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/DamionHane/FHEReporting/internal/models"
)

// InvestigationRepository handles investigation database operations.
type InvestigationRepository struct {
	db *sql.DB
}

// NewInvestigationRepository creates a new investigation repository.
func NewInvestigationRepository(db *sql.DB) *InvestigationRepository {
	return &InvestigationRepository{db: db}
}

// CreateInvestigation inserts a new investigation. The unique report_id
// constraint enforces at most one investigation per report.
func (r *InvestigationRepository) CreateInvestigation(ctx context.Context, inv *models.Investigation) error {
	query := `
		INSERT INTO investigations (report_id, investigator, started_at, updated_at, deadline, active, notes, cost_units)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		inv.ReportID,
		inv.Investigator,
		inv.StartedAt,
		inv.UpdatedAt,
		inv.Deadline,
		inv.Active,
		inv.Notes,
		inv.CostUnits,
	).Scan(&inv.ID)
	if err != nil {
		return fmt.Errorf("failed to create investigation: %w", err)
	}

	return nil
}

const investigationColumns = `id, report_id, investigator, started_at, updated_at, deadline, active, notes, cost_units`

func scanInvestigation(row interface{ Scan(...any) error }) (*models.Investigation, error) {
	inv := &models.Investigation{}
	err := row.Scan(
		&inv.ID,
		&inv.ReportID,
		&inv.Investigator,
		&inv.StartedAt,
		&inv.UpdatedAt,
		&inv.Deadline,
		&inv.Active,
		&inv.Notes,
		&inv.CostUnits,
	)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// GetByReportID retrieves the investigation for a report. Returns nil when
// the report has none.
func (r *InvestigationRepository) GetByReportID(ctx context.Context, reportID int64) (*models.Investigation, error) {
	query := `SELECT ` + investigationColumns + ` FROM investigations WHERE report_id = $1`

	inv, err := scanInvestigation(r.db.QueryRowContext(ctx, query, reportID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get investigation: %w", err)
	}
	return inv, nil
}

// UpdateInvestigation persists all mutable investigation fields.
func (r *InvestigationRepository) UpdateInvestigation(ctx context.Context, inv *models.Investigation) error {
	query := `
		UPDATE investigations
		SET updated_at = $1, deadline = $2, active = $3, notes = $4, cost_units = $5
		WHERE report_id = $6
	`

	result, err := r.db.ExecContext(ctx, query,
		inv.UpdatedAt,
		inv.Deadline,
		inv.Active,
		inv.Notes,
		inv.CostUnits,
		inv.ReportID,
	)
	if err != nil {
		return fmt.Errorf("failed to update investigation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("investigation for report %d not found for update", inv.ReportID)
	}

	return nil
}

// ListActive returns all investigations still marked active.
func (r *InvestigationRepository) ListActive(ctx context.Context) ([]models.Investigation, error) {
	query := `SELECT ` + investigationColumns + ` FROM investigations WHERE active ORDER BY report_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active investigations: %w", err)
	}
	defer rows.Close()

	var out []models.Investigation
	for rows.Next() {
		inv, err := scanInvestigation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan investigation: %w", err)
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

// ListReportsByInvestigator returns the report ids in an investigator's
// portfolio, including closed cases.
func (r *InvestigationRepository) ListReportsByInvestigator(ctx context.Context, investigator string) ([]int64, error) {
	query := `SELECT report_id FROM investigations WHERE investigator = $1 ORDER BY report_id`

	rows, err := r.db.QueryContext(ctx, query, investigator)
	if err != nil {
		return nil, fmt.Errorf("failed to list investigator reports: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan report id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

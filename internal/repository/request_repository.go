package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/DamionHane/FHEReporting/internal/models"
)

// RequestRepository indexes decryption requests by request id.
type RequestRepository struct {
	db *sql.DB
}

// NewRequestRepository creates a new request repository.
func NewRequestRepository(db *sql.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// CreateRequest inserts a new decryption request.
func (r *RequestRepository) CreateRequest(ctx context.Context, req *models.DecryptionRequest) error {
	query := `
		INSERT INTO decryption_requests (id, report_id, requested_at, completed)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, query, req.ID, req.ReportID, req.RequestedAt, req.Completed); err != nil {
		return fmt.Errorf("failed to create decryption request: %w", err)
	}
	return nil
}

// GetRequest retrieves a request by id. Returns nil when unknown.
func (r *RequestRepository) GetRequest(ctx context.Context, id string) (*models.DecryptionRequest, error) {
	query := `SELECT id, report_id, requested_at, completed FROM decryption_requests WHERE id = $1`

	req := &models.DecryptionRequest{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&req.ID, &req.ReportID, &req.RequestedAt, &req.Completed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get decryption request: %w", err)
	}
	return req, nil
}

// UpdateRequest persists the completion flag.
func (r *RequestRepository) UpdateRequest(ctx context.Context, req *models.DecryptionRequest) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE decryption_requests SET completed = $1 WHERE id = $2`, req.Completed, req.ID)
	if err != nil {
		return fmt.Errorf("failed to update decryption request: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("decryption request %s not found for update", req.ID)
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/DamionHane/FHEReporting/internal/models"
)

// SealedRepository persists sealed value boxes and their access grants.
type SealedRepository struct {
	db *sql.DB
}

// NewSealedRepository creates a new sealed value repository.
func NewSealedRepository(db *sql.DB) *SealedRepository {
	return &SealedRepository{db: db}
}

// SaveValue stores a sealed box under its handle id.
func (r *SealedRepository) SaveValue(ctx context.Context, value *models.SealedValue) error {
	query := `
		INSERT INTO sealed_values (id, kind, ciphertext, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.ExecContext(ctx, query, value.ID, value.Kind, value.Ciphertext, value.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save sealed value: %w", err)
	}
	return nil
}

// GetValue retrieves a sealed box by handle id, or nil if unknown.
func (r *SealedRepository) GetValue(ctx context.Context, id string) (*models.SealedValue, error) {
	query := `
		SELECT id, kind, ciphertext, created_at
		FROM sealed_values
		WHERE id = $1
	`

	value := &models.SealedValue{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&value.ID, &value.Kind, &value.Ciphertext, &value.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sealed value: %w", err)
	}
	return value, nil
}

// SaveGrant records that a principal may open the given handle.
func (r *SealedRepository) SaveGrant(ctx context.Context, handleID, principal string) error {
	query := `
		INSERT INTO sealed_grants (handle_id, principal)
		VALUES ($1, $2)
		ON CONFLICT (handle_id, principal) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query, handleID, principal)
	if err != nil {
		return fmt.Errorf("failed to save sealed grant: %w", err)
	}
	return nil
}

// HasGrant reports whether a principal holds a grant for the handle.
func (r *SealedRepository) HasGrant(ctx context.Context, handleID, principal string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM sealed_grants WHERE handle_id = $1 AND principal = $2
		)
	`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, handleID, principal).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check sealed grant: %w", err)
	}
	return exists, nil
}

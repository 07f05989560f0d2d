package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RosterRepository handles authority and investigator roster operations.
type RosterRepository struct {
	db *sql.DB
}

// NewRosterRepository creates a new roster repository.
func NewRosterRepository(db *sql.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

// Authority returns the current authority principal, or "" when unset.
func (r *RosterRepository) Authority(ctx context.Context) (string, error) {
	var addr string
	err := r.db.QueryRowContext(ctx, `SELECT address FROM authority WHERE singleton`).Scan(&addr)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get authority: %w", err)
	}
	return addr, nil
}

// SetAuthority replaces the authority principal.
func (r *RosterRepository) SetAuthority(ctx context.Context, addr string) error {
	query := `
		INSERT INTO authority (singleton, address, updated_at)
		VALUES (TRUE, $1, $2)
		ON CONFLICT (singleton) DO UPDATE SET address = $1, updated_at = $2
	`
	if _, err := r.db.ExecContext(ctx, query, addr, time.Now()); err != nil {
		return fmt.Errorf("failed to set authority: %w", err)
	}
	return nil
}

// IsInvestigator reports roster membership.
func (r *RosterRepository) IsInvestigator(ctx context.Context, addr string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM investigators WHERE address = $1)`, addr).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check investigator: %w", err)
	}
	return exists, nil
}

// AddInvestigator adds a roster member.
func (r *RosterRepository) AddInvestigator(ctx context.Context, addr string) error {
	query := `INSERT INTO investigators (address, added_at) VALUES ($1, $2) ON CONFLICT (address) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, addr, time.Now()); err != nil {
		return fmt.Errorf("failed to add investigator: %w", err)
	}
	return nil
}

// RemoveInvestigator removes a roster member.
func (r *RosterRepository) RemoveInvestigator(ctx context.Context, addr string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM investigators WHERE address = $1`, addr); err != nil {
		return fmt.Errorf("failed to remove investigator: %w", err)
	}
	return nil
}

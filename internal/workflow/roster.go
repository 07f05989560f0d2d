package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DamionHane/FHEReporting/internal/models"
)

// AddInvestigator authorizes a new investigator. Caller must be the authority.
func (s *Service) AddInvestigator(ctx context.Context, caller, addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAuthority(ctx, caller); err != nil {
		return err
	}
	if addr == "" {
		return fmt.Errorf("%w: investigator address is null", ErrInvalidInput)
	}

	authorized, err := s.roster.IsInvestigator(ctx, addr)
	if err != nil {
		return fmt.Errorf("failed to check roster: %w", err)
	}
	if authorized {
		return fmt.Errorf("%w: %s is already an authorized investigator", ErrInvalidInput, addr)
	}

	if err := s.roster.AddInvestigator(ctx, addr); err != nil {
		return fmt.Errorf("failed to add investigator: %w", err)
	}

	s.record(ctx, caller, models.EventInvestigatorAdded, nil,
		fmt.Sprintf("investigator %s added", addr))
	slog.Info("Investigator added", "investigator", addr)

	return nil
}

// RemoveInvestigator revokes an investigator's authorization. Caller must be
// the authority.
func (s *Service) RemoveInvestigator(ctx context.Context, caller, addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAuthority(ctx, caller); err != nil {
		return err
	}

	authorized, err := s.roster.IsInvestigator(ctx, addr)
	if err != nil {
		return fmt.Errorf("failed to check roster: %w", err)
	}
	if !authorized {
		return fmt.Errorf("%w: %s is not an authorized investigator", ErrInvalidInput, addr)
	}

	if err := s.roster.RemoveInvestigator(ctx, addr); err != nil {
		return fmt.Errorf("failed to remove investigator: %w", err)
	}

	s.record(ctx, caller, models.EventInvestigatorRemoved, nil,
		fmt.Sprintf("investigator %s removed", addr))
	slog.Info("Investigator removed", "investigator", addr)

	return nil
}

// TransferAuthority hands the authority role to a new principal. Caller must
// be the current authority.
func (s *Service) TransferAuthority(ctx context.Context, caller, newAddr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAuthority(ctx, caller); err != nil {
		return err
	}
	if newAddr == "" {
		return fmt.Errorf("%w: new authority address is null", ErrInvalidInput)
	}

	if err := s.roster.SetAuthority(ctx, newAddr); err != nil {
		return fmt.Errorf("failed to set authority: %w", err)
	}

	s.record(ctx, caller, models.EventAuthorityTransferred, nil,
		fmt.Sprintf("authority transferred from %s to %s", caller, newAddr))
	slog.Info("Authority transferred", "from", caller, "to", newAddr)

	return nil
}

// IsAuthorizedInvestigator is a pure roster query.
func (s *Service) IsAuthorizedInvestigator(ctx context.Context, addr string) (bool, error) {
	return s.roster.IsInvestigator(ctx, addr)
}

// Package metering tracks per-user token consumption against plan limits.
// Increments are atomic at the store level; callers treat metering failures
// as non-fatal to the record that consumed the tokens.
package metering

import (
	"context"
	"fmt"

	"github.com/notecompanion/pipeline/internal/server/models"
	"github.com/notecompanion/pipeline/internal/server/repositories/usage"
)

// Service wraps the usage repository with the metering contract.
type Service struct {
	repo usage.Repository
}

// NewService constructs a metering service.
func NewService(repo usage.Repository) *Service {
	return &Service{repo: repo}
}

// IncrementAndLogTokenUsage adds tokens to the user's consumed counter.
// Zero or negative amounts are ignored.
func (s *Service) IncrementAndLogTokenUsage(ctx context.Context, userID string, tokens int) error {
	if tokens <= 0 {
		return nil
	}
	if err := s.repo.Increment(ctx, userID, tokens); err != nil {
		return fmt.Errorf("increment usage for %s: %w", userID, err)
	}
	return nil
}

// Status returns the user's current usage against their plan limit.
func (s *Service) Status(ctx context.Context, userID string) (*models.UserUsage, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get usage for %s: %w", userID, err)
	}
	return u, nil
}

package usage

import (
	"context"

	"github.com/notecompanion/pipeline/internal/server/models"
)

// Repository describes token-usage accounting. Increment must be atomic at
// the SQL level so concurrent completions for the same user never lose
// counts.
type Repository interface {
	// Increment adds tokens to the user's consumed counter, creating the
	// usage row with free-plan defaults when absent.
	Increment(ctx context.Context, userID string, tokens int) error

	// Get returns the user's usage row, or a zero-usage free-plan row when
	// the user has never consumed tokens.
	Get(ctx context.Context, userID string) (*models.UserUsage, error)
}

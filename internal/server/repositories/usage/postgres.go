package usage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/notecompanion/pipeline/internal/dbx"
	"github.com/notecompanion/pipeline/internal/server/models"
)

// PostgresRepository implements usage accounting over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Increment upserts the usage row, adding tokens atomically. The addition
// happens inside the statement, not read-modify-write in the caller.
func (r *PostgresRepository) Increment(ctx context.Context, userID string, tokens int) error {
	query := `
		INSERT INTO user_usage (user_id, tokens_used, max_tokens, plan)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id)
		DO UPDATE SET tokens_used = user_usage.tokens_used + EXCLUDED.tokens_used;
	`
	res, err := r.db.ExecContext(ctx, query, userID, tokens, models.DefaultMaxTokens, models.PlanFree)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
	return nil
}

// Get returns the user's usage, defaulting to an untouched free-plan row.
func (r *PostgresRepository) Get(ctx context.Context, userID string) (*models.UserUsage, error) {
	query := `SELECT user_id, tokens_used, max_tokens, plan FROM user_usage WHERE user_id=$1`

	u := &models.UserUsage{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&u.UserID, &u.TokensUsed, &u.MaxTokens, &u.Plan)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.UserUsage{
			UserID:     userID,
			TokensUsed: 0,
			MaxTokens:  models.DefaultMaxTokens,
			Plan:       models.PlanFree,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select usage: %w", err)
	}
	return u, nil
}

package syncqueue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/notecompanion/pipeline/internal/common"
	"github.com/notecompanion/pipeline/internal/dbx"
)

// SQLiteRepository stores the queue as rows ordered by an AUTOINCREMENT
// position, so re-inserting an entry always lands at the tail.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Enqueue(ctx context.Context, localID string) error {

	query := `INSERT OR IGNORE INTO sync_queue (local_id) VALUES (?)`
	if _, err := r.db.ExecContext(ctx, query, localID); err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", localID, err)
	}
	return nil
}

func (r *SQLiteRepository) Head(ctx context.Context) (string, error) {

	query := `SELECT local_id FROM sync_queue ORDER BY position LIMIT 1`

	var localID string
	err := r.db.QueryRowContext(ctx, query).Scan(&localID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", common.ErrQueueEmpty
	}
	if err != nil {
		return "", fmt.Errorf("failed to read queue head: %w", err)
	}
	return localID, nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, localID string) error {

	query := `DELETE FROM sync_queue WHERE local_id=?`
	if _, err := r.db.ExecContext(ctx, query, localID); err != nil {
		return fmt.Errorf("failed to remove %s from queue: %w", localID, err)
	}
	return nil
}

// MoveToTail deletes and re-inserts the entry; AUTOINCREMENT guarantees the
// new position sorts after every current entry.
func (r *SQLiteRepository) MoveToTail(ctx context.Context, localID string) error {

	if err := r.Remove(ctx, localID); err != nil {
		return err
	}
	query := `INSERT INTO sync_queue (local_id) VALUES (?)`
	if _, err := r.db.ExecContext(ctx, query, localID); err != nil {
		return fmt.Errorf("failed to rotate %s to tail: %w", localID, err)
	}
	return nil
}

func (r *SQLiteRepository) Size(ctx context.Context) (int, error) {

	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count queue: %w", err)
	}
	return n, nil
}

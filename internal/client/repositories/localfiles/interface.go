package localfiles

import (
	"context"
	"time"

	"github.com/notecompanion/pipeline/internal/client/models"
)

// Repository describes CRUD and workflow operations for locally captured
// files. Implementations are backed by the local SQLite database.
type Repository interface {
	// Create inserts the metadata row for a newly saved item.
	Create(ctx context.Context, file *models.LocalFile) error

	// GetByID returns the metadata row, or common.ErrorNotFound.
	GetByID(ctx context.Context, localID string) (*models.LocalFile, error)

	// List returns all items, newest first.
	List(ctx context.Context) ([]*models.LocalFile, error)

	// MarkCompleted records a successful upload and the server's file id.
	MarkCompleted(ctx context.Context, localID, serverFileID string) error

	// MarkError records a failed attempt: bumps attempts, sets the error
	// message and attempt timestamp.
	MarkError(ctx context.Context, localID, msg string, at time.Time) error

	// MarkDead parks an item that exhausted its retry budget.
	MarkDead(ctx context.Context, localID, msg string) error
}

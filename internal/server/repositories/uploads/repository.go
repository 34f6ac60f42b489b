package uploads

import (
	"context"

	"github.com/notecompanion/pipeline/internal/server/models"
)

// Repository describes persistence operations on upload records. The batch
// worker is the only writer after intake.
type Repository interface {
	// Create inserts a new record with status pending. A missing ID is
	// generated.
	Create(ctx context.Context, rec *models.UploadRecord) error

	// GetByID returns the record or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.UploadRecord, error)

	// GetForUser returns the record only when owned by userID, otherwise
	// common.ErrorNotFound. Used by the client-facing status endpoint.
	GetForUser(ctx context.Context, id, userID string) (*models.UploadRecord, error)

	// SelectClaimable returns up to limit records with status pending or
	// processing, in insertion order. Processing records are included so a
	// run that died mid-flight is naturally resumed.
	SelectClaimable(ctx context.Context, limit int) ([]*models.UploadRecord, error)

	// Claim transitions the record to processing and clears its error. The
	// write is idempotent: a record already processing is left untouched
	// and the claim still succeeds (resumed attempt).
	Claim(ctx context.Context, id string) error

	// CommitResult writes the extraction result and bumps updated_at.
	CommitResult(ctx context.Context, id string, res models.ExtractionResult) error

	// MarkError is the best-effort fallback write when the normal commit
	// path itself failed.
	MarkError(ctx context.Context, id, msg string) error

	// Requeue moves an errored record owned by userID back to pending.
	// Returns common.ErrNotRequeueable when the record is in any other
	// state, common.ErrorNotFound when it does not exist for that user.
	Requeue(ctx context.Context, id, userID string) error
}

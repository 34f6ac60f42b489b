package uploads

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/notecompanion/pipeline/internal/common"
	"github.com/notecompanion/pipeline/internal/dbx"
	"github.com/notecompanion/pipeline/internal/server/models"
)

// PostgresRepository implements upload-record storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const recordColumns = `id, user_id, object_key, public_url, file_type, process_type,
		status, text_content, generated_image_url, tokens_used, error, created_at, updated_at`

func scanRecord(row interface{ Scan(dest ...any) error }, rec *models.UploadRecord) error {
	return row.Scan(&rec.ID, &rec.UserID, &rec.ObjectKey, &rec.PublicURL, &rec.FileType,
		&rec.ProcessType, &rec.Status, &rec.TextContent, &rec.GeneratedImageURL,
		&rec.TokensUsed, &rec.Error, &rec.CreatedAt, &rec.UpdatedAt)
}

// Create inserts a new pending record, generating an ID when absent.
func (r *PostgresRepository) Create(ctx context.Context, rec *models.UploadRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.Status = models.StatusPending

	query := `
		INSERT INTO uploads (id, user_id, object_key, public_url, file_type, process_type, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.UserID, rec.ObjectKey, rec.PublicURL, rec.FileType, rec.ProcessType, rec.Status)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByID returns the record or common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.UploadRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM uploads WHERE id=$1`

	rec := &models.UploadRecord{}
	err := scanRecord(r.db.QueryRowContext(ctx, query, id), rec)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select upload: %w", err)
	}
	return rec, nil
}

// GetForUser returns the record only when owned by userID.
func (r *PostgresRepository) GetForUser(ctx context.Context, id, userID string) (*models.UploadRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM uploads WHERE id=$1 AND user_id=$2`

	rec := &models.UploadRecord{}
	err := scanRecord(r.db.QueryRowContext(ctx, query, id, userID), rec)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select upload: %w", err)
	}
	return rec, nil
}

// SelectClaimable returns up to limit pending or stuck-processing records
// in insertion order, so earlier uploads are served first.
func (r *PostgresRepository) SelectClaimable(ctx context.Context, limit int) ([]*models.UploadRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM uploads
		WHERE status IN ('pending', 'processing')
		ORDER BY created_at, id
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select claimable uploads: %w", err)
	}
	defer rows.Close()

	var result []*models.UploadRecord
	for rows.Next() {
		rec := &models.UploadRecord{}
		if err := scanRecord(rows, rec); err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Claim sets status=processing and clears error for a record that is not
// already processing. Zero rows affected means the record was already
// processing; the claim is treated as a resumed attempt and succeeds.
func (r *PostgresRepository) Claim(ctx context.Context, id string) error {
	query := `UPDATE uploads SET status='processing', error='', updated_at=now()
		WHERE id=$1 AND status <> 'processing'`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to claim upload: %w", err)
	}
	if _, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	return nil
}

// CommitResult writes the extraction outcome and bumps updated_at.
// Exactly one row must be affected.
func (r *PostgresRepository) CommitResult(ctx context.Context, id string, res models.ExtractionResult) error {
	query := `UPDATE uploads SET status=$2, text_content=$3, generated_image_url=$4,
		tokens_used=$5, error=$6, updated_at=now()
		WHERE id=$1`

	result, err := r.db.ExecContext(ctx, query, id,
		res.Status, res.TextContent, res.GeneratedImageURL, res.TokensUsed, res.Error)
	if err != nil {
		return fmt.Errorf("failed to commit result: %w", err)
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("wrong rows affected count: %d", ra)
	}
	return nil
}

// MarkError writes a terminal error status with a diagnostic message.
func (r *PostgresRepository) MarkError(ctx context.Context, id, msg string) error {
	query := `UPDATE uploads SET status='error', error=$2, updated_at=now() WHERE id=$1`

	if _, err := r.db.ExecContext(ctx, query, id, msg); err != nil {
		return fmt.Errorf("failed to mark error: %w", err)
	}
	return nil
}

// Requeue moves an errored record back to pending for reprocessing. The
// claim query never selects errored records, so this is the only automatic
// way back into the pipeline.
func (r *PostgresRepository) Requeue(ctx context.Context, id, userID string) error {
	query := `UPDATE uploads SET status='pending', error='', updated_at=now()
		WHERE id=$1 AND user_id=$2 AND status='error'`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to requeue upload: %w", err)
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 1 {
		return nil
	}

	// Distinguish a missing record from one in the wrong state.
	if _, err := r.GetForUser(ctx, id, userID); err != nil {
		return err
	}
	return common.ErrNotRequeueable
}

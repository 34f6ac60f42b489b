package localfiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/notecompanion/pipeline/internal/client/models"
	"github.com/notecompanion/pipeline/internal/common"
	"github.com/notecompanion/pipeline/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, f *models.LocalFile) error {

	query := `INSERT INTO local_files
			(local_id, name, file_type, process_type, status, preview, content_path,
			 server_file_id, attempts, last_attempt, error, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		f.LocalID, f.Name, f.FileType, f.ProcessType, f.Status, f.Preview, f.ContentPath,
		f.ServerFileID, f.Attempts, formatTime(f.LastAttempt), f.Error, f.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert local file: %w", err)
	}

	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, localID string) (*models.LocalFile, error) {

	query := `SELECT local_id, name, file_type, process_type, status, preview, content_path,
			server_file_id, attempts, last_attempt, error, created_at
		FROM local_files WHERE local_id=?`

	row := r.db.QueryRowContext(ctx, query, localID)

	f := &models.LocalFile{}
	var lastAttempt, createdAt string
	err := row.Scan(&f.LocalID, &f.Name, &f.FileType, &f.ProcessType, &f.Status, &f.Preview,
		&f.ContentPath, &f.ServerFileID, &f.Attempts, &lastAttempt, &f.Error, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select local file: %w", err)
	}

	f.LastAttempt = parseTime(lastAttempt)
	f.CreatedAt = parseTime(createdAt)
	return f, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.LocalFile, error) {

	query := `SELECT local_id, name, file_type, process_type, status, preview, content_path,
			server_file_id, attempts, last_attempt, error, created_at
		FROM local_files ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error selecting local files: %w", err)
	}
	defer rows.Close()

	var result []*models.LocalFile
	for rows.Next() {
		f := &models.LocalFile{}
		var lastAttempt, createdAt string
		if err := rows.Scan(&f.LocalID, &f.Name, &f.FileType, &f.ProcessType, &f.Status, &f.Preview,
			&f.ContentPath, &f.ServerFileID, &f.Attempts, &lastAttempt, &f.Error, &createdAt); err != nil {
			return nil, err
		}
		f.LastAttempt = parseTime(lastAttempt)
		f.CreatedAt = parseTime(createdAt)
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) MarkCompleted(ctx context.Context, localID, serverFileID string) error {

	query := `UPDATE local_files SET status='completed', server_file_id=?, error='' WHERE local_id=?`
	result, err := r.db.ExecContext(ctx, query, serverFileID, localID)
	if err != nil {
		return fmt.Errorf("failed to mark completed: %w", err)
	}
	return requireOneRow(result)
}

func (r *SQLiteRepository) MarkError(ctx context.Context, localID, msg string, at time.Time) error {

	query := `UPDATE local_files SET status='error', error=?, attempts=attempts+1, last_attempt=?
		WHERE local_id=?`
	result, err := r.db.ExecContext(ctx, query, msg, formatTime(at), localID)
	if err != nil {
		return fmt.Errorf("failed to mark error: %w", err)
	}
	return requireOneRow(result)
}

func (r *SQLiteRepository) MarkDead(ctx context.Context, localID, msg string) error {

	query := `UPDATE local_files SET status='dead', error=? WHERE local_id=?`
	result, err := r.db.ExecContext(ctx, query, msg, localID)
	if err != nil {
		return fmt.Errorf("failed to mark dead: %w", err)
	}
	return requireOneRow(result)
}

func requireOneRow(result sql.Result) error {
	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("wrong rows affected count: %d", ra)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Package localdb opens the client's sqlite database, runs embedded goose
// migrations, and vends the local repositories.
package localdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/notecompanion/pipeline/internal/client/migrations"
	"github.com/notecompanion/pipeline/internal/client/repositories/localfiles"
	"github.com/notecompanion/pipeline/internal/client/repositories/syncqueue"

	_ "modernc.org/sqlite"
)

// Repositories bundles the client's local data access.
type Repositories struct {
	LocalFiles localfiles.Repository
	SyncQueue  syncqueue.Repository
}

// RunMigrations applies the embedded migrations to the local database.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens (creating if needed) the sqlite database at dsn,
// migrates it, and returns the repositories plus the handle for cleanup.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, *sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	repos := &Repositories{
		LocalFiles: localfiles.NewSQLiteRepository(db),
		SyncQueue:  syncqueue.NewSQLiteRepository(db),
	}
	return repos, db, nil
}

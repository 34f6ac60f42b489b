package repomanager

import (
	"context"
	"database/sql"

	"github.com/notecompanion/pipeline/internal/dbx"
	"github.com/notecompanion/pipeline/internal/server/repositories/uploads"
	"github.com/notecompanion/pipeline/internal/server/repositories/usage"
)

// RepositoryManager vends repository implementations bound to a DB handle
// and exposes a schema migration hook.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Uploads(db dbx.DBTX) uploads.Repository
	Usage(db dbx.DBTX) usage.Repository
}

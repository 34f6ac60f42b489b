package localdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notecompanion/pipeline/internal/client/models"
)

func TestInitDatabase_MigratesAndVendsRepositories(t *testing.T) {
	ctx := context.Background()

	repos, db, err := InitDatabase(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	// The migrated schema accepts real rows through both repositories.
	file := &models.LocalFile{
		LocalID:     "id-1",
		Name:        "note.txt",
		FileType:    "text/plain",
		Status:      models.StatusPending,
		ContentPath: "/tmp/id-1/content.txt",
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, repos.LocalFiles.Create(ctx, file))

	got, err := repos.LocalFiles.GetByID(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "note.txt", got.Name)

	require.NoError(t, repos.SyncQueue.Enqueue(ctx, "id-1"))
	head, err := repos.SyncQueue.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, "id-1", head)
}

func TestInitDatabase_MigrationsAreIdempotent(t *testing.T) {
	ctx := context.Background()

	_, db, err := InitDatabase(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, RunMigrations(ctx, db))
}

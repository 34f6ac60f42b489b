package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notecompanion/pipeline/internal/logging"
	"github.com/notecompanion/pipeline/internal/server/models"
)

type fakeRepo struct {
	claimable    []*models.UploadRecord
	selectErr    error
	claimErr     map[string]error
	commitErr    map[string]error
	markErrorErr error

	claims    []string
	commits   map[string]models.ExtractionResult
	markedErr map[string]string
}

func newFakeRepo(recs ...*models.UploadRecord) *fakeRepo {
	return &fakeRepo{
		claimable: recs,
		claimErr:  map[string]error{},
		commitErr: map[string]error{},
		commits:   map[string]models.ExtractionResult{},
		markedErr: map[string]string{},
	}
}

func (f *fakeRepo) Create(context.Context, *models.UploadRecord) error { return nil }
func (f *fakeRepo) GetByID(context.Context, string) (*models.UploadRecord, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeRepo) GetForUser(context.Context, string, string) (*models.UploadRecord, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeRepo) Requeue(context.Context, string, string) error { return nil }

func (f *fakeRepo) SelectClaimable(_ context.Context, limit int) ([]*models.UploadRecord, error) {
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	if len(f.claimable) > limit {
		return f.claimable[:limit], nil
	}
	return f.claimable, nil
}

func (f *fakeRepo) Claim(_ context.Context, id string) error {
	if err := f.claimErr[id]; err != nil {
		return err
	}
	f.claims = append(f.claims, id)
	return nil
}

func (f *fakeRepo) CommitResult(_ context.Context, id string, res models.ExtractionResult) error {
	if err := f.commitErr[id]; err != nil {
		return err
	}
	f.commits[id] = res
	return nil
}

func (f *fakeRepo) MarkError(_ context.Context, id, msg string) error {
	if f.markErrorErr != nil {
		return f.markErrorErr
	}
	f.markedErr[id] = msg
	return nil
}

type fakeExtractor struct {
	results map[string]models.ExtractionResult
	calls   []string
}

func (f *fakeExtractor) Process(_ context.Context, rec *models.UploadRecord) models.ExtractionResult {
	f.calls = append(f.calls, rec.ID)
	if res, ok := f.results[rec.ID]; ok {
		return res
	}
	return models.ErrorResult("no result configured")
}

type fakeMeter struct {
	err   error
	calls []meterCall
}

type meterCall struct {
	userID string
	tokens int
}

func (f *fakeMeter) IncrementAndLogTokenUsage(_ context.Context, userID string, tokens int) error {
	f.calls = append(f.calls, meterCall{userID: userID, tokens: tokens})
	return f.err
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func rec(id, userID string) *models.UploadRecord {
	return &models.UploadRecord{ID: id, UserID: userID, FileType: "image/png", ProcessType: models.ProcessStandardOCR, Status: models.StatusPending}
}

func TestRunOnce_Idle(t *testing.T) {
	repo := newFakeRepo()
	w := New(repo, &fakeExtractor{}, &fakeMeter{}, testLogger())

	summary, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.Idle())
	assert.Equal(t, models.RunSummary{}, summary)
}

func TestRunOnce_FetchFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.selectErr = errors.New("db down")
	w := New(repo, &fakeExtractor{}, &fakeMeter{}, testLogger())

	_, err := w.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestRunOnce_ProcessesBatchSequentially(t *testing.T) {
	repo := newFakeRepo(rec("a", "u-1"), rec("b", "u-2"))
	extractor := &fakeExtractor{results: map[string]models.ExtractionResult{
		"a": {Status: models.StatusCompleted, TextContent: "text-a", TokensUsed: 100},
		"b": models.ErrorResult("Unsupported file type: application/zip"),
	}}
	meter := &fakeMeter{}
	w := New(repo, extractor, meter, testLogger())

	summary, err := w.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.RunSummary{Attempted: 2, Succeeded: 1, Failed: 1}, summary)
	assert.Equal(t, []string{"a", "b"}, repo.claims)
	assert.Equal(t, []string{"a", "b"}, extractor.calls)

	// Both outcomes committed, success and failure alike.
	assert.Equal(t, models.StatusCompleted, repo.commits["a"].Status)
	assert.Equal(t, models.StatusError, repo.commits["b"].Status)

	// Metering happens once, only for the completed record.
	require.Len(t, meter.calls, 1)
	assert.Equal(t, meterCall{userID: "u-1", tokens: 100}, meter.calls[0])
}

func TestRunOnce_ZeroTokenCompletionSkipsMetering(t *testing.T) {
	repo := newFakeRepo(rec("a", "u-1"))
	extractor := &fakeExtractor{results: map[string]models.ExtractionResult{
		"a": {Status: models.StatusCompleted, TextContent: "pass-through", TokensUsed: 0},
	}}
	meter := &fakeMeter{}
	w := New(repo, extractor, meter, testLogger())

	summary, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Empty(t, meter.calls)
}

func TestRunOnce_MeteringFailureIsNonFatal(t *testing.T) {
	repo := newFakeRepo(rec("a", "u-1"))
	extractor := &fakeExtractor{results: map[string]models.ExtractionResult{
		"a": {Status: models.StatusCompleted, TokensUsed: 50},
	}}
	meter := &fakeMeter{err: errors.New("usage table gone")}
	w := New(repo, extractor, meter, testLogger())

	summary, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Empty(t, repo.markedErr)
}

func TestRunOnce_ClaimFailureFallsBackToMarkError(t *testing.T) {
	repo := newFakeRepo(rec("a", "u-1"), rec("b", "u-2"))
	repo.claimErr["a"] = errors.New("lock timeout")
	extractor := &fakeExtractor{results: map[string]models.ExtractionResult{
		"b": {Status: models.StatusCompleted, TokensUsed: 10},
	}}
	w := New(repo, extractor, &fakeMeter{}, testLogger())

	summary, err := w.RunOnce(context.Background())
	require.NoError(t, err)

	// The failing record does not abort the batch.
	assert.Equal(t, models.RunSummary{Attempted: 2, Succeeded: 1, Failed: 1}, summary)
	assert.Contains(t, repo.markedErr["a"], "claim failed")
	assert.Equal(t, []string{"b"}, extractor.calls)
}

func TestRunOnce_CommitFailureFallsBackToMarkError(t *testing.T) {
	repo := newFakeRepo(rec("a", "u-1"))
	repo.commitErr["a"] = errors.New("connection reset")
	extractor := &fakeExtractor{results: map[string]models.ExtractionResult{
		"a": {Status: models.StatusCompleted, TokensUsed: 10},
	}}
	meter := &fakeMeter{}
	w := New(repo, extractor, meter, testLogger())

	summary, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Contains(t, repo.markedErr["a"], "failed to persist result")
	assert.Empty(t, meter.calls)
}

func TestRunOnce_FallbackWriteFailureOnlyLogs(t *testing.T) {
	repo := newFakeRepo(rec("a", "u-1"))
	repo.claimErr["a"] = errors.New("lock timeout")
	repo.markErrorErr = errors.New("db gone")
	w := New(repo, &fakeExtractor{}, &fakeMeter{}, testLogger())

	summary, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
}

func TestRunOnce_RespectsBatchSize(t *testing.T) {
	var recs []*models.UploadRecord
	results := map[string]models.ExtractionResult{}
	for i := 0; i < BatchSize+5; i++ {
		id := string(rune('a' + i))
		recs = append(recs, rec(id, "u-1"))
		results[id] = models.ExtractionResult{Status: models.StatusCompleted, TokensUsed: 1}
	}
	repo := newFakeRepo(recs...)
	extractor := &fakeExtractor{results: results}
	w := New(repo, extractor, &fakeMeter{}, testLogger())

	summary, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BatchSize, summary.Attempted)
}

// Package worker implements the batch processing pass over claimable
// upload records. The worker owns the record state machine: claim,
// execute, commit, meter. It is triggered externally on an interval and
// never schedules itself.
package worker

import (
	"context"
	"fmt"

	"github.com/notecompanion/pipeline/internal/logging"
	"github.com/notecompanion/pipeline/internal/server/models"
	"github.com/notecompanion/pipeline/internal/server/repositories/uploads"
)

// BatchSize bounds how many records one invocation may process. The
// trigger has an execution-time ceiling, so the batch stays small.
const BatchSize = 10

// Extractor produces a result for one record and never fails past its
// boundary.
type Extractor interface {
	Process(ctx context.Context, rec *models.UploadRecord) models.ExtractionResult
}

// Meter records billable token consumption.
type Meter interface {
	IncrementAndLogTokenUsage(ctx context.Context, userID string, tokens int) error
}

// BatchWorker orchestrates one processing pass.
type BatchWorker struct {
	repo      uploads.Repository
	extractor Extractor
	meter     Meter
	logger    logging.Logger
	batchSize int
}

// New constructs a worker with the default batch size.
func New(repo uploads.Repository, extractor Extractor, meter Meter, logger logging.Logger) *BatchWorker {
	return &BatchWorker{
		repo:      repo,
		extractor: extractor,
		meter:     meter,
		logger:    logger,
		batchSize: BatchSize,
	}
}

// RunOnce fetches up to the batch size of claimable records and processes
// them sequentially. Each record's outcome is independent; nothing a single
// record does can abort the batch. The returned error is non-nil only when
// the claim fetch itself fails.
func (w *BatchWorker) RunOnce(ctx context.Context) (models.RunSummary, error) {
	summary := models.RunSummary{}

	records, err := w.repo.SelectClaimable(ctx, w.batchSize)
	if err != nil {
		return summary, fmt.Errorf("fetch claimable records: %w", err)
	}

	if len(records) == 0 {
		w.logger.Debug(ctx, "no claimable records, idle run")
		return summary, nil
	}

	for _, rec := range records {
		summary.Attempted++
		if w.processRecord(ctx, rec) {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}

	w.logger.Info(ctx, "batch run finished",
		"attempted", summary.Attempted,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
	)
	return summary, nil
}

// processRecord walks one record through claim/execute/commit/meter and
// reports whether it completed. Any failure in the surrounding machinery
// falls back to a best-effort error write; even that write failing only
// logs and moves on.
func (w *BatchWorker) processRecord(ctx context.Context, rec *models.UploadRecord) bool {
	log := w.logger.With("record", rec.ID, "user", rec.UserID, "processType", rec.ProcessType)

	if err := w.repo.Claim(ctx, rec.ID); err != nil {
		log.Error(ctx, "claim failed", "error", err)
		w.markErrorFallback(ctx, log, rec.ID, fmt.Sprintf("claim failed: %v", err))
		return false
	}

	result := w.extractor.Process(ctx, rec)

	if err := w.repo.CommitResult(ctx, rec.ID, result); err != nil {
		log.Error(ctx, "commit failed", "error", err)
		w.markErrorFallback(ctx, log, rec.ID, fmt.Sprintf("failed to persist result: %v", err))
		return false
	}

	if result.Status == models.StatusCompleted {
		if result.TokensUsed > 0 {
			// Metering failure does not undo the record's completion.
			if err := w.meter.IncrementAndLogTokenUsage(ctx, rec.UserID, result.TokensUsed); err != nil {
				log.Error(ctx, "metering failed", "tokens", result.TokensUsed, "error", err)
			}
		}
		log.Info(ctx, "record completed", "tokens", result.TokensUsed)
		return true
	}

	log.Warn(ctx, "record failed", "error", result.Error)
	return false
}

func (w *BatchWorker) markErrorFallback(ctx context.Context, log logging.Logger, id, msg string) {
	if err := w.repo.MarkError(ctx, id, msg); err != nil {
		log.Error(ctx, "fallback error write failed", "error", err)
	}
}

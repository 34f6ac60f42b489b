// Package services implements the client's workflows: local-first capture,
// queue draining with rotation, and status polling.
package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/notecompanion/pipeline/internal/client/api"
	"github.com/notecompanion/pipeline/internal/client/models"
	"github.com/notecompanion/pipeline/internal/client/repositories/localfiles"
	"github.com/notecompanion/pipeline/internal/client/repositories/syncqueue"
	"github.com/notecompanion/pipeline/internal/client/store"
	"github.com/notecompanion/pipeline/internal/common"
	"github.com/notecompanion/pipeline/internal/logging"
)

// maxAttempts bounds rotation: an entry failing this many times is parked
// as dead instead of looping through the queue forever.
const maxAttempts = 5

// defaultDrainInterval paces the background driver between queue items.
const defaultDrainInterval = 5 * time.Second

// QueueService owns the local-first capture-and-upload workflow.
type QueueService struct {
	files  localfiles.Repository
	queue  syncqueue.Repository
	store  *store.ContentStore
	client api.Client
	logger logging.Logger

	// DrainInterval paces the background Run loop. Zero means the default.
	DrainInterval time.Duration

	// inFlight prevents overlapping drains from the background driver.
	inFlight atomic.Bool
}

// NewQueueService wires the queue workflow.
func NewQueueService(files localfiles.Repository, queue syncqueue.Repository, contentStore *store.ContentStore, client api.Client, logger logging.Logger) *QueueService {
	return &QueueService{
		files:  files,
		queue:  queue,
		store:  contentStore,
		client: client,
		logger: logger,
	}
}

// SaveLocally persists the shared content to disk and records its metadata.
// This always happens before any network call.
func (s *QueueService) SaveLocally(ctx context.Context, shared models.SharedFile) (*models.LocalFile, error) {
	file, err := s.store.Save(shared)
	if err != nil {
		return nil, fmt.Errorf("saving content: %w", err)
	}
	file.CreatedAt = time.Now().UTC()

	if err := s.files.Create(ctx, file); err != nil {
		return nil, fmt.Errorf("saving metadata: %w", err)
	}
	return file, nil
}

// Enqueue appends the item to the persisted upload queue. Duplicate
// insertion is a no-op.
func (s *QueueService) Enqueue(ctx context.Context, localID string) error {
	return s.queue.Enqueue(ctx, localID)
}

// DrainOne uploads the queue head, if any, and reports whether entries
// remain. Failures rotate the entry to the tail until the attempt budget
// runs out; a metadata row whose content file vanished is dropped as
// corrupt.
func (s *QueueService) DrainOne(ctx context.Context) (bool, error) {
	localID, err := s.queue.Head(ctx)
	if errors.Is(err, common.ErrQueueEmpty) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	file, err := s.files.GetByID(ctx, localID)
	if errors.Is(err, common.ErrorNotFound) {
		// Orphaned queue entry; nothing to upload.
		s.logger.Warn(ctx, "dropping orphaned queue entry", "localId", localID)
		if err := s.queue.Remove(ctx, localID); err != nil {
			return false, err
		}
		return s.hasMore(ctx)
	}
	if err != nil {
		return false, err
	}

	data, err := s.store.Load(file.ContentPath)
	if errors.Is(err, common.ErrContentMissing) {
		s.logger.Warn(ctx, "queued content missing, dropping entry", "localId", localID)
		if err := s.files.MarkError(ctx, localID, "content file missing", time.Now().UTC()); err != nil {
			s.logger.Error(ctx, "mark error failed", "localId", localID, "error", err)
		}
		if err := s.queue.Remove(ctx, localID); err != nil {
			return false, err
		}
		return s.hasMore(ctx)
	}
	if err != nil {
		return false, err
	}

	resp, err := s.client.UploadFile(ctx, api.UploadRequest{
		Name:        file.Name,
		Type:        file.FileType,
		Base64:      base64.StdEncoding.EncodeToString(data),
		ProcessType: file.ProcessType,
	})
	if err != nil {
		return s.handleFailure(ctx, file, err)
	}

	if err := s.files.MarkCompleted(ctx, localID, resp.FileID); err != nil {
		s.logger.Error(ctx, "mark completed failed", "localId", localID, "error", err)
	}
	if err := s.queue.Remove(ctx, localID); err != nil {
		return false, err
	}
	s.logger.Info(ctx, "queue item uploaded", "localId", localID, "fileId", resp.FileID)
	return s.hasMore(ctx)
}

// handleFailure records the failure and either rotates the entry to the
// tail or, once the attempt budget is exhausted, parks it as dead.
func (s *QueueService) handleFailure(ctx context.Context, file *models.LocalFile, cause error) (bool, error) {
	s.logger.Warn(ctx, "queue item upload failed", "localId", file.LocalID, "attempts", file.Attempts+1, "error", cause)

	if err := s.files.MarkError(ctx, file.LocalID, cause.Error(), time.Now().UTC()); err != nil {
		s.logger.Error(ctx, "mark error failed", "localId", file.LocalID, "error", err)
	}

	if file.Attempts+1 >= maxAttempts {
		if err := s.files.MarkDead(ctx, file.LocalID, cause.Error()); err != nil {
			s.logger.Error(ctx, "mark dead failed", "localId", file.LocalID, "error", err)
		}
		if err := s.queue.Remove(ctx, file.LocalID); err != nil {
			return false, err
		}
		return s.hasMore(ctx)
	}

	if err := s.queue.MoveToTail(ctx, file.LocalID); err != nil {
		return false, err
	}
	return s.hasMore(ctx)
}

func (s *QueueService) hasMore(ctx context.Context) (bool, error) {
	n, err := s.queue.Size(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Run drives the queue in the background, one item per tick. The inFlight
// flag guards against overlapping drains if a previous one is still
// running when the next tick fires.
func (s *QueueService) Run(ctx context.Context) {
	interval := s.DrainInterval
	if interval <= 0 {
		interval = defaultDrainInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.inFlight.CompareAndSwap(false, true) {
				continue
			}
			if _, err := s.DrainOne(ctx); err != nil {
				s.logger.Error(ctx, "queue drain failed", "error", err)
			}
			s.inFlight.Store(false)
		}
	}
}

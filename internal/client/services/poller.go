package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/notecompanion/pipeline/internal/client/api"
	"github.com/notecompanion/pipeline/internal/common"
	"github.com/notecompanion/pipeline/internal/logging"
)

const (
	// pollInitialDelay gives the server a moment to persist the record
	// before the first status request.
	pollInitialDelay = 1 * time.Second

	// pollInterval is the constant gap between status requests.
	pollInterval = 2 * time.Second

	// pollMaxAttempts bounds the whole poll. With a 2s interval this is
	// roughly a minute of waiting.
	pollMaxAttempts = 30
)

// errStillProcessing marks a poll round that saw the record in a
// non-terminal state.
var errStillProcessing = errors.New("record still processing")

// Poller watches a server-side record until it reaches a terminal state.
type Poller struct {
	client api.Client
	logger logging.Logger

	initialDelay time.Duration
	maxAttempts  uint64

	// Interval overrides the constant gap between status requests.
	Interval time.Duration
}

// NewPoller builds a poller with the default cadence.
func NewPoller(client api.Client, logger logging.Logger) *Poller {
	return &Poller{
		client:       client,
		logger:       logger,
		initialDelay: pollInitialDelay,
		maxAttempts:  pollMaxAttempts,
		Interval:     pollInterval,
	}
}

// PollUntilTerminal requests the record's status until it is completed or
// error. A 404 means the record is not yet visible and is retried like any
// non-terminal state. Exhausting the attempt budget returns
// common.ErrPollTimeout.
func (p *Poller) PollUntilTerminal(ctx context.Context, fileID string) (*api.FileStatus, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(p.initialDelay):
	}

	var last *api.FileStatus
	backoff := retry.WithMaxRetries(p.maxAttempts-1, retry.NewConstant(p.Interval))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		status, err := p.client.GetFileStatus(ctx, fileID)
		if errors.Is(err, common.ErrorNotFound) {
			// Not yet visible; keep polling.
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		last = status
		if !status.Terminal() {
			return retry.RetryableError(fmt.Errorf("%w: %s", errStillProcessing, status.Status))
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Exhausted budgets surface the last retryable cause.
		if errors.Is(err, common.ErrorNotFound) || errors.Is(err, errStillProcessing) {
			return nil, fmt.Errorf("%w: file %s after %d attempts", common.ErrPollTimeout, fileID, p.maxAttempts)
		}
		return nil, err
	}
	return last, nil
}

// Submit runs the full client flow for an already-saved item: enqueue,
// drain until the item goes out, then wait for the server-side result.
// Text content completes synchronously on the server, so its status is
// fetched once instead of polled.
func Submit(ctx context.Context, queue *QueueService, poller *Poller, client api.Client, localID string, isText bool) (*api.FileStatus, error) {
	if err := queue.Enqueue(ctx, localID); err != nil {
		return nil, fmt.Errorf("enqueue: %w", err)
	}
	for {
		more, err := queue.DrainOne(ctx)
		if err != nil {
			return nil, fmt.Errorf("drain: %w", err)
		}
		if !more {
			break
		}
	}

	file, err := queue.files.GetByID(ctx, localID)
	if err != nil {
		return nil, err
	}
	if file.ServerFileID == "" {
		return nil, fmt.Errorf("upload did not complete: %s", file.Error)
	}

	if isText {
		return client.GetFileStatus(ctx, file.ServerFileID)
	}
	return poller.PollUntilTerminal(ctx, file.ServerFileID)
}

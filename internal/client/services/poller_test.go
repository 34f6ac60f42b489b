package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notecompanion/pipeline/internal/client/api"
	"github.com/notecompanion/pipeline/internal/common"
	"github.com/notecompanion/pipeline/internal/logging"
)

// sequenceAPI replays a scripted sequence of status responses.
type sequenceAPI struct {
	steps []sequenceStep
	calls int
}

type sequenceStep struct {
	status *api.FileStatus
	err    error
}

func (s *sequenceAPI) UploadFile(context.Context, api.UploadRequest) (*api.UploadResponse, error) {
	return nil, errors.New("not used")
}

func (s *sequenceAPI) GetFileStatus(context.Context, string) (*api.FileStatus, error) {
	step := s.steps[len(s.steps)-1]
	if s.calls < len(s.steps) {
		step = s.steps[s.calls]
	}
	s.calls++
	return step.status, step.err
}

func fastPoller(client api.Client, maxAttempts uint64) *Poller {
	return &Poller{
		client:       client,
		logger:       logging.NewSlogLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))),
		initialDelay: time.Millisecond,
		maxAttempts:  maxAttempts,
		Interval:     time.Millisecond,
	}
}

func TestPollUntilTerminal_NotFoundThenCompleted(t *testing.T) {
	client := &sequenceAPI{steps: []sequenceStep{
		{err: common.ErrorNotFound},
		{err: common.ErrorNotFound},
		{status: &api.FileStatus{Status: "completed", TextContent: "done", TokensUsed: 9}},
	}}
	p := fastPoller(client, 30)

	status, err := p.PollUntilTerminal(context.Background(), "f-1")
	require.NoError(t, err)
	assert.Equal(t, "completed", status.Status)
	assert.Equal(t, "done", status.TextContent)
	assert.Equal(t, 3, client.calls)
}

func TestPollUntilTerminal_WaitsThroughProcessing(t *testing.T) {
	client := &sequenceAPI{steps: []sequenceStep{
		{status: &api.FileStatus{Status: "pending"}},
		{status: &api.FileStatus{Status: "processing"}},
		{status: &api.FileStatus{Status: "error", Error: "Unsupported file type: application/zip"}},
	}}
	p := fastPoller(client, 30)

	status, err := p.PollUntilTerminal(context.Background(), "f-1")
	require.NoError(t, err)
	// Error is terminal for the poller; the record will not change again.
	assert.Equal(t, "error", status.Status)
	assert.Contains(t, status.Error, "Unsupported")
}

func TestPollUntilTerminal_TimesOutAfterBudget(t *testing.T) {
	client := &sequenceAPI{steps: []sequenceStep{
		{status: &api.FileStatus{Status: "processing"}},
	}}
	p := fastPoller(client, 4)

	_, err := p.PollUntilTerminal(context.Background(), "f-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrPollTimeout), "want common.ErrPollTimeout, got %v", err)
	assert.Equal(t, 4, client.calls)
}

func TestPollUntilTerminal_NeverVisibleTimesOut(t *testing.T) {
	client := &sequenceAPI{steps: []sequenceStep{
		{err: common.ErrorNotFound},
	}}
	p := fastPoller(client, 3)

	_, err := p.PollUntilTerminal(context.Background(), "f-1")
	assert.True(t, errors.Is(err, common.ErrPollTimeout), "want common.ErrPollTimeout, got %v", err)
}

func TestPollUntilTerminal_HardFailureStopsEarly(t *testing.T) {
	client := &sequenceAPI{steps: []sequenceStep{
		{err: common.ErrorUnauthorized},
	}}
	p := fastPoller(client, 30)

	_, err := p.PollUntilTerminal(context.Background(), "f-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrorUnauthorized))
	assert.Equal(t, 1, client.calls)
}

func TestPollUntilTerminal_ContextCancel(t *testing.T) {
	client := &sequenceAPI{steps: []sequenceStep{
		{status: &api.FileStatus{Status: "processing"}},
	}}
	p := fastPoller(client, 1000)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.PollUntilTerminal(ctx, "f-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestSubmit_TextSkipsPolling(t *testing.T) {
	env := newQueueEnv(t)
	file := env.capture(t, "note.txt", []byte("hello"))

	env.client.responses["note.txt"] = &api.UploadResponse{FileID: "srv-1", Status: "completed"}
	env.client.statuses["srv-1"] = &api.FileStatus{Status: "completed", TextContent: "hello"}

	// The poller would block for many intervals; text must bypass it.
	poller := fastPoller(env.client, 1)

	status, err := Submit(context.Background(), env.svc, poller, env.client, file.LocalID, true)
	require.NoError(t, err)
	assert.Equal(t, "completed", status.Status)
	assert.Equal(t, "hello", status.TextContent)
}

func TestSubmit_UploadNeverSucceeded(t *testing.T) {
	env := newQueueEnv(t)
	file := env.capture(t, "a.txt", []byte("a"))
	env.client.uploadErr = errors.New("server unreachable")

	poller := fastPoller(env.client, 1)

	_, err := Submit(context.Background(), env.svc, poller, env.client, file.LocalID, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not complete")
}

// Package common defines shared constants and sentinel errors used across
// the client and server layers. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Object-store errors: wrapped by the gateway so callers can
	// distinguish a failed download from a failed upload.
	ErrDownload = errors.New("object download failed")
	ErrUpload   = errors.New("object upload failed")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Record lifecycle errors.
	ErrNotRequeueable = errors.New("record is not in an errored state")

	// Client queue errors.
	ErrQueueEmpty     = errors.New("sync queue is empty")
	ErrContentMissing = errors.New("queued content file is missing")
	ErrPollTimeout    = errors.New("status polling timed out")
)

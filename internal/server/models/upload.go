// Package models defines server-side data models persisted in the database.
package models

import "time"

// UploadStatus represents the lifecycle of an upload record.
type UploadStatus string

const (
	StatusPending    UploadStatus = "pending"
	StatusProcessing UploadStatus = "processing"
	StatusCompleted  UploadStatus = "completed"
	StatusError      UploadStatus = "error"
)

var allStatuses = []UploadStatus{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusError,
}

var statusSet = func() map[UploadStatus]struct{} {
	set := make(map[UploadStatus]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Valid reports whether s is a known upload status.
func (s UploadStatus) Valid() bool {
	_, ok := statusSet[s]
	return ok
}

// Terminal reports whether the batch worker makes no further automatic
// transition from s. Errored records need an explicit requeue.
func (s UploadStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// ProcessType selects the extraction strategy requested by the client
// at upload time.
type ProcessType string

const (
	// ProcessStandardOCR extracts markdown text from an image via the
	// vision model.
	ProcessStandardOCR ProcessType = "standard-ocr"
	// ProcessMagicDiagram digitizes a hand-drawn sketch into a generated
	// image.
	ProcessMagicDiagram ProcessType = "magic-diagram"
)

// UploadRecord is a row in the uploads table; the single source of truth
// for pipeline state. Mutated only by the batch worker after intake.
type UploadRecord struct {
	// ID is assigned at creation and immutable.
	ID string
	// UserID is the owning user.
	UserID string

	// ObjectKey locates the raw bytes in the object store. It may be empty
	// at creation and derived later from PublicURL.
	ObjectKey string
	// PublicURL is an optional directly-fetchable URL for the raw bytes,
	// used by extraction strategies that pass a URL to the AI provider.
	PublicURL string

	// FileType is the MIME type used to dispatch the extraction strategy.
	FileType string
	// ProcessType is the client-chosen strategy.
	ProcessType ProcessType

	Status UploadStatus

	// TextContent holds extracted text, or a human-readable placeholder.
	TextContent string
	// GeneratedImageURL is set only by the diagram-generation strategy.
	GeneratedImageURL string
	// TokensUsed is the billable cost attributed to this processing attempt.
	TokensUsed int
	// Error holds the last failure reason; cleared when a retry begins.
	Error string

	CreatedAt time.Time
	UpdatedAt time.Time
}

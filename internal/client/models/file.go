// Package models defines client-side data models used by the companion app.
package models

import "time"

// LocalStatus tracks a locally captured item through upload.
type LocalStatus string

const (
	StatusPending    LocalStatus = "pending"
	StatusProcessing LocalStatus = "processing"
	StatusCompleted  LocalStatus = "completed"
	StatusError      LocalStatus = "error"
	// StatusDead marks an item that exhausted its retry budget; it no
	// longer rotates through the sync queue and needs an explicit retry.
	StatusDead LocalStatus = "dead"
)

// SharedFile is content handed to the app by the share sheet or picked by
// the user, before it is persisted locally.
type SharedFile struct {
	// Name is the display file name.
	Name string
	// FileType is the MIME type.
	FileType string
	// ProcessType requests an extraction strategy ("standard-ocr" or
	// "magic-diagram"); empty defaults server-side.
	ProcessType string
	// Data is the raw content.
	Data []byte
}

// IsText reports whether the shared content is plain text or markdown.
func (f SharedFile) IsText() bool {
	return f.FileType == "text/plain" || f.FileType == "text/markdown"
}

// LocalFile is the durable metadata row for a captured item. The content
// itself lives on disk at ContentPath; a metadata row without its content
// file is treated as corruption.
type LocalFile struct {
	// LocalID is the client-generated unique id.
	LocalID string
	Name    string
	// FileType is the MIME type.
	FileType string
	// ProcessType is the requested extraction strategy.
	ProcessType string

	Status LocalStatus

	// Preview is a text snippet for text content, or the thumbnail path
	// for images.
	Preview string
	// ContentPath is the on-disk location of the saved content.
	ContentPath string

	// ServerFileID is set once the server accepts the upload.
	ServerFileID string

	// Attempts counts failed upload attempts.
	Attempts int
	// LastAttempt is the time of the most recent attempt.
	LastAttempt time.Time
	// Error is the most recent failure reason.
	Error string

	CreatedAt time.Time
}

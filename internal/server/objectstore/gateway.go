// Package objectstore wraps the S3-compatible object store behind a small
// gateway interface: download by key, upload by key, public URL derivation.
// The gateway performs no retries; callers decide retry policy.
package objectstore

import "context"

// Gateway moves raw bytes in and out of the object store.
type Gateway interface {
	// Download returns the object's bytes, wrapping common.ErrDownload when
	// the key is absent or the backing store errors.
	Download(ctx context.Context, key string) ([]byte, error)

	// Upload stores data under key with the given content type, wrapping
	// common.ErrUpload on failure.
	Upload(ctx context.Context, key string, data []byte, contentType string) error

	// PublicURL returns the directly-fetchable URL for key.
	PublicURL(key string) string
}

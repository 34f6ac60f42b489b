// Package store keeps captured content on disk, one directory per item.
// Content is always persisted locally before any network call, so a failed
// upload never loses the user's capture.
package store

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/notecompanion/pipeline/internal/client/models"
	"github.com/notecompanion/pipeline/internal/common"
	"github.com/notecompanion/pipeline/internal/filex"
)

// ContentStore writes and reads per-item content files under a root
// directory: {root}/{localId}/content{ext}.
type ContentStore struct {
	root string
}

// NewContentStore roots the store at dir.
func NewContentStore(dir string) *ContentStore {
	return &ContentStore{root: dir}
}

// Save persists the shared file's content and returns the metadata to
// record: a fresh local id, the content path, and a preview (text snippet
// for text content, thumbnail path for images).
func (s *ContentStore) Save(shared models.SharedFile) (*models.LocalFile, error) {
	localID := uuid.NewString()
	itemDir := filepath.Join(s.root, localID)

	contentPath := filepath.Join(itemDir, "content"+extensionFor(shared))
	if err := filex.WriteFileAtomic(contentPath, shared.Data, 0o660); err != nil {
		return nil, fmt.Errorf("save content: %w", err)
	}

	preview := ""
	switch {
	case shared.IsText():
		preview = MakePreview(string(shared.Data), MaxPreviewLen)
	case strings.HasPrefix(shared.FileType, "image/"):
		thumbPath := filepath.Join(itemDir, "thumbnail"+extensionFor(shared))
		if err := filex.CopyFile(contentPath, thumbPath); err != nil {
			return nil, fmt.Errorf("save thumbnail: %w", err)
		}
		preview = thumbPath
	}

	return &models.LocalFile{
		LocalID:     localID,
		Name:        shared.Name,
		FileType:    shared.FileType,
		ProcessType: shared.ProcessType,
		Status:      models.StatusPending,
		Preview:     preview,
		ContentPath: contentPath,
	}, nil
}

// Load reads an item's content back, mapping a missing file to
// common.ErrContentMissing so callers can apply the corruption rule.
func (s *ContentStore) Load(contentPath string) ([]byte, error) {
	data, err := os.ReadFile(contentPath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", common.ErrContentMissing, contentPath)
	}
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	return data, nil
}

// Remove deletes the item's directory and everything in it.
func (s *ContentStore) Remove(localID string) error {
	return os.RemoveAll(filepath.Join(s.root, localID))
}

func extensionFor(shared models.SharedFile) string {
	if ext := filepath.Ext(shared.Name); ext != "" {
		return ext
	}
	if exts, err := mime.ExtensionsByType(shared.FileType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore lays out generated artifacts on the local filesystem. Every
// session gets its own subtree so concurrent, unrelated sessions never
// collide, and files are named positionally so index-based pairing between
// the image and video stages is recoverable from the filesystem alone even
// if a checkpoint is lost.
type FileStore struct {
	basePath string
}

// NewFileStore initializes a FileStore rooted at basePath.
func NewFileStore(basePath string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// Path resolves a storage key to an absolute filesystem path. Keys are
// cleaned to prevent directory traversal.
func (s *FileStore) Path(key string) (string, error) {
	if s == nil {
		return "", errors.New("storage: no store configured")
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, filepath.FromSlash(cleanKey)), nil
}

// Write persists the provided bytes at the given relative key and returns the
// absolute path of the written file.
func (s *FileStore) Write(ctx context.Context, key string, data []byte) (string, error) {
	if s == nil {
		return "", errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fullPath, err := s.Path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: ensure directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	return fullPath, nil
}

// ImageKey returns the storage key for image candidate j of item index within
// a session. The extension is left off: the downloader appends one derived
// from the response's content type. Single-candidate items (candidate 0 of 1)
// use the plain image_<index> name.
func ImageKey(sessionID string, index, candidate, total int) string {
	name := fmt.Sprintf("image_%d", index)
	if total > 1 {
		name = fmt.Sprintf("image_%d_%d", index, candidate)
	}
	return fmt.Sprintf("images/%s/%s", sessionID, name)
}

// ReferenceKey returns the storage key for a session's uploaded reference
// image.
func ReferenceKey(sessionID string) string {
	return fmt.Sprintf("images/%s/reference.jpg", sessionID)
}

// VideoKey returns the storage key for item index's rendered clip.
func VideoKey(sessionID string, index int) string {
	return fmt.Sprintf("videos/%s/video_%d.mp4", sessionID, index)
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.Clean(key)
	cleaned = strings.ReplaceAll(cleaned, "\\", "/")
	if cleaned == "." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}

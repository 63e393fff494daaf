// Package storage provides blob-based persistence with pluggable backends.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jaehoon-lim/wonfolio/internal/common"
)

// FileBlobStore implements BlobStore using the local filesystem.
// Keys are mapped to file paths under the base directory.
// Key format: "state/portfolio.json" -> "{basePath}/state/portfolio.json"
type FileBlobStore struct {
	basePath string
	logger   *common.Logger
}

var _ BlobStore = (*FileBlobStore)(nil)

// NewFileBlobStore creates a new file-based blob store.
func NewFileBlobStore(logger *common.Logger, basePath string) (*FileBlobStore, error) {
	if basePath == "" {
		return nil, fmt.Errorf("file blob store base_path is required")
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory %s: %w", basePath, err)
	}

	fb := &FileBlobStore{
		basePath: basePath,
		logger:   logger,
	}

	logger.Debug().Str("path", basePath).Msg("FileBlobStore initialized")
	return fb, nil
}

// sanitizeKey converts a key to a safe filesystem path.
// Prevents path traversal while allowing "/" for subdirectories.
func (fb *FileBlobStore) sanitizeKey(key string) string {
	clean := filepath.Clean(key)
	clean = strings.TrimPrefix(clean, "/")
	if strings.Contains(clean, "..") {
		clean = strings.ReplaceAll(clean, "..", "__")
	}
	return clean
}

func (fb *FileBlobStore) keyToPath(key string) string {
	return filepath.Join(fb.basePath, fb.sanitizeKey(key))
}

// Get retrieves a blob by key.
func (fb *FileBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(fb.keyToPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to read blob %s: %w", key, err)
	}
	return data, nil
}

// Put stores a blob atomically using temp file + rename.
func (fb *FileBlobStore) Put(ctx context.Context, key string, data []byte) error {
	path := fb.keyToPath(key)
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Delete removes a blob. No error if not found.
func (fb *FileBlobStore) Delete(ctx context.Context, key string) error {
	err := os.Remove(fb.keyToPath(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}
	return nil
}

// Exists checks if a blob exists.
func (fb *FileBlobStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(fb.keyToPath(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check blob %s: %w", key, err)
}

// Metadata returns metadata for a blob.
func (fb *FileBlobStore) Metadata(ctx context.Context, key string) (*BlobMetadata, error) {
	info, err := os.Stat(fb.keyToPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to stat blob %s: %w", key, err)
	}

	return &BlobMetadata{
		Key:          key,
		Size:         info.Size(),
		LastModified: info.ModTime(),
	}, nil
}

// List returns blobs matching the given options.
func (fb *FileBlobStore) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	searchDir := fb.basePath
	prefix := opts.Prefix

	if prefix != "" {
		prefixDir := filepath.Dir(prefix)
		if prefixDir != "." {
			searchDir = filepath.Join(fb.basePath, prefixDir)
		}
	}

	maxKeys := opts.MaxKeys
	if maxKeys <= 0 {
		maxKeys = 1000
	}

	var blobs []BlobMetadata
	err := filepath.Walk(searchDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip inaccessible paths
		}
		if info.IsDir() {
			return nil
		}
		if strings.HasPrefix(info.Name(), ".tmp-") {
			return nil // Skip in-flight writes
		}

		relPath, err := filepath.Rel(fb.basePath, path)
		if err != nil {
			return nil
		}
		key := filepath.ToSlash(relPath)

		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}
		if len(blobs) >= maxKeys {
			return filepath.SkipAll
		}

		blobs = append(blobs, BlobMetadata{
			Key:          key,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})

	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}

	return &ListResult{
		Blobs:     blobs,
		Truncated: len(blobs) >= maxKeys,
	}, nil
}

// Close releases resources (no-op for file storage).
func (fb *FileBlobStore) Close() error {
	return nil
}

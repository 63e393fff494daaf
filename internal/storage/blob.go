// Package storage provides blob-based persistence with pluggable backends.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrBlobNotFound is returned when a requested blob does not exist.
var ErrBlobNotFound = errors.New("blob not found")

// BlobMetadata contains metadata about a stored blob.
type BlobMetadata struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// ListOptions configures blob listing behavior.
type ListOptions struct {
	Prefix  string // Only return keys with this prefix
	MaxKeys int    // Maximum number of keys to return (0 = default limit)
}

// ListResult contains the results of a list operation.
type ListResult struct {
	Blobs     []BlobMetadata `json:"blobs"`
	Truncated bool           `json:"truncated"` // True if more results available
}

// BlobStore defines a provider-agnostic interface for blob storage.
type BlobStore interface {
	// Get retrieves a blob by key. Returns ErrBlobNotFound if not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores a blob. Overwrites if exists. The write is atomic: readers
	// never observe a partially written blob.
	Put(ctx context.Context, key string, data []byte) error

	// Delete removes a blob. No error if not found.
	Delete(ctx context.Context, key string) error

	// Exists checks if a blob exists.
	Exists(ctx context.Context, key string) (bool, error)

	// Metadata returns metadata for a blob. Returns ErrBlobNotFound if not found.
	Metadata(ctx context.Context, key string) (*BlobMetadata, error)

	// List returns blobs matching the given options.
	List(ctx context.Context, opts ListOptions) (*ListResult, error)

	// Close releases any resources held by the store.
	Close() error
}

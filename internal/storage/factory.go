// Package storage provides blob-based persistence with pluggable backends.
package storage

import (
	"fmt"

	"github.com/jaehoon-lim/wonfolio/internal/common"
)

// Backend type constants.
const (
	BackendFile  = "file"
	BackendDrive = "drive"
)

// NewBlobStore creates a blob store based on the configuration.
// Supported backends: "file" (default), "drive".
func NewBlobStore(logger *common.Logger, config *common.StorageConfig) (BlobStore, error) {
	backend := config.Backend
	if backend == "" {
		backend = BackendFile
	}

	switch backend {
	case BackendFile:
		return NewFileBlobStore(logger, config.BasePath)

	case BackendDrive:
		return nil, fmt.Errorf("drive blob store not yet implemented")

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: file, drive)", backend)
	}
}

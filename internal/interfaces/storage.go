// Package interfaces defines service contracts for wonfolio
package interfaces

import (
	"context"

	"github.com/jaehoon-lim/wonfolio/internal/models"
)

// StateStore persists the application state as a single document. Saves are
// whole-document and atomic; a crash mid-save never leaves a torn file.
type StateStore interface {
	// Load reads the current state, migrating legacy document shapes to the
	// current schema. A missing document yields a fresh empty state.
	Load(ctx context.Context) (*models.AppState, error)

	// Save writes the complete state document atomically.
	Save(ctx context.Context, state *models.AppState) error

	// Update runs fn against the current document and persists the result,
	// all inside the store's write lock. Mutations must go through Update so
	// a slow read-modify-write span cannot clobber a concurrent writer.
	Update(ctx context.Context, fn func(*models.AppState) error) error

	// WriteRaw writes arbitrary binary data to a subdirectory atomically.
	// Key is sanitized for safe filenames (e.g. "growth.png").
	WriteRaw(subdir, key string, data []byte) error

	Close() error
}

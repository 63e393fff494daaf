package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/jaehoon-lim/wonfolio/internal/common"
	"github.com/jaehoon-lim/wonfolio/internal/interfaces"
	"github.com/jaehoon-lim/wonfolio/internal/models"
)

// StateStore persists the application state as one JSON document in a blob
// store. A mutex serializes saves, and Update extends it over the whole
// read-modify-write span for mutating callers.
type StateStore struct {
	blobs  BlobStore
	key    string
	logger *common.Logger
	mu     sync.Mutex
}

var _ interfaces.StateStore = (*StateStore)(nil)

// NewStateStore creates a state store on top of a blob store. key is the
// blob key of the state document, e.g. "state/portfolio.json".
func NewStateStore(logger *common.Logger, blobs BlobStore, key string) *StateStore {
	if key == "" {
		key = "state/portfolio.json"
	}
	return &StateStore{
		blobs:  blobs,
		key:    key,
		logger: logger,
	}
}

// Load reads the state document, migrating legacy shapes to the current
// schema. A missing document yields a fresh empty state.
func (s *StateStore) Load(ctx context.Context) (*models.AppState, error) {
	raw, err := s.blobs.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			s.logger.Info().Str("key", s.key).Msg("no state document found, starting empty")
			return models.NewAppState(), nil
		}
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	state, err := models.MigrateState(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}

	s.logger.Debug().
		Int("assets", len(state.Assets)).
		Int("snapshots", len(state.Snapshots)).
		Msg("state loaded")
	return state, nil
}

// Save writes the complete state document atomically.
func (s *StateStore) Save(ctx context.Context, state *models.AppState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, state)
}

// Update re-reads the document, applies fn and persists the result while
// holding the write lock, so the whole read-modify-write span is one
// critical section.
func (s *StateStore) Update(ctx context.Context, fn func(*models.AppState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if err := fn(state); err != nil {
		return err
	}
	return s.save(ctx, state)
}

func (s *StateStore) save(ctx context.Context, state *models.AppState) error {
	state.SchemaVersion = models.SchemaVersion
	state.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	if err := s.blobs.Put(ctx, s.key, data); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}

	s.logger.Debug().Int("bytes", len(data)).Msg("state saved")
	return nil
}

// WriteRaw writes arbitrary binary data under a subdirectory, e.g. generated
// chart images.
func (s *StateStore) WriteRaw(subdir, key string, data []byte) error {
	if key == "" {
		return fmt.Errorf("raw write key is required")
	}
	return s.blobs.Put(context.Background(), path.Join(subdir, key), data)
}

// Close releases the underlying blob store.
func (s *StateStore) Close() error {
	return s.blobs.Close()
}

package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaehoon-lim/wonfolio/internal/common"
)

func newTestBlobStore(t *testing.T) *FileBlobStore {
	t.Helper()
	store, err := NewFileBlobStore(common.NewSilentLogger(), t.TempDir())
	require.NoError(t, err)
	return store
}

func TestFileBlobStoreRoundTrip(t *testing.T) {
	store := newTestBlobStore(t)
	ctx := context.Background()

	err := store.Put(ctx, "state/portfolio.json", []byte(`{"assets":[]}`))
	require.NoError(t, err)

	data, err := store.Get(ctx, "state/portfolio.json")
	require.NoError(t, err)
	assert.Equal(t, `{"assets":[]}`, string(data))

	exists, err := store.Exists(ctx, "state/portfolio.json")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestFileBlobStoreGetMissing(t *testing.T) {
	store := newTestBlobStore(t)

	_, err := store.Get(context.Background(), "nope.json")
	assert.ErrorIs(t, err, ErrBlobNotFound)

	exists, err := store.Exists(context.Background(), "nope.json")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFileBlobStoreOverwrite(t *testing.T) {
	store := newTestBlobStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", []byte("first")))
	require.NoError(t, store.Put(ctx, "k", []byte("second")))

	data, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestFileBlobStoreDeleteIdempotent(t *testing.T) {
	store := newTestBlobStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", []byte("v")))
	require.NoError(t, store.Delete(ctx, "k"))
	require.NoError(t, store.Delete(ctx, "k"), "deleting a missing blob is not an error")

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrBlobNotFound)
}

func TestFileBlobStoreSanitizesTraversal(t *testing.T) {
	store := newTestBlobStore(t)
	ctx := context.Background()

	// A traversal key must not escape the base directory.
	err := store.Put(ctx, "../../etc/escape.json", []byte("x"))
	require.NoError(t, err)

	entries, err := filepath.Glob(filepath.Join(store.basePath, "*"))
	require.NoError(t, err)
	assert.NotEmpty(t, entries, "sanitized key lands inside the base directory")

	parent := filepath.Dir(store.basePath)
	_, statErr := os.Stat(filepath.Join(parent, "etc", "escape.json"))
	assert.True(t, os.IsNotExist(statErr), "no file written outside the base directory")
}

func TestFileBlobStoreNoTempFilesLeft(t *testing.T) {
	store := newTestBlobStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Put(ctx, "state/doc.json", []byte("payload")))
	}

	matches, err := filepath.Glob(filepath.Join(store.basePath, "state", ".tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, matches, "atomic writes clean up their temp files")
}

func TestFileBlobStoreList(t *testing.T) {
	store := newTestBlobStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "charts/growth.png", []byte("png")))
	require.NoError(t, store.Put(ctx, "charts/alloc.png", []byte("png")))
	require.NoError(t, store.Put(ctx, "state/portfolio.json", []byte("{}")))

	result, err := store.List(ctx, ListOptions{Prefix: "charts/"})
	require.NoError(t, err)
	assert.Len(t, result.Blobs, 2)
	for _, b := range result.Blobs {
		assert.Contains(t, b.Key, "charts/")
	}
}

func TestNewBlobStoreFactory(t *testing.T) {
	logger := common.NewSilentLogger()

	t.Run("file backend", func(t *testing.T) {
		store, err := NewBlobStore(logger, &common.StorageConfig{Backend: "file", BasePath: t.TempDir()})
		require.NoError(t, err)
		assert.IsType(t, &FileBlobStore{}, store)
		assert.NoError(t, store.Close())
	})

	t.Run("empty backend defaults to file", func(t *testing.T) {
		store, err := NewBlobStore(logger, &common.StorageConfig{BasePath: t.TempDir()})
		require.NoError(t, err)
		assert.IsType(t, &FileBlobStore{}, store)
	})

	t.Run("drive backend not implemented", func(t *testing.T) {
		_, err := NewBlobStore(logger, &common.StorageConfig{Backend: "drive"})
		assert.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := NewBlobStore(logger, &common.StorageConfig{Backend: "tape"})
		assert.Error(t, err)
	})
}

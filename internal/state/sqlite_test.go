package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	ctx := t.Context()

	_, ok, err := store.Get(ctx, "build:img", "src/img/a.png")
	require.NoError(t, err)
	assert.False(t, ok)

	at := time.Unix(1700000000, 42)
	require.NoError(t, store.Put(ctx, Fingerprint{Pipeline: "build:img", Path: "src/img/a.png", Hash: Hash([]byte("a")), Size: 1, UpdatedAt: at}))

	fp, ok, err := store.Get(ctx, "build:img", "src/img/a.png")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Hash([]byte("a")), fp.Hash)
	assert.Equal(t, int64(1), fp.Size)
	assert.True(t, at.Equal(fp.UpdatedAt))

	require.NoError(t, store.Put(ctx, Fingerprint{Pipeline: "build:img", Path: "src/img/a.png", Hash: Hash([]byte("b")), Size: 1}))
	fp, _, err = store.Get(ctx, "build:img", "src/img/a.png")
	require.NoError(t, err)
	assert.Equal(t, Hash([]byte("b")), fp.Hash)

	n, err := store.Count(ctx, "build:img")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteStoreReset(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	ctx := t.Context()

	require.NoError(t, store.Put(ctx, Fingerprint{Pipeline: "build:img", Path: "a", Hash: "x"}))
	require.NoError(t, store.Put(ctx, Fingerprint{Pipeline: "other", Path: "a", Hash: "y"}))
	require.NoError(t, store.Reset(ctx, "build:img"))

	_, ok, err := store.Get(ctx, "build:img", "a")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = store.Get(ctx, "other", "a")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSQLiteStorePersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Put(t.Context(), Fingerprint{Pipeline: "p", Path: "a", Hash: "h"}))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	fp, ok, err := store.Get(t.Context(), "p", "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "h", fp.Hash)
}

func TestHash(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Hash(nil))
}

package persist

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_ReadBeforeAnyWriteIsUnset(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "state.json"))

	value, ok, err := store.ReadFlag(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "missing file must read as unset, not as false")
	assert.False(t, value)
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileStore(path)
	ctx := context.Background()

	require.NoError(t, store.WriteFlag(ctx, true))

	// A fresh store over the same path simulates a restart
	reopened := NewFileStore(path)
	value, ok, err := reopened.ReadFlag(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, value)

	require.NoError(t, store.WriteFlag(ctx, false))
	value, ok, err = reopened.ReadFlag(ctx)
	require.NoError(t, err)
	assert.True(t, ok, "a stored false is a preference, not unset")
	assert.False(t, value)
}

func TestFileStore_CreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "state.json")
	store := NewFileStore(path)

	require.NoError(t, store.WriteFlag(context.Background(), true))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileStore_DefaultPathUnderHome(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	store := NewFileStore("")
	assert.Equal(t, filepath.Join(os.Getenv("HOME"), DefaultDirName, DefaultFileName), store.Path())
}

func TestFileStore_WriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "state.json"))

	require.NoError(t, store.WriteFlag(context.Background(), true))
	require.NoError(t, store.WriteFlag(context.Background(), false))

	names, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, names, 1)
	assert.Equal(t, "state.json", names[0].Name())
}

func TestFileStore_CorruptFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	store := NewFileStore(path)

	_, _, err := store.ReadFlag(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFileStore_CancelledContext(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "state.json"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := store.ReadFlag(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.WriteFlag(ctx, true), context.Canceled)
}

func TestMemoryStore(t *testing.T) {
	var store MemoryStore
	ctx := context.Background()

	_, ok, err := store.ReadFlag(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.WriteFlag(ctx, true))
	value, ok, err := store.ReadFlag(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, value)

	store.Seed(false)
	value, ok, _ = store.ReadFlag(ctx)
	assert.True(t, ok)
	assert.False(t, value)
}

func TestMemoryStore_InjectedErrors(t *testing.T) {
	store := MemoryStore{ReadErr: ErrUnavailable, WriteErr: ErrUnavailable}
	ctx := context.Background()

	_, _, err := store.ReadFlag(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, store.WriteFlag(ctx, true), ErrUnavailable)
}

package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-pulse/pulsekit/core"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	s, err := NewFileStore(path)
	require.NoError(t, err)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrKeyNotFound)

	require.NoError(t, s.Set(ctx, "session", `{"state":"authenticated"}`))
	got, err := s.Get(ctx, "session")
	require.NoError(t, err)
	assert.Equal(t, `{"state":"authenticated"}`, got)

	require.NoError(t, s.Delete(ctx, "session"))
	_, err = s.Get(ctx, "session")
	assert.ErrorIs(t, err, core.ErrKeyNotFound)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")

	s1, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s1.Set(ctx, "k", "v"))

	// A second instance over the same file sees the value: this is the
	// durability the login round trip depends on.
	s2, err := NewFileStore(path)
	require.NoError(t, err)
	got, err := s2.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestFileStoreLeavesNoTempFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	s, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "k", "v"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "state.json", entries[0].Name())
}

func TestFileStoreDeleteAbsentKey(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)

	assert.NoError(t, s.Delete(ctx, "never-set"))
}

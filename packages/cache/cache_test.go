package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	c, err := Open(dir)
	require.NoError(t, err)
	defer c.Close()

	assert.NotEmpty(t, c.RunID())

	durations := map[string]time.Duration{
		"tests/test_a::test_fast": 12 * time.Millisecond,
		"tests/test_a::test_slow": 3 * time.Second,
	}
	require.NoError(t, c.Save(ctx, durations))

	loaded, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, durations, loaded)
}

func TestCache_EmptyDatabase(t *testing.T) {
	c, err := Open(t.TempDir())
	require.NoError(t, err)
	defer c.Close()

	loaded, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestCache_UpsertOverwrites(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	c, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, c.Save(ctx, map[string]time.Duration{"t::a": time.Second}))
	require.NoError(t, c.Close())

	// A later run overwrites and is visible to the next open.
	c2, err := Open(dir)
	require.NoError(t, err)
	defer c2.Close()
	require.NoError(t, c2.Save(ctx, map[string]time.Duration{"t::a": 2 * time.Second}))

	loaded, err := c2.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, loaded["t::a"])
}

func TestCache_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")

	c, err := Open(dir)
	require.NoError(t, err)
	defer c.Close()

	assert.DirExists(t, dir)
}

func TestCache_DistinctRunIDs(t *testing.T) {
	c1, err := Open(t.TempDir())
	require.NoError(t, err)
	defer c1.Close()

	c2, err := Open(t.TempDir())
	require.NoError(t, err)
	defer c2.Close()

	assert.NotEqual(t, c1.RunID(), c2.RunID())
}

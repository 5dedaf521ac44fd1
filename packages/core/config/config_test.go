package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultCacheDir, cfg.CacheDir)
	assert.False(t, cfg.GetFailFast())
	assert.False(t, cfg.GetNoCache())
}

func TestEffectiveWorkers(t *testing.T) {
	cfg := &Config{Workers: 4}
	assert.Equal(t, 4, cfg.EffectiveWorkers())

	cfg.NoParallel = BoolPtr(true)
	assert.Equal(t, 1, cfg.EffectiveWorkers())

	auto := &Config{}
	assert.Greater(t, auto.EffectiveWorkers(), 0)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixrun.yaml")
	content := `workers: 8
failFast: true
retry: 2
tagExpressions:
  - "db and not slow"
cacheDir: .cache/fixrun
shell: bash
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Workers)
	assert.True(t, cfg.GetFailFast())
	assert.Equal(t, 2, cfg.Retry)
	assert.Equal(t, []string{"db and not slow"}, cfg.TagExpressions)
	assert.Equal(t, ".cache/fixrun", cfg.CacheDir)
	assert.Equal(t, "bash", cfg.Shell)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixrun.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: [not an int"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestFindAndLoad_MissingIsDefault(t *testing.T) {
	cfg, err := FindAndLoad(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultCacheDir, cfg.CacheDir)
}

func TestFindAndLoad_SearchOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fixrun.yaml"), []byte("workers: 2"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".fixrun.yaml"), []byte("workers: 9"), 0o644))

	// The dotted name is searched first.
	cfg, err := FindAndLoad(dir)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Workers)
}

func TestMerge_FlagsWin(t *testing.T) {
	file := &Config{
		Workers:  4,
		Retry:    1,
		FailFast: BoolPtr(true),
		CacheDir: ".cache",
	}
	flags := &Config{
		Workers:    8,
		NoParallel: BoolPtr(true),
	}

	merged := file.Merge(flags)
	assert.Equal(t, 8, merged.Workers)
	assert.Equal(t, 1, merged.Retry)
	assert.True(t, merged.GetFailFast())
	assert.True(t, merged.GetNoParallel())
	assert.Equal(t, ".cache", merged.CacheDir)
}

func TestMerge_UnsetBoolsDoNotOverride(t *testing.T) {
	file := &Config{FailFast: BoolPtr(true)}
	merged := file.Merge(&Config{})
	assert.True(t, merged.GetFailFast())

	// An explicit false does override.
	merged = file.Merge(&Config{FailFast: BoolPtr(false)})
	assert.False(t, merged.GetFailFast())
}

func TestMerge_Nil(t *testing.T) {
	cfg := &Config{Workers: 3}
	assert.Equal(t, cfg, cfg.Merge(nil))
}

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "descry.yml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestFileLoaderMissingFileYieldsDefaults(t *testing.T) {
	loader := NewFileLoader(filepath.Join(t.TempDir(), "absent.yml"))
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, Default().DefaultMode, cfg.DefaultMode)
}

func TestFileLoaderPartialOverride(t *testing.T) {
	path := writeConfig(t, `
defaultMode: ensemble
timeout: 5s
ensemble:
  minConsensus: 3
  overrideConfidence: 0.9
`)
	cfg, err := NewFileLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "ensemble", cfg.DefaultMode)
	assert.Equal(t, 5*time.Second, cfg.Timeout.Std())
	assert.Equal(t, 3, cfg.Ensemble.MinConsensus)
	// Untouched defaults survive a partial file.
	assert.Equal(t, Default().MaxDescriptions, cfg.MaxDescriptions)
	assert.Contains(t, cfg.Processors, "heuristic")
}

func TestFileLoaderInvalidYAML(t *testing.T) {
	path := writeConfig(t, "defaultMode: [broken")
	_, err := NewFileLoader(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestFileLoaderInvalidDuration(t *testing.T) {
	path := writeConfig(t, "timeout: soon\n")
	_, err := NewFileLoader(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestFileLoaderInvalidValues(t *testing.T) {
	path := writeConfig(t, "defaultMode: turbo\n")
	_, err := NewFileLoader(path).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validating config")
}

func TestStaticLoader(t *testing.T) {
	cfg, err := (&StaticLoader{Config: Default()}).Load()
	require.NoError(t, err)
	assert.Equal(t, "parallel", cfg.DefaultMode)

	_, err = (&StaticLoader{}).Load()
	assert.Error(t, err)

	bad := Default()
	bad.DefaultMode = "nope"
	_, err = (&StaticLoader{Config: bad}).Load()
	assert.Error(t, err)
}

func TestWatcherFiresOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "descry.yml")
	require.NoError(t, os.WriteFile(path, []byte("defaultMode: parallel\n"), 0o644))

	changed := make(chan struct{}, 4)
	w, err := NewWatcher(path, func() { changed <- struct{}{} })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher a moment to start, then touch the file.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("defaultMode: ensemble\n"), 0o644))

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not fire within 5s")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop within 5s")
	}
}

package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, path string) <-chan struct{} {
	t.Helper()
	cfg := DefaultConfig(path)
	cfg.DebounceDur = 50 * time.Millisecond

	w, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	changes, err := w.Start()
	require.NoError(t, err)
	return changes
}

func TestWatcher_SignalsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: localhost:8778\n"), 0o600))

	changes := startWatcher(t, path)

	require.NoError(t, os.WriteFile(path, []byte("addr: localhost:9000\n"), 0o600))

	select {
	case <-changes:
	case <-time.After(2 * time.Second):
		t.Fatal("no change signal after write")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a: 1\n"), 0o600))

	changes := startWatcher(t, path)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("b: 2\n"), 0o600))

	select {
	case <-changes:
		t.Fatal("unexpected signal for unrelated file")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a: 1\n"), 0o600))

	changes := startWatcher(t, path)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("a: 2\n"), 0o600))
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case <-changes:
	case <-time.After(2 * time.Second):
		t.Fatal("no change signal after burst")
	}

	// The burst collapses into a single signal.
	select {
	case <-changes:
		t.Fatal("burst produced more than one signal")
	case <-time.After(300 * time.Millisecond):
	}
}

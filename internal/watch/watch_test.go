package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, cfg Config) <-chan string {
	t.Helper()
	reasons := make(chan string, 16)
	cfg.Build = func(_ context.Context, reason string) error {
		reasons <- reason
		return nil
	}
	w, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return reasons
}

func next(t *testing.T, reasons <-chan string) string {
	t.Helper()
	select {
	case r := <-reasons:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("no build within 5s")
		return ""
	}
}

func TestChangeTriggersBuild(t *testing.T) {
	root := t.TempDir()
	reasons := startWatcher(t, Config{
		Root:     root,
		Debounce: 20 * time.Millisecond,
		Suffixes: []string{".tex"},
		Ignore:   func(rel string, _ bool) bool { return strings.HasPrefix(rel, "drafts") },
	})
	assert.Equal(t, "initial", next(t, reasons))

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "drafts"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "drafts", "a.tex"), []byte("x"), 0o600))
	select {
	case r := <-reasons:
		t.Fatalf("unexpected build %q", r)
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(filepath.Join(root, "paper.tex"), []byte("\\documentclass{article}"), 0o600))
	assert.Equal(t, "change", next(t, reasons))
}

func TestIntervalTriggersBuild(t *testing.T) {
	reasons := startWatcher(t, Config{Root: t.TempDir(), Interval: 50 * time.Millisecond})
	assert.Equal(t, "initial", next(t, reasons))
	assert.Equal(t, "interval", next(t, reasons))
}

func TestBuildIsRequired(t *testing.T) {
	_, err := New(Config{Root: t.TempDir()})
	assert.Error(t, err)
}

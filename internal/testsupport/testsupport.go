// Package testsupport provides shared builders for package tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"clipscribe/internal/config"
	"clipscribe/internal/queue"
)

// NewConfig returns a validated config rooted in temp directories with
// settings tuned for fast tests.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ExportDir = filepath.Join(base, "exports")
	cfg.Download.RetryBackoffSeconds = 0
	cfg.Download.RetryBackoffCapSeconds = 0
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// MustOpenStore opens a job store in a temp directory and closes it when the
// test finishes.
func MustOpenStore(t *testing.T) *queue.Store {
	t.Helper()
	store, err := queue.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// WriteFile writes content into dir/name and returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

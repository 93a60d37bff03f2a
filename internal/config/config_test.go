package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipscribe/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.WorkDir = t.TempDir()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
work_dir = "` + filepath.Join(dir, "work") + `"

[download]
workers = 2
max_attempts = 5

[transcription]
model = "small"
language = "pt-BR"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be detected")
	}
	if resolved != path {
		t.Fatalf("resolved path %q, want %q", resolved, path)
	}
	if cfg.Download.Workers != 2 || cfg.Download.MaxAttempts != 5 {
		t.Fatalf("download overrides not applied: %+v", cfg.Download)
	}
	if cfg.Transcription.Model != "small" {
		t.Fatalf("model override not applied: %q", cfg.Transcription.Model)
	}
	if cfg.Download.QueueSize == 0 {
		t.Fatal("defaults should fill unset fields")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file")
	}
	if cfg.Download.Workers != 4 || cfg.Transcription.Workers != 1 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"zero download workers", func(c *config.Config) { c.Download.Workers = 0 }, "download.workers"},
		{"zero transcribe workers", func(c *config.Config) { c.Transcription.Workers = 0 }, "transcription.workers"},
		{"unknown model", func(c *config.Config) { c.Transcription.Model = "enormous" }, "transcription.model"},
		{"bad language", func(c *config.Config) { c.Transcription.Language = "!!" }, "transcription.language"},
		{"zero queue", func(c *config.Config) { c.Download.QueueSize = 0 }, "download.queue_size"},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.WorkDir = t.TempDir()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[download]") {
		t.Fatal("sample missing download section")
	}
}

package config

import (
	"fmt"
	"strings"
)

// normalize expands paths and canonicalizes string fields. It runs before
// Validate so validation sees the effective values.
func (c *Config) normalize() error {
	pathFields := []struct {
		name  string
		value *string
	}{
		{"work_dir", &c.Paths.WorkDir},
		{"log_dir", &c.Paths.LogDir},
		{"export_dir", &c.Paths.ExportDir},
	}
	for _, field := range pathFields {
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}

	c.Transcription.Model = strings.ToLower(strings.TrimSpace(c.Transcription.Model))
	c.Transcription.Language = strings.TrimSpace(c.Transcription.Language)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultWhisperModel
	}
	if c.Transcription.Language == "" {
		c.Transcription.Language = defaultLanguageHint
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}

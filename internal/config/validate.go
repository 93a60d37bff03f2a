package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"clipscribe/internal/language"
)

// Validate checks the configuration for values that would break a run.
// It aggregates all problems rather than stopping at the first.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		problems = append(problems, "paths.work_dir must not be empty")
	}

	if c.Download.Workers < 1 {
		problems = append(problems, "download.workers must be at least 1")
	}
	if c.Download.MaxAttempts < 1 {
		problems = append(problems, "download.max_attempts must be at least 1")
	}
	if c.Download.RetryBackoffSeconds < 0 {
		problems = append(problems, "download.retry_backoff_seconds must not be negative")
	}
	if c.Download.RetryBackoffCapSeconds < c.Download.RetryBackoffSeconds {
		problems = append(problems, "download.retry_backoff_cap_seconds must not be below retry_backoff_seconds")
	}
	if c.Download.FetchTimeoutSeconds < 1 {
		problems = append(problems, "download.fetch_timeout_seconds must be at least 1")
	}
	if c.Download.QueueSize < 1 {
		problems = append(problems, "download.queue_size must be at least 1")
	}

	if c.Transcription.Workers < 1 {
		problems = append(problems, "transcription.workers must be at least 1")
	}
	if !slices.Contains(ModelSizes, c.Transcription.Model) {
		problems = append(problems, fmt.Sprintf("transcription.model %q is not one of %s", c.Transcription.Model, strings.Join(ModelSizes, ", ")))
	}
	if _, err := language.Normalize(c.Transcription.Language); err != nil {
		problems = append(problems, fmt.Sprintf("transcription.language: %v", err))
	}
	if c.Transcription.TimeoutSeconds < 1 {
		problems = append(problems, "transcription.timeout_seconds must be at least 1")
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q must be console or json", c.Logging.Format))
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

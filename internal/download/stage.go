// Package download implements the fetch phase: it turns a claimed pending
// job into extracted audio plus metadata, retrying transient failures with
// exponential backoff.
package download

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"clipscribe/internal/config"
	"clipscribe/internal/logging"
	"clipscribe/internal/queue"
	"clipscribe/internal/services"
	"clipscribe/internal/stage"
)

// Fetcher downloads a video and leaves its audio at destAudio. The ytdlp
// service satisfies this; tests substitute fakes.
type Fetcher interface {
	Fetch(ctx context.Context, url, destAudio string) (*queue.Metadata, error)
}

// Stage fetches audio for one job at a time.
type Stage struct {
	store    *queue.Store
	fetcher  Fetcher
	cfg      config.Download
	workDir  string
	binaries []string
	logger   *slog.Logger

	// sleep is replaced in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewStage builds the download stage. workDir receives the temp audio files;
// binaries are checked by HealthCheck.
func NewStage(store *queue.Store, fetcher Fetcher, cfg config.Download, workDir string, binaries []string, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{
		store:    store,
		fetcher:  fetcher,
		cfg:      cfg,
		workDir:  workDir,
		binaries: binaries,
		logger:   logger.With(logging.String(logging.FieldStage, "download")),
		sleep:    sleepCtx,
	}
}

// Name implements stage.Handler.
func (s *Stage) Name() string { return "download" }

// SetSleep overrides the backoff sleeper (for testing).
func (s *Stage) SetSleep(sleep func(ctx context.Context, d time.Duration) error) {
	s.sleep = sleep
}

// HealthCheck verifies the external binaries resolve on PATH.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	for _, binary := range s.binaries {
		if _, err := exec.LookPath(binary); err != nil {
			return stage.Unhealthy(s.Name(), fmt.Sprintf("%s not found on PATH", binary))
		}
	}
	return stage.Healthy(s.Name())
}

// AudioPath returns the deterministic temp audio location for a job. Retries
// reuse the same path so a failed attempt never strands an extra file.
func (s *Stage) AudioPath(job *queue.Job) string {
	return filepath.Join(s.workDir, fmt.Sprintf("job-%d.wav", job.ID))
}

// Execute fetches the job's audio, retrying retriable failures up to the
// configured attempt limit with exponential backoff. On success the job
// carries metadata and a temp audio path; ownership of that file passes to
// the transcription phase. On failure any partial audio is removed here.
func (s *Stage) Execute(ctx context.Context, job *queue.Job) error {
	dest := s.AudioPath(job)
	logger := logging.WithContext(ctx, s.logger)

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		job.DownloadAttempts++
		if err := s.store.Update(ctx, job); err != nil {
			return services.Wrap(services.ErrConfiguration, "download", "record attempt", "", err)
		}
		if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
			return services.Wrap(services.ErrConfiguration, "download", "clear temp audio", "", err)
		}

		metadata, err := s.fetchOnce(ctx, job.SourceURL, dest)
		if err == nil {
			job.Metadata = metadata
			job.TempAudioPath = dest
			if err := s.store.Update(ctx, job); err != nil {
				return services.Wrap(services.ErrConfiguration, "download", "record result", "", err)
			}
			logger.Info("download complete",
				logging.Int(logging.FieldAttempt, job.DownloadAttempts),
				logging.String("title", metadata.Title),
				logging.Float64("duration_seconds", metadata.DurationSeconds))
			return nil
		}

		lastErr = err
		if !services.Retriable(err) {
			logger.Warn("download failed permanently",
				logging.Int(logging.FieldAttempt, job.DownloadAttempts),
				logging.Error(err))
			break
		}
		if attempt == s.cfg.MaxAttempts {
			logger.Warn("download attempts exhausted",
				logging.Int(logging.FieldAttempt, job.DownloadAttempts),
				logging.Error(err))
			break
		}
		delay := s.backoff(attempt)
		logger.Info("download retrying",
			logging.Int(logging.FieldAttempt, job.DownloadAttempts),
			logging.Duration("delay", delay),
			logging.Error(err))
		if err := s.sleep(ctx, delay); err != nil {
			lastErr = services.Wrap(services.ErrTransient, "download", "backoff", "interrupted", err)
			break
		}
	}

	os.Remove(dest)
	return lastErr
}

func (s *Stage) fetchOnce(ctx context.Context, url, dest string) (*queue.Metadata, error) {
	callCtx := ctx
	if s.cfg.FetchTimeoutSeconds > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.FetchTimeoutSeconds)*time.Second)
		defer cancel()
	}
	return s.fetcher.Fetch(callCtx, url, dest)
}

// backoff doubles from the configured base and clamps at the cap.
func (s *Stage) backoff(attempt int) time.Duration {
	base := time.Duration(s.cfg.RetryBackoffSeconds) * time.Second
	cap := time.Duration(s.cfg.RetryBackoffCapSeconds) * time.Second
	delay := base << (attempt - 1)
	if cap > 0 && delay > cap {
		delay = cap
	}
	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

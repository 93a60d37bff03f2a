// Package transcription implements the speech to text phase. It owns the
// temp audio files produced by the download phase: whatever the outcome of a
// job that reached this stage, the audio is deleted exactly once, here.
package transcription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"clipscribe/internal/config"
	"clipscribe/internal/logging"
	"clipscribe/internal/queue"
	"clipscribe/internal/services"
	"clipscribe/internal/stage"
)

// Transcriber converts extracted audio into a transcript. The whisper
// service satisfies this; tests substitute fakes.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, languageHint string) (*queue.Transcript, error)
}

// Stage transcribes one job at a time.
type Stage struct {
	store       *queue.Store
	transcriber Transcriber
	cfg         config.Transcription
	binaries    []string
	logger      *slog.Logger
}

// NewStage builds the transcription stage. binaries are checked by
// HealthCheck.
func NewStage(store *queue.Store, transcriber Transcriber, cfg config.Transcription, binaries []string, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{
		store:       store,
		transcriber: transcriber,
		cfg:         cfg,
		binaries:    binaries,
		logger:      logger.With(logging.String(logging.FieldStage, "transcribe")),
	}
}

// Name implements stage.Handler.
func (s *Stage) Name() string { return "transcribe" }

// HealthCheck verifies the external binaries resolve on PATH.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	for _, binary := range s.binaries {
		if _, err := exec.LookPath(binary); err != nil {
			return stage.Unhealthy(s.Name(), fmt.Sprintf("%s not found on PATH", binary))
		}
	}
	return stage.Healthy(s.Name())
}

// Execute transcribes the job's temp audio. Runtime failures get one retry;
// timeouts only retry when configured. The temp audio file is removed before
// returning, success or not.
func (s *Stage) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, s.logger)
	if job.TempAudioPath == "" {
		return services.Wrap(services.ErrConfiguration, "transcribe", "run", "job has no temp audio", nil)
	}
	defer func() {
		if err := s.Discard(job); err != nil {
			logger.Warn("temp audio cleanup failed", logging.Error(err))
		}
	}()

	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		job.TranscribeAttempts++
		if err := s.store.Update(ctx, job); err != nil {
			return services.Wrap(services.ErrConfiguration, "transcribe", "record attempt", "", err)
		}

		transcript, err := s.transcribeOnce(ctx, job.TempAudioPath)
		if err == nil {
			job.Transcript = transcript
			logger.Info("transcription complete",
				logging.Int(logging.FieldAttempt, job.TranscribeAttempts),
				logging.String("language", transcript.Language),
				logging.Int("segments", len(transcript.Segments)))
			return nil
		}

		lastErr = err
		if !s.shouldRetry(err) || attempt == 2 {
			logger.Warn("transcription failed",
				logging.Int(logging.FieldAttempt, job.TranscribeAttempts),
				logging.Error(err))
			break
		}
		logger.Info("transcription retrying",
			logging.Int(logging.FieldAttempt, job.TranscribeAttempts),
			logging.Error(err))
	}
	return lastErr
}

// Discard removes the job's temp audio and clears the path. Safe to call
// when the file is already gone. The pipeline also calls this when draining
// downloaded jobs on cancellation, keeping deletion in one place.
func (s *Stage) Discard(job *queue.Job) error {
	if job.TempAudioPath == "" {
		return nil
	}
	if err := os.Remove(job.TempAudioPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	job.TempAudioPath = ""
	return nil
}

func (s *Stage) transcribeOnce(ctx context.Context, audioPath string) (*queue.Transcript, error) {
	callCtx := ctx
	if s.cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}
	return s.transcriber.Transcribe(callCtx, audioPath, s.cfg.Language)
}

// shouldRetry applies the stricter transcription policy: one retry for
// runtime failures, timeouts only when configured, everything else terminal.
func (s *Stage) shouldRetry(err error) bool {
	if errors.Is(err, services.ErrRuntime) {
		return true
	}
	if errors.Is(err, services.ErrTimeout) {
		return s.cfg.RetryTimeouts
	}
	return false
}

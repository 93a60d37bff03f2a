package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"clipscribe/internal/config"
	"clipscribe/internal/download"
	"clipscribe/internal/logging"
	"clipscribe/internal/queue"
	"clipscribe/internal/services"
	"clipscribe/internal/services/whisper"
	"clipscribe/internal/services/ytdlp"
	"clipscribe/internal/stage"
	"clipscribe/internal/transcription"
)

// Deps lets callers substitute the external capabilities. Nil fields default
// to the real yt-dlp and whisper wrappers.
type Deps struct {
	Fetcher     download.Fetcher
	Transcriber transcription.Transcriber
}

// Result is the final snapshot of a finished run.
type Result struct {
	Jobs   []*queue.Job
	Counts map[queue.Status]int
}

// Manager owns one batch run end to end.
type Manager struct {
	cfg             *config.Config
	store           *queue.Store
	downloadStage   *download.Stage
	transcribeStage *transcription.Stage
	logger          *slog.Logger
	runID           string
	workDir         string
	lock            *flock.Flock

	cancelOnce sync.Once
	cancelCh   chan struct{}
}

// NewManager prepares a run workspace under the configured work directory,
// locks it against concurrent runs, and builds the stages. Callers must
// Close the manager when the run is over.
func NewManager(cfg *config.Config, logger *slog.Logger, deps Deps) (*Manager, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.Download.Workers < 1 || cfg.Transcription.Workers < 1 {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "setup",
			fmt.Sprintf("worker counts must be positive (download=%d transcription=%d)",
				cfg.Download.Workers, cfg.Transcription.Workers), nil)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "setup", "", err)
	}

	lock := flock.New(filepath.Join(cfg.Paths.WorkDir, "clipscribe.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "lock workspace", "", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "lock workspace",
			"another run is using this workspace", nil)
	}

	runID := uuid.NewString()[:8]
	workDir := filepath.Join(cfg.Paths.WorkDir, "run-"+runID)
	store, err := queue.Open(workDir)
	if err != nil {
		lock.Unlock()
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "open queue", "", err)
	}

	runLogger := logging.NewComponentLogger(logger, "pipeline").
		With(logging.String(logging.FieldRunID, runID))
	// Stage loggers pick up run and job identifiers from the context instead
	// of carrying them as fixed attributes.
	stageLogger := logging.NewComponentLogger(logger, "stage")
	fetcher := deps.Fetcher
	if fetcher == nil {
		fetcher = ytdlp.NewService(cfg.YtDlpBinary(), cfg.FFmpegBinary())
	}
	transcriber := deps.Transcriber
	if transcriber == nil {
		transcriber = whisper.NewService(cfg.WhisperBinary(), cfg.Transcription.Model)
	}

	return &Manager{
		cfg:   cfg,
		store: store,
		downloadStage: download.NewStage(store, fetcher, cfg.Download, workDir,
			[]string{cfg.YtDlpBinary(), cfg.FFmpegBinary()}, stageLogger),
		transcribeStage: transcription.NewStage(store, transcriber, cfg.Transcription,
			[]string{cfg.WhisperBinary()}, stageLogger),
		logger:   runLogger,
		runID:    runID,
		workDir:  workDir,
		lock:     lock,
		cancelCh: make(chan struct{}),
	}, nil
}

// RunID identifies this run in logs and workspace paths.
func (m *Manager) RunID() string { return m.runID }

// Store exposes the run's job store for progress reporting and export.
func (m *Manager) Store() *queue.Store { return m.store }

// HealthCheck reports readiness of both stages.
func (m *Manager) HealthCheck(ctx context.Context) []stage.Health {
	return []stage.Health{
		m.downloadStage.HealthCheck(ctx),
		m.transcribeStage.HealthCheck(ctx),
	}
}

// Cancel requests a graceful stop. Jobs mid-stage finish; everything not yet
// claimed moves to cancelled. Safe to call more than once.
func (m *Manager) Cancel() {
	m.cancelOnce.Do(func() {
		close(m.cancelCh)
		affected, err := m.store.CancelPending(context.Background())
		if err != nil {
			m.logger.Error("cancel pending jobs", logging.Error(err))
			return
		}
		m.logger.Info("cancellation requested", logging.Int64("cancelled_pending", affected))
	})
}

func (m *Manager) cancelled() bool {
	select {
	case <-m.cancelCh:
		return true
	default:
		return false
	}
}

// Run seeds the batch and drives every job to a terminal state. URLs must
// already be canonical and deduplicated. The returned snapshot lists jobs in
// insertion order; per job failures are recorded on the jobs, not returned
// as an error.
func (m *Manager) Run(ctx context.Context, urls []string) (*Result, error) {
	if len(urls) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "seed", "no urls to process", nil)
	}
	ctx = logging.WithRun(ctx, m.runID)
	if _, err := m.store.Seed(ctx, urls); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "seed", "", err)
	}
	m.logger.Info("run started",
		logging.Int("jobs", len(urls)),
		logging.Int("download_workers", m.cfg.Download.Workers),
		logging.Int("transcription_workers", m.cfg.Transcription.Workers))

	handoff := make(chan int64, m.cfg.Download.QueueSize)

	var downloadWG sync.WaitGroup
	for i := 0; i < m.cfg.Download.Workers; i++ {
		downloadWG.Add(1)
		go func() {
			defer downloadWG.Done()
			m.downloadWorker(ctx, handoff)
		}()
	}

	var transcribeWG sync.WaitGroup
	for i := 0; i < m.cfg.Transcription.Workers; i++ {
		transcribeWG.Add(1)
		go func() {
			defer transcribeWG.Done()
			m.transcribeWorker(ctx, handoff)
		}()
	}

	downloadWG.Wait()
	close(handoff)
	transcribeWG.Wait()

	if err := m.drainDownloaded(ctx); err != nil {
		return nil, err
	}
	return m.snapshot(ctx)
}

// downloadWorker claims pending jobs until the backlog is empty or the run
// is cancelled, executing the download stage and handing successes onward.
func (m *Manager) downloadWorker(ctx context.Context, handoff chan<- int64) {
	for {
		if m.cancelled() {
			return
		}
		job, err := m.store.ClaimNext(ctx, queue.StatusPending, queue.StatusDownloading)
		if err != nil {
			m.logger.Error("claim pending job", logging.Error(err))
			return
		}
		if job == nil {
			return
		}

		execErr := m.downloadStage.Execute(logging.WithJob(ctx, job.ID), job)
		if execErr != nil {
			m.failJob(ctx, job.ID, queue.StageDownload, execErr)
			continue
		}
		if _, err := m.store.Transition(ctx, job.ID, queue.StatusDownloaded, nil); err != nil {
			m.logger.Error("mark downloaded", logging.Int64(logging.FieldJobID, job.ID), logging.Error(err))
			continue
		}

		select {
		case handoff <- job.ID:
		case <-m.cancelCh:
			// Left in downloaded; the drain pass cancels it and discards
			// its audio.
			return
		}
	}
}

// transcribeWorker consumes the handoff channel. After a cancel request it
// keeps draining the channel but routes jobs to cancelled instead of
// running the model.
func (m *Manager) transcribeWorker(ctx context.Context, handoff <-chan int64) {
	for id := range handoff {
		if m.cancelled() {
			m.cancelDownloaded(ctx, id)
			continue
		}
		job, err := m.store.Transition(ctx, id, queue.StatusTranscribing, nil)
		if err != nil {
			m.logger.Error("mark transcribing", logging.Int64(logging.FieldJobID, id), logging.Error(err))
			continue
		}

		execErr := m.transcribeStage.Execute(logging.WithJob(ctx, id), job)
		if execErr != nil {
			m.failJob(ctx, id, queue.StageTranscribe, execErr)
			continue
		}
		_, err = m.store.Transition(ctx, id, queue.StatusCompleted, func(j *queue.Job) {
			j.Transcript = job.Transcript
			j.TempAudioPath = ""
		})
		if err != nil {
			m.logger.Error("mark completed", logging.Int64(logging.FieldJobID, id), logging.Error(err))
		}
	}
}

// failJob records a terminal failure without aborting the run.
func (m *Manager) failJob(ctx context.Context, id int64, jobStage queue.Stage, execErr error) {
	retriable := retriableFor(jobStage, execErr)
	m.logger.Info("job failed",
		logging.Int64(logging.FieldJobID, id),
		logging.String(logging.FieldStage, string(jobStage)),
		logging.Bool("retriable", retriable))
	_, err := m.store.Transition(ctx, id, queue.StatusFailed, func(j *queue.Job) {
		j.Error = &queue.ErrorRecord{
			Stage:     jobStage,
			Message:   services.Message(execErr),
			Retriable: retriable,
		}
	})
	if err != nil {
		m.logger.Error("mark failed", logging.Int64(logging.FieldJobID, id), logging.Error(err))
	}
}

// retriableFor records whether the failure class was eligible for retry, per
// stage policy. The flag documents the classification; by the time it is
// written, retries are already spent.
func retriableFor(jobStage queue.Stage, err error) bool {
	if jobStage == queue.StageTranscribe {
		return errors.Is(err, services.ErrRuntime) || services.Retriable(err)
	}
	return services.Retriable(err)
}

func (m *Manager) cancelDownloaded(ctx context.Context, id int64) {
	_, err := m.store.Transition(ctx, id, queue.StatusCancelled, func(j *queue.Job) {
		if err := m.transcribeStage.Discard(j); err != nil {
			m.logger.Warn("discard temp audio", logging.Int64(logging.FieldJobID, id), logging.Error(err))
		}
	})
	if err != nil {
		m.logger.Error("cancel downloaded job", logging.Int64(logging.FieldJobID, id), logging.Error(err))
	}
}

// drainDownloaded sweeps jobs stranded in downloaded when the pools stopped,
// which only happens on cancellation.
func (m *Manager) drainDownloaded(ctx context.Context) error {
	stranded, err := m.store.ListByStatus(ctx, queue.StatusDownloaded)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "pipeline", "drain", "", err)
	}
	for _, job := range stranded {
		m.cancelDownloaded(ctx, job.ID)
	}
	return nil
}

func (m *Manager) snapshot(ctx context.Context) (*Result, error) {
	jobs, err := m.store.List(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "snapshot", "", err)
	}
	counts, err := m.store.Stats(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "snapshot", "", err)
	}
	m.logger.Info("run finished",
		logging.Int("completed", counts[queue.StatusCompleted]),
		logging.Int("failed", counts[queue.StatusFailed]),
		logging.Int("cancelled", counts[queue.StatusCancelled]))
	return &Result{Jobs: jobs, Counts: counts}, nil
}

// Close releases the workspace lock and the job store.
func (m *Manager) Close() error {
	storeErr := m.store.Close()
	lockErr := m.lock.Unlock()
	if storeErr != nil {
		return storeErr
	}
	return lockErr
}

// Destroy removes the run workspace entirely. Call after exports are
// written; nothing in the workspace outlives the run.
func (m *Manager) Destroy() error {
	if err := m.Close(); err != nil {
		return err
	}
	return os.RemoveAll(m.workDir)
}

package download_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"clipscribe/internal/config"
	"clipscribe/internal/download"
	"clipscribe/internal/queue"
	"clipscribe/internal/services"
)

type fakeFetcher struct {
	failures []error
	calls    int
	metadata *queue.Metadata
}

func (f *fakeFetcher) Fetch(ctx context.Context, url, destAudio string) (*queue.Metadata, error) {
	f.calls++
	if f.calls <= len(f.failures) {
		return nil, f.failures[f.calls-1]
	}
	if err := os.WriteFile(destAudio, []byte("RIFF"), 0o644); err != nil {
		return nil, err
	}
	meta := f.metadata
	if meta == nil {
		meta = &queue.Metadata{Title: "clip", DurationSeconds: 10}
	}
	return meta, nil
}

func downloadConfig() config.Download {
	return config.Download{
		Workers:                1,
		MaxAttempts:            3,
		RetryBackoffSeconds:    1,
		RetryBackoffCapSeconds: 30,
		FetchTimeoutSeconds:    120,
		QueueSize:              8,
	}
}

func claimedJob(t *testing.T, store *queue.Store) *queue.Job {
	t.Helper()
	ctx := context.Background()
	if _, err := store.Seed(ctx, []string{"https://www.tiktok.com/@alice/video/1"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	job, err := store.ClaimNext(ctx, queue.StatusPending, queue.StatusDownloading)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	return job
}

func newStage(t *testing.T, store *queue.Store, fetcher download.Fetcher) *download.Stage {
	t.Helper()
	return download.NewStage(store, fetcher, downloadConfig(), t.TempDir(), nil, nil)
}

func TestExecuteRetriesTransientThenSucceeds(t *testing.T) {
	store, err := queue.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	job := claimedJob(t, store)

	fetcher := &fakeFetcher{failures: []error{
		services.Wrap(services.ErrTransient, "download", "fetch", "reset", nil),
		services.Wrap(services.ErrTimeout, "download", "fetch", "slow", nil),
	}}
	stage := newStage(t, store, fetcher)
	stage.SetSleep(func(ctx context.Context, d time.Duration) error { return nil })

	if err := stage.Execute(context.Background(), job); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if job.DownloadAttempts != 3 {
		t.Errorf("attempts = %d, want 3", job.DownloadAttempts)
	}
	if job.Metadata == nil || job.Metadata.Title != "clip" {
		t.Errorf("metadata = %+v", job.Metadata)
	}
	if job.TempAudioPath == "" {
		t.Fatal("temp audio path not set")
	}
	if _, err := os.Stat(job.TempAudioPath); err != nil {
		t.Errorf("temp audio missing: %v", err)
	}

	stored, err := store.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.DownloadAttempts != 3 || stored.TempAudioPath != job.TempAudioPath {
		t.Errorf("attempts not persisted: %+v", stored)
	}
}

func TestExecuteStopsOnPermanentError(t *testing.T) {
	store, err := queue.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	job := claimedJob(t, store)

	fetcher := &fakeFetcher{failures: []error{
		services.Wrap(services.ErrUnavailable, "download", "fetch", "private video", nil),
	}}
	stage := newStage(t, store, fetcher)

	execErr := stage.Execute(context.Background(), job)
	if !errors.Is(execErr, services.ErrUnavailable) {
		t.Fatalf("execute err = %v, want ErrUnavailable", execErr)
	}
	if fetcher.calls != 1 {
		t.Errorf("fetch called %d times, want 1", fetcher.calls)
	}
	if job.DownloadAttempts != 1 {
		t.Errorf("attempts = %d, want 1", job.DownloadAttempts)
	}
}

func TestExecuteExhaustsAttempts(t *testing.T) {
	store, err := queue.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	job := claimedJob(t, store)

	transient := services.Wrap(services.ErrTransient, "download", "fetch", "flaky", nil)
	fetcher := &fakeFetcher{failures: []error{transient, transient, transient}}
	stage := newStage(t, store, fetcher)
	stage.SetSleep(func(ctx context.Context, d time.Duration) error { return nil })

	execErr := stage.Execute(context.Background(), job)
	if !errors.Is(execErr, services.ErrTransient) {
		t.Fatalf("execute err = %v, want ErrTransient", execErr)
	}
	if fetcher.calls != 3 {
		t.Errorf("fetch called %d times, want 3", fetcher.calls)
	}
	if _, err := os.Stat(stage.AudioPath(job)); !os.IsNotExist(err) {
		t.Errorf("expected temp audio removed after final failure")
	}
}

func TestBackoffDelays(t *testing.T) {
	store, err := queue.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	job := claimedJob(t, store)

	transient := services.Wrap(services.ErrTransient, "download", "fetch", "flaky", nil)
	fetcher := &fakeFetcher{failures: []error{transient, transient}}
	stage := newStage(t, store, fetcher)

	var delays []time.Duration
	stage.SetSleep(func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	})

	if err := stage.Execute(context.Background(), job); err != nil {
		t.Fatalf("execute: %v", err)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("delays = %v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay %d = %v, want %v", i, delays[i], want[i])
		}
	}
}

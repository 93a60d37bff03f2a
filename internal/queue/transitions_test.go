package queue_test

import (
	"context"
	"errors"
	"testing"

	"clipscribe/internal/queue"
)

func TestTransitionFollowsLegalEdges(t *testing.T) {
	store := openStore(t)
	jobs := seedURLs(t, store, "https://www.tiktok.com/@alice/video/1")
	ctx := context.Background()
	id := jobs[0].ID

	steps := []queue.Status{
		queue.StatusDownloading,
		queue.StatusDownloaded,
		queue.StatusTranscribing,
		queue.StatusCompleted,
	}
	for _, to := range steps {
		job, err := store.Transition(ctx, id, to, nil)
		if err != nil {
			t.Fatalf("transition to %s: %v", to, err)
		}
		if job.Status != to {
			t.Fatalf("status = %s, want %s", job.Status, to)
		}
	}
}

func TestTransitionRejectsIllegalEdge(t *testing.T) {
	store := openStore(t)
	jobs := seedURLs(t, store, "https://www.tiktok.com/@alice/video/1")
	ctx := context.Background()

	cases := []struct {
		name string
		to   queue.Status
	}{
		{"pending to completed", queue.StatusCompleted},
		{"pending to transcribing", queue.StatusTranscribing},
		{"pending to failed", queue.StatusFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.Transition(ctx, jobs[0].ID, tc.to, nil)
			if !errors.Is(err, queue.ErrInvalidTransition) {
				t.Fatalf("expected ErrInvalidTransition, got %v", err)
			}
		})
	}
}

func TestTransitionFromTerminalFails(t *testing.T) {
	store := openStore(t)
	jobs := seedURLs(t, store, "https://www.tiktok.com/@alice/video/1")
	ctx := context.Background()
	id := jobs[0].ID

	if _, err := store.Transition(ctx, id, queue.StatusCancelled, nil); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := store.Transition(ctx, id, queue.StatusDownloading, nil); !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition from terminal state, got %v", err)
	}
}

func TestTransitionApplyPersistsMutation(t *testing.T) {
	store := openStore(t)
	jobs := seedURLs(t, store, "https://www.tiktok.com/@alice/video/1")
	ctx := context.Background()
	id := jobs[0].ID

	if _, err := store.Transition(ctx, id, queue.StatusDownloading, nil); err != nil {
		t.Fatalf("claim: %v", err)
	}
	_, err := store.Transition(ctx, id, queue.StatusFailed, func(job *queue.Job) {
		job.Error = &queue.ErrorRecord{
			Stage:     queue.StageDownload,
			Message:   "video is private",
			Retriable: false,
		}
	})
	if err != nil {
		t.Fatalf("fail transition: %v", err)
	}

	got, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Error == nil || got.Error.Message != "video is private" || got.Error.Stage != queue.StageDownload {
		t.Fatalf("error record did not persist: %+v", got.Error)
	}
}

func TestClaimNextTakesEarliestAndExhausts(t *testing.T) {
	store := openStore(t)
	urls := []string{
		"https://www.tiktok.com/@alice/video/1",
		"https://www.tiktok.com/@bob/video/2",
	}
	seedURLs(t, store, urls...)
	ctx := context.Background()

	first, err := store.ClaimNext(ctx, queue.StatusPending, queue.StatusDownloading)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if first.SourceURL != urls[0] {
		t.Fatalf("claimed %s, want %s", first.SourceURL, urls[0])
	}
	if first.Status != queue.StatusDownloading {
		t.Fatalf("claimed status = %s", first.Status)
	}

	second, err := store.ClaimNext(ctx, queue.StatusPending, queue.StatusDownloading)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if second.SourceURL != urls[1] {
		t.Fatalf("claimed %s, want %s", second.SourceURL, urls[1])
	}

	third, err := store.ClaimNext(ctx, queue.StatusPending, queue.StatusDownloading)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if third != nil {
		t.Fatalf("expected nil after exhaustion, got %+v", third)
	}
}

func TestCancelPendingBulk(t *testing.T) {
	store := openStore(t)
	seedURLs(t, store,
		"https://www.tiktok.com/@alice/video/1",
		"https://www.tiktok.com/@bob/video/2",
		"https://www.tiktok.com/@carol/video/3",
	)
	ctx := context.Background()

	if _, err := store.ClaimNext(ctx, queue.StatusPending, queue.StatusDownloading); err != nil {
		t.Fatalf("claim: %v", err)
	}
	affected, err := store.CancelPending(ctx)
	if err != nil {
		t.Fatalf("cancel pending: %v", err)
	}
	if affected != 2 {
		t.Fatalf("cancelled %d jobs, want 2", affected)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats[queue.StatusCancelled] != 2 || stats[queue.StatusDownloading] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}

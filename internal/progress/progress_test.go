package progress_test

import (
	"context"
	"testing"
	"time"

	"clipscribe/internal/progress"
	"clipscribe/internal/queue"
)

func TestCountsSumToTotal(t *testing.T) {
	store, err := queue.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	urls := []string{
		"https://www.tiktok.com/@a/video/1",
		"https://www.tiktok.com/@b/video/2",
		"https://www.tiktok.com/@c/video/3",
	}
	if _, err := store.Seed(ctx, urls); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.ClaimNext(ctx, queue.StatusPending, queue.StatusDownloading); err != nil {
		t.Fatalf("claim: %v", err)
	}

	snapshot, err := progress.NewAggregator(store).Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if snapshot.Total != 3 {
		t.Fatalf("total = %d, want 3", snapshot.Total)
	}
	if snapshot.Counts[queue.StatusPending] != 2 || snapshot.Counts[queue.StatusDownloading] != 1 {
		t.Fatalf("counts = %v", snapshot.Counts)
	}
	if snapshot.Finished() {
		t.Fatal("batch should not be finished")
	}
}

func TestSubscribeClosesWhenAllTerminal(t *testing.T) {
	store, err := queue.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	if _, err := store.Seed(ctx, []string{"https://www.tiktok.com/@a/video/1"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.Transition(ctx, 1, queue.StatusCancelled, nil); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	updates := progress.NewAggregator(store).Subscribe(ctx, 10*time.Millisecond)
	var last progress.Snapshot
	for snapshot := range updates {
		last = snapshot
	}
	if !last.Finished() {
		t.Fatalf("final snapshot not finished: %+v", last)
	}
	if last.Counts[queue.StatusCancelled] != 1 {
		t.Fatalf("final counts = %v", last.Counts)
	}
}

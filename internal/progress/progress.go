// Package progress turns queue statistics into periodic snapshots for the
// CLI renderer.
package progress

import (
	"context"
	"time"

	"clipscribe/internal/queue"
)

// Snapshot is a point-in-time view of the batch.
type Snapshot struct {
	Counts map[queue.Status]int
	Total  int
}

// Terminal returns the number of jobs that reached a final state.
func (s Snapshot) Terminal() int {
	done := 0
	for status, count := range s.Counts {
		if queue.IsTerminalStatus(status) {
			done += count
		}
	}
	return done
}

// Finished reports whether every job is terminal.
func (s Snapshot) Finished() bool {
	return s.Total > 0 && s.Terminal() == s.Total
}

// Aggregator reads batch statistics from the job store.
type Aggregator struct {
	store *queue.Store
}

// NewAggregator wraps a job store.
func NewAggregator(store *queue.Store) *Aggregator {
	return &Aggregator{store: store}
}

// Counts returns the current snapshot. Every known status appears in the
// map, so callers can render fixed columns.
func (a *Aggregator) Counts(ctx context.Context) (Snapshot, error) {
	stats, err := a.store.Stats(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	total := 0
	for _, count := range stats {
		total += count
	}
	return Snapshot{Counts: stats, Total: total}, nil
}

// Subscribe emits a snapshot every interval until all jobs are terminal or
// the context ends. The channel closes when the batch is finished; a final
// snapshot is always delivered before closing.
func (a *Aggregator) Subscribe(ctx context.Context, interval time.Duration) <-chan Snapshot {
	if interval <= 0 {
		interval = time.Second
	}
	updates := make(chan Snapshot, 1)
	go func() {
		defer close(updates)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			snapshot, err := a.Counts(ctx)
			if err == nil {
				select {
				case updates <- snapshot:
				case <-ctx.Done():
					return
				}
				if snapshot.Finished() {
					return
				}
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return updates
}

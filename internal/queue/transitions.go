package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTransition is returned when a status move is not a legal edge of
// the job state machine.
var ErrInvalidTransition = errors.New("invalid status transition")

// Transition moves a job to a new status after validating the edge. The
// optional apply function mutates the job (attach metadata, record an error)
// before the new state is persisted; it runs after the status is set so it
// sees the destination status. Returns the updated job.
func (s *Store) Transition(ctx context.Context, id int64, to Status, apply func(*Job)) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("transition job %d: not found", id)
	}
	if !CanTransition(job.Status, to) {
		return nil, fmt.Errorf("%w: job %d %s -> %s", ErrInvalidTransition, id, job.Status, to)
	}
	job.Status = to
	if apply != nil {
		apply(job)
	}
	if err := s.persist(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// ClaimNext atomically claims the earliest job in status from and moves it to
// status to. Returns nil when no job in the from status remains, which is how
// download workers learn the batch is exhausted.
func (s *Store) ClaimNext(ctx context.Context, from, to Status) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !CanTransition(from, to) {
		return nil, fmt.Errorf("%w: claim %s -> %s", ErrInvalidTransition, from, to)
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY position LIMIT 1`,
		string(from))
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim next %s job: %w", from, err)
	}
	job.Status = to
	if err := s.persist(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// CancelPending moves every pending job to cancelled in one statement and
// returns how many were affected. Used when a cancel request lands before the
// download pool has drained the backlog.
func (s *Store) CancelPending(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE status = ?`,
		string(StatusCancelled), now, string(StatusPending))
	if err != nil {
		return 0, fmt.Errorf("cancel pending jobs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cancel pending jobs: %w", err)
	}
	return affected, nil
}

// Package queue owns the authoritative collection of jobs for one run.
//
// Jobs are persisted in a SQLite database inside the run workspace; the
// database lives and dies with the run and is never consulted across runs.
// All mutation flows through Transition (validated against the job state
// machine) or Update (which may not change status), so the worker pools,
// progress aggregator, and exporter can rely on every job holding exactly
// the fields its status implies.
//
// Treat this package as the single source of truth for job lifecycle
// semantics; new statuses must be added to the transition table here.
package queue

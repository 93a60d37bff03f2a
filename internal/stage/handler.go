// Package stage defines the contract between the pipeline manager and the
// per-phase workers.
package stage

import (
	"context"

	"clipscribe/internal/queue"
)

// Handler executes one pipeline phase for one job. Execute owns the job for
// the duration of the call: it may mutate attempts and attach results, and it
// reports the outcome through the returned error. Handlers never change the
// job's status themselves; the pipeline manager drives transitions.
type Handler interface {
	// Name identifies the phase in logs and health output.
	Name() string
	// Execute processes a claimed job. A nil return means the job advances;
	// an error means the job failed terminally and carries the services
	// marker explaining why.
	Execute(ctx context.Context, job *queue.Job) error
	// HealthCheck verifies the phase's external dependencies are usable.
	HealthCheck(ctx context.Context) Health
}

// Health reports the readiness of a phase.
type Health struct {
	Name   string
	Ready  bool
	Detail string
}

// Healthy builds a passing health report.
func Healthy(name string) Health {
	return Health{Name: name, Ready: true}
}

// Unhealthy builds a failing health report with a reason.
func Unhealthy(name, detail string) Health {
	return Health{Name: name, Ready: false, Detail: detail}
}

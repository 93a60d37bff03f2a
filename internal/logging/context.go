package logging

import (
	"context"
	"log/slog"
)

type contextKey struct{}

type contextValues struct {
	runID string
	jobID int64
}

// WithRun tags the context with the run identifier.
func WithRun(ctx context.Context, runID string) context.Context {
	values := valuesFrom(ctx)
	values.runID = runID
	return context.WithValue(ctx, contextKey{}, values)
}

// WithJob tags the context with a job identifier.
func WithJob(ctx context.Context, jobID int64) context.Context {
	values := valuesFrom(ctx)
	values.jobID = jobID
	return context.WithValue(ctx, contextKey{}, values)
}

// WithContext returns a logger carrying any run and job identifiers present
// in the context. A nil logger yields a no-op logger.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	values := valuesFrom(ctx)
	if values.runID != "" {
		logger = logger.With(String(FieldRunID, values.runID))
	}
	if values.jobID != 0 {
		logger = logger.With(Int64(FieldJobID, values.jobID))
	}
	return logger
}

func valuesFrom(ctx context.Context) contextValues {
	if ctx == nil {
		return contextValues{}
	}
	if values, ok := ctx.Value(contextKey{}).(contextValues); ok {
		return values
	}
	return contextValues{}
}

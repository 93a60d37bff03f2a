package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks failures worth retrying: network resets, rate
	// limits, flaky tool exits.
	ErrTransient = errors.New("transient failure")
	// ErrUnavailable marks sources that will never fetch: private, deleted,
	// or region-locked videos. Never retried.
	ErrUnavailable = errors.New("source unavailable")
	// ErrCorruptMedia marks audio the model cannot decode. Never retried.
	ErrCorruptMedia = errors.New("corrupt media")
	// ErrRuntime marks model/runtime failures (out of memory, accelerator
	// hiccups). The transcription stage retries these once.
	ErrRuntime = errors.New("runtime failure")
	// ErrTimeout marks a capability call that exceeded its per-call budget.
	ErrTimeout = errors.New("timeout")
	// ErrConfiguration marks setup problems that abort the run before any
	// job is processed.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retriable reports whether an error carries a marker the download stage
// retries. Timeouts are listed here because network timeouts are expected to
// clear; the transcription stage applies its own, stricter policy.
func Retriable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrTimeout)
}

// Message extracts the human-readable portion of a wrapped error for job
// records and exports, trimming the leading marker text when present.
func Message(err error) string {
	if err == nil {
		return ""
	}
	text := err.Error()
	for _, marker := range []error{ErrTransient, ErrUnavailable, ErrCorruptMedia, ErrRuntime, ErrTimeout, ErrConfiguration} {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(text, prefix) {
			return strings.TrimPrefix(text, prefix)
		}
	}
	return text
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

// Package logging builds the slog loggers used across clipscribe.
//
// It provides console and JSON handlers, attribute helpers shared by every
// component, and context plumbing so stage workers can tag records with the
// run ID, job ID, and stage name without threading loggers manually.
package logging

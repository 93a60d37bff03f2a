// Package pipeline wires the queue, the download pool, and the transcription
// pool into one batch run.
//
// A run seeds jobs from normalized URLs, then drives them through two
// bounded worker pools connected by a small handoff channel. Download
// workers pull pending jobs from the store, so insertion order decides claim
// order; transcription workers consume the handoff channel. Backpressure is
// the channel bound: when transcription lags, download workers block on the
// handoff instead of piling audio onto disk.
//
// Cancellation is graceful by construction. A cancel request flips a flag
// that workers observe at claim boundaries; whatever is mid-flight finishes
// its stage, pending jobs are cancelled in bulk, and downloaded jobs drain
// to cancelled with their temp audio discarded.
package pipeline

// Package services defines the error taxonomy shared by the external
// capability wrappers (yt-dlp, whisper) and the pipeline stages.
//
// Capabilities tag failures with one of the sentinel markers below; stages
// turn those markers into retry decisions and terminal job error records.
// Keep classification here so the stage packages never string-match on
// tool output themselves.
package services

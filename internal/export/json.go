package export

import (
	"encoding/json"
	"fmt"
	"io"

	"clipscribe/internal/queue"
)

// jobRecord is the JSON export shape. Unlike CSV it is lossless: segments,
// attempts, and the full error record survive the round trip.
type jobRecord struct {
	URL                string             `json:"url"`
	Status             string             `json:"status"`
	Metadata           *queue.Metadata    `json:"metadata,omitempty"`
	Transcript         *queue.Transcript  `json:"transcript,omitempty"`
	Error              *queue.ErrorRecord `json:"error,omitempty"`
	DownloadAttempts   int                `json:"downloadAttempts"`
	TranscribeAttempts int                `json:"transcribeAttempts"`
}

// WriteJSON renders the batch as an ordered array, one element per job in
// insertion order.
func WriteJSON(w io.Writer, jobs []*queue.Job) error {
	records := make([]jobRecord, 0, len(jobs))
	for _, job := range jobs {
		records = append(records, jobRecord{
			URL:                job.SourceURL,
			Status:             string(job.Status),
			Metadata:           job.Metadata,
			Transcript:         job.Transcript,
			Error:              job.Error,
			DownloadAttempts:   job.DownloadAttempts,
			TranscribeAttempts: job.TranscribeAttempts,
		})
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("encode json export: %w", err)
	}
	return nil
}

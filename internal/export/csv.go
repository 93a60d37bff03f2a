package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"clipscribe/internal/queue"
)

// csvHeader fixes the column set and order. The first eight columns are the
// stable interface consumers script against; the metadata extras follow.
var csvHeader = []string{
	"url",
	"status",
	"title",
	"author",
	"durationSeconds",
	"language",
	"fullText",
	"errorMessage",
	"uploaderId",
	"uploadDate",
	"viewCount",
	"likeCount",
	"commentCount",
	"description",
}

// WriteCSV renders one row per job, in insertion order. Fields a job never
// reached (transcript columns on a failed download, error columns on a
// completed job) stay empty rather than holding placeholders.
func WriteCSV(w io.Writer, jobs []*queue.Job) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, job := range jobs {
		if err := writer.Write(csvRow(job)); err != nil {
			return fmt.Errorf("write csv row for job %d: %w", job.ID, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func csvRow(job *queue.Job) []string {
	row := make([]string, len(csvHeader))
	row[0] = job.SourceURL
	row[1] = string(job.Status)
	if meta := job.Metadata; meta != nil {
		row[2] = meta.Title
		row[3] = meta.Uploader
		row[4] = formatDuration(meta.DurationSeconds)
		row[8] = meta.UploaderID
		row[9] = meta.UploadDate
		row[10] = strconv.FormatInt(meta.ViewCount, 10)
		row[11] = strconv.FormatInt(meta.LikeCount, 10)
		row[12] = strconv.FormatInt(meta.CommentCount, 10)
		row[13] = meta.Description
	}
	if transcript := job.Transcript; transcript != nil {
		row[5] = transcript.Language
		row[6] = transcript.FullText
	}
	if job.Error != nil {
		row[7] = job.Error.Message
	}
	return row
}

func formatDuration(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}

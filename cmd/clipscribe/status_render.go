package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"clipscribe/internal/language"
	"clipscribe/internal/pipeline"
	"clipscribe/internal/preflight"
	"clipscribe/internal/progress"
	"clipscribe/internal/queue"
)

// progressOrder fixes the bucket order in progress lines.
var progressOrder = []queue.Status{
	queue.StatusPending,
	queue.StatusDownloading,
	queue.StatusDownloaded,
	queue.StatusTranscribing,
	queue.StatusCompleted,
	queue.StatusFailed,
	queue.StatusCancelled,
}

func renderProgressLine(snapshot progress.Snapshot) string {
	parts := make([]string, 0, len(progressOrder))
	for _, status := range progressOrder {
		if count := snapshot.Counts[status]; count > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", status, count))
		}
	}
	return fmt.Sprintf("[%d/%d] %s", snapshot.Terminal(), snapshot.Total, strings.Join(parts, ", "))
}

func renderSummary(result *pipeline.Result) string {
	headers := []string{"#", "URL", "Status", "Title", "Duration", "Language", "Error"}
	rows := make([][]string, 0, len(result.Jobs))
	for _, job := range result.Jobs {
		title, duration := "", ""
		if job.Metadata != nil {
			title = truncate(job.Metadata.Title, 40)
			duration = formatSeconds(job.Metadata.DurationSeconds)
		}
		languageName := ""
		if job.Transcript != nil {
			languageName = language.Display(job.Transcript.Language)
		}
		errText := ""
		if job.Error != nil {
			errText = truncate(job.Error.Message, 60)
		}
		rows = append(rows, []string{
			strconv.Itoa(job.Position + 1),
			truncate(job.SourceURL, 48),
			statusLabel(job.Status),
			title,
			duration,
			languageName,
			errText,
		})
	}

	var b strings.Builder
	b.WriteString(renderTable(headers, rows, 0, 4))
	b.WriteString("\n")
	fmt.Fprintf(&b, "completed %d, failed %d, cancelled %d (total %d)",
		result.Counts[queue.StatusCompleted],
		result.Counts[queue.StatusFailed],
		result.Counts[queue.StatusCancelled],
		len(result.Jobs))
	return b.String()
}

func renderPreflight(results []preflight.Result) string {
	headers := []string{"Check", "Status", "Detail"}
	rows := make([][]string, 0, len(results))
	for _, result := range results {
		status := "ok"
		if !result.OK {
			status = "failed"
			if stdoutIsTTY() {
				status = text.FgRed.Sprint(status)
			}
		}
		rows = append(rows, []string{result.Name, status, result.Detail})
	}
	return renderTable(headers, rows)
}

func statusLabel(status queue.Status) string {
	label := string(status)
	if !stdoutIsTTY() {
		return label
	}
	switch status {
	case queue.StatusCompleted:
		return text.FgGreen.Sprint(label)
	case queue.StatusFailed:
		return text.FgRed.Sprint(label)
	case queue.StatusCancelled:
		return text.FgYellow.Sprint(label)
	default:
		return label
	}
}

func stdoutIsTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 1, 64) + "s"
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}

package export

import (
	"fmt"
	"regexp"
	"strings"

	"clipscribe/internal/queue"
)

// SRTFile is one rendered subtitle file.
type SRTFile struct {
	Name    string
	Content []byte
}

// SRTFiles renders one subtitle file per job that has a transcript with
// segments. File names follow video_<n>_<title>.srt where n is the job's
// 1-based batch position, so a directory of exports sorts like the input
// list.
func SRTFiles(jobs []*queue.Job) []SRTFile {
	var files []SRTFile
	for _, job := range jobs {
		if job.Transcript == nil || len(job.Transcript.Segments) == 0 {
			continue
		}
		title := ""
		if job.Metadata != nil {
			title = job.Metadata.Title
		}
		files = append(files, SRTFile{
			Name:    fmt.Sprintf("video_%d_%s.srt", job.Position+1, sanitizeTitle(title)),
			Content: []byte(renderSRT(job.Transcript.Segments)),
		})
	}
	return files
}

func renderSRT(segments []queue.Segment) string {
	var b strings.Builder
	for i, segment := range segments {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1,
			FormatSRTTimestamp(segment.StartMS),
			FormatSRTTimestamp(segment.EndMS),
			segment.Text)
	}
	return b.String()
}

// FormatSRTTimestamp renders milliseconds as HH:MM:SS,mmm.
func FormatSRTTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	hours := ms / 3600000
	minutes := (ms % 3600000) / 60000
	seconds := (ms % 60000) / 1000
	millis := ms % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis)
}

var unsafeTitleChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

const maxTitleLen = 50

// sanitizeTitle reduces a video title to a filesystem-safe slug.
func sanitizeTitle(title string) string {
	slug := strings.ReplaceAll(strings.TrimSpace(title), " ", "_")
	slug = unsafeTitleChars.ReplaceAllString(slug, "")
	slug = strings.Trim(slug, "_")
	if len(slug) > maxTitleLen {
		slug = slug[:maxTitleLen]
	}
	if slug == "" {
		return "untitled"
	}
	return slug
}

package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusPending      Status = "pending"
	StatusDownloading  Status = "downloading"
	StatusDownloaded   Status = "downloaded"
	StatusTranscribing Status = "transcribing"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
	StatusCancelled    Status = "cancelled"
)

var allStatuses = []Status{
	StatusPending,
	StatusDownloading,
	StatusDownloaded,
	StatusTranscribing,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Stage names a pipeline phase for error records and logging.
type Stage string

const (
	StageDownload   Stage = "download"
	StageTranscribe Stage = "transcribe"
)

// Metadata describes the source video, populated after a successful download.
type Metadata struct {
	Title           string  `json:"title"`
	Uploader        string  `json:"uploader,omitempty"`
	UploaderID      string  `json:"uploaderId,omitempty"`
	UploadDate      string  `json:"uploadDate,omitempty"`
	DurationSeconds float64 `json:"durationSeconds"`
	ViewCount       int64   `json:"viewCount,omitempty"`
	LikeCount       int64   `json:"likeCount,omitempty"`
	CommentCount    int64   `json:"commentCount,omitempty"`
	Description     string  `json:"description,omitempty"`
}

// Segment is a timestamped span of transcript text.
type Segment struct {
	StartMS int64  `json:"startMs"`
	EndMS   int64  `json:"endMs"`
	Text    string `json:"text"`
}

// Transcript holds the transcription result, populated when a job completes.
// Segments are ordered by StartMS as produced by the model; the pipeline
// never reorders or merges them.
type Transcript struct {
	Language string    `json:"language"`
	FullText string    `json:"fullText"`
	Segments []Segment `json:"segments"`
}

// ErrorRecord explains a terminal failure.
type ErrorRecord struct {
	Stage     Stage  `json:"stage"`
	Message   string `json:"message"`
	Retriable bool   `json:"retriable"`
}

// Job is one video's lifecycle record.
type Job struct {
	ID                 int64
	Position           int
	SourceURL          string
	Status             Status
	Metadata           *Metadata
	Transcript         *Transcript
	Error              *ErrorRecord
	DownloadAttempts   int
	TranscribeAttempts int
	TempAudioPath      string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsTerminal reports whether the job has reached a terminal state.
func (j *Job) IsTerminal() bool {
	return IsTerminalStatus(j.Status)
}

// IsTerminalStatus reports whether a status admits no further transitions.
func IsTerminalStatus(status Status) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// allowedTransitions is the job state machine. Retries within a stage do not
// appear here: they increment attempts without changing status.
var allowedTransitions = map[Status][]Status{
	StatusPending:      {StatusDownloading, StatusCancelled},
	StatusDownloading:  {StatusDownloaded, StatusFailed},
	StatusDownloaded:   {StatusTranscribing, StatusCancelled},
	StatusTranscribing: {StatusCompleted, StatusFailed},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

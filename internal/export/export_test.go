package export_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"clipscribe/internal/export"
	"clipscribe/internal/queue"
)

func sampleJobs() []*queue.Job {
	return []*queue.Job{
		{
			ID:        1,
			Position:  0,
			SourceURL: "https://www.tiktok.com/@alice/video/1",
			Status:    queue.StatusCompleted,
			Metadata: &queue.Metadata{
				Title:           "morning, run!",
				Uploader:        "alice",
				UploaderID:      "alice123",
				UploadDate:      "20260110",
				DurationSeconds: 32.5,
				ViewCount:       1000,
				LikeCount:       50,
				CommentCount:    7,
				Description:     "5k pace",
			},
			Transcript: &queue.Transcript{
				Language: "en",
				FullText: "hello world",
				Segments: []queue.Segment{
					{StartMS: 0, EndMS: 1500, Text: "hello"},
					{StartMS: 1500, EndMS: 3000, Text: "world"},
				},
			},
			DownloadAttempts:   1,
			TranscribeAttempts: 1,
		},
		{
			ID:        2,
			Position:  1,
			SourceURL: "https://vm.tiktok.com/ZMabc123",
			Status:    queue.StatusFailed,
			Error: &queue.ErrorRecord{
				Stage:     queue.StageDownload,
				Message:   "download: fetch: ERROR: Private video",
				Retriable: false,
			},
			DownloadAttempts: 1,
		},
		{
			ID:        3,
			Position:  2,
			SourceURL: "https://www.tiktok.com/@carol/video/3",
			Status:    queue.StatusCancelled,
		},
	}
}

func TestWriteCSVShapeAndOrder(t *testing.T) {
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, sampleJobs()); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("got %d records, want header plus 3 rows", len(records))
	}

	header := records[0]
	wantPrefix := []string{"url", "status", "title", "author", "durationSeconds", "language", "fullText", "errorMessage"}
	for i, column := range wantPrefix {
		if header[i] != column {
			t.Fatalf("header[%d] = %q, want %q", i, header[i], column)
		}
	}

	completed := records[1]
	if completed[0] != "https://www.tiktok.com/@alice/video/1" || completed[1] != "completed" {
		t.Errorf("row 1 = %v", completed)
	}
	if completed[2] != "morning, run!" || completed[3] != "alice" {
		t.Errorf("metadata columns = %v", completed[2:4])
	}
	if completed[4] != "32.5" || completed[5] != "en" || completed[6] != "hello world" {
		t.Errorf("result columns = %v", completed[4:7])
	}
	if completed[7] != "" {
		t.Errorf("completed row has error message %q", completed[7])
	}

	failed := records[2]
	if failed[1] != "failed" || failed[7] != "download: fetch: ERROR: Private video" {
		t.Errorf("failed row = %v", failed)
	}
	for i := 2; i < 7; i++ {
		if failed[i] != "" {
			t.Errorf("failed row column %d = %q, want empty", i, failed[i])
		}
	}

	cancelled := records[3]
	if cancelled[1] != "cancelled" || cancelled[7] != "" {
		t.Errorf("cancelled row = %v", cancelled)
	}
}

func TestExportsAreDeterministic(t *testing.T) {
	jobs := sampleJobs()

	var firstCSV, secondCSV bytes.Buffer
	if err := export.WriteCSV(&firstCSV, jobs); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := export.WriteCSV(&secondCSV, jobs); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if !bytes.Equal(firstCSV.Bytes(), secondCSV.Bytes()) {
		t.Fatal("repeated csv exports differ")
	}

	var firstJSON, secondJSON bytes.Buffer
	if err := export.WriteJSON(&firstJSON, jobs); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if err := export.WriteJSON(&secondJSON, jobs); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if !bytes.Equal(firstJSON.Bytes(), secondJSON.Bytes()) {
		t.Fatal("repeated json exports differ")
	}

	first := export.SRTFiles(jobs)
	second := export.SRTFiles(jobs)
	if len(first) != len(second) {
		t.Fatal("repeated srt exports differ in file count")
	}
	for i := range first {
		if first[i].Name != second[i].Name || !bytes.Equal(first[i].Content, second[i].Content) {
			t.Fatalf("srt file %d differs between exports", i)
		}
	}
}

func TestWriteJSONRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	if err := export.WriteJSON(&buf, sampleJobs()); err != nil {
		t.Fatalf("write json: %v", err)
	}

	var decoded []struct {
		URL        string `json:"url"`
		Status     string `json:"status"`
		Transcript *struct {
			Language string          `json:"language"`
			FullText string          `json:"fullText"`
			Segments []queue.Segment `json:"segments"`
		} `json:"transcript"`
		Error *queue.ErrorRecord `json:"error"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("parse json export: %v", err)
	}
	if len(decoded) != 3 {
		t.Fatalf("got %d elements", len(decoded))
	}
	if decoded[0].Transcript == nil || len(decoded[0].Transcript.Segments) != 2 {
		t.Errorf("segments lost in json export")
	}
	if decoded[1].Error == nil || decoded[1].Error.Stage != queue.StageDownload {
		t.Errorf("error record lost in json export")
	}
	if decoded[2].Status != "cancelled" {
		t.Errorf("order not preserved: %v", decoded)
	}
}

func TestSRTFiles(t *testing.T) {
	files := export.SRTFiles(sampleJobs())
	if len(files) != 1 {
		t.Fatalf("got %d srt files, want 1", len(files))
	}
	if files[0].Name != "video_1_morning_run.srt" {
		t.Errorf("file name = %q", files[0].Name)
	}

	want := "1\n00:00:00,000 --> 00:00:01,500\nhello\n\n" +
		"2\n00:00:01,500 --> 00:00:03,000\nworld\n\n"
	if string(files[0].Content) != want {
		t.Errorf("srt content:\n%s\nwant:\n%s", files[0].Content, want)
	}
}

func TestFormatSRTTimestamp(t *testing.T) {
	cases := []struct {
		ms   int64
		want string
	}{
		{0, "00:00:00,000"},
		{1500, "00:00:01,500"},
		{61250, "00:01:01,250"},
		{3661001, "01:01:01,001"},
		{-5, "00:00:00,000"},
	}
	for _, tc := range cases {
		if got := export.FormatSRTTimestamp(tc.ms); got != tc.want {
			t.Errorf("FormatSRTTimestamp(%d) = %q, want %q", tc.ms, got, tc.want)
		}
	}
}

func TestSRTSkipsJobsWithoutTranscripts(t *testing.T) {
	jobs := []*queue.Job{
		{ID: 1, Position: 0, Status: queue.StatusFailed},
		{ID: 2, Position: 1, Status: queue.StatusCompleted, Transcript: &queue.Transcript{FullText: "x"}},
	}
	if files := export.SRTFiles(jobs); len(files) != 0 {
		t.Fatalf("expected no files for empty segment lists, got %d", len(files))
	}
}

func TestSanitizedTitleFallsBack(t *testing.T) {
	jobs := sampleJobs()[:1]
	jobs[0].Metadata.Title = "!!!???"
	files := export.SRTFiles(jobs)
	if len(files) != 1 || !strings.HasPrefix(files[0].Name, "video_1_untitled") {
		t.Fatalf("files = %+v", files)
	}
}

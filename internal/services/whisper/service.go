package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"clipscribe/internal/language"
	"clipscribe/internal/queue"
	"clipscribe/internal/services"
)

// Service transcribes audio with the whisper CLI.
type Service struct {
	binary string
	model  string

	commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewService builds a Service for the given binary and model size.
func NewService(binary, model string) *Service {
	if binary == "" {
		binary = "whisper"
	}
	if model == "" {
		model = "base"
	}
	return &Service{binary: binary, model: model}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	s.commandRunner = runner
}

// Model returns the configured model size for logging.
func (s *Service) Model() string {
	return s.model
}

// Transcribe runs the model over audioPath and returns the transcript.
// languageHint is an ISO 639-1 code or language.Auto; with Auto the model
// detects the language itself. Whisper's JSON output file is removed before
// returning.
func (s *Service) Transcribe(ctx context.Context, audioPath, languageHint string) (*queue.Transcript, error) {
	if audioPath == "" {
		return nil, services.Wrap(services.ErrConfiguration, "transcribe", "run", "audio path required", nil)
	}
	outputDir := filepath.Dir(audioPath)
	args := []string{
		audioPath,
		"--model", s.model,
		"--output_format", "json",
		"--output_dir", outputDir,
		"--fp16", "False",
		"--verbose", "False",
	}
	if languageHint != "" && languageHint != language.Auto {
		args = append(args, "--language", languageHint)
	}

	output, err := s.run(ctx, args...)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, services.Wrap(services.ErrTimeout, "transcribe", "run", "whisper exceeded time budget", err)
		}
		return nil, classify("run", string(output), err)
	}

	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonPath := filepath.Join(outputDir, base+".json")
	defer os.Remove(jsonPath)

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, services.Wrap(services.ErrRuntime, "transcribe", "read output", "", err)
	}
	transcript, err := ParseResult(data)
	if err != nil {
		return nil, services.Wrap(services.ErrRuntime, "transcribe", "parse output", "", err)
	}
	return transcript, nil
}

func (s *Service) run(ctx context.Context, args ...string) ([]byte, error) {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, s.binary, args...)
	}
	cmd := exec.CommandContext(ctx, s.binary, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

// resultPayload mirrors the whisper CLI JSON output.
type resultPayload struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// ParseResult decodes whisper's JSON output into a transcript. Segment
// boundaries arrive as fractional seconds and are stored as milliseconds.
func ParseResult(data []byte) (*queue.Transcript, error) {
	var payload resultPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisper json: %w", err)
	}
	transcript := &queue.Transcript{
		Language: payload.Language,
		FullText: strings.TrimSpace(payload.Text),
		Segments: make([]queue.Segment, 0, len(payload.Segments)),
	}
	for _, seg := range payload.Segments {
		transcript.Segments = append(transcript.Segments, queue.Segment{
			StartMS: secondsToMS(seg.Start),
			EndMS:   secondsToMS(seg.End),
			Text:    strings.TrimSpace(seg.Text),
		})
	}
	return transcript, nil
}

func secondsToMS(seconds float64) int64 {
	return int64(math.Round(seconds * 1000))
}

package ytdlp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"clipscribe/internal/media"
	"clipscribe/internal/queue"
	"clipscribe/internal/services"
)

// Service fetches videos with yt-dlp and hands back extracted audio.
type Service struct {
	binary       string
	ffmpegBinary string

	// commandRunner overrides process execution in tests. It receives the
	// binary and args and returns combined output.
	commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewService builds a Service around the given binaries.
func NewService(binary, ffmpegBinary string) *Service {
	if binary == "" {
		binary = "yt-dlp"
	}
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	return &Service{binary: binary, ffmpegBinary: ffmpegBinary}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	s.commandRunner = runner
}

// Fetch downloads the video behind url, extracts its audio into destAudio as
// mono 16kHz WAV, and returns the video metadata. Intermediate files (the
// video container and the info JSON) are removed before returning; destAudio
// is the only artifact left on success.
func (s *Service) Fetch(ctx context.Context, url, destAudio string) (*queue.Metadata, error) {
	workDir := filepath.Dir(destAudio)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "download", "workspace", "", err)
	}
	base := strings.TrimSuffix(filepath.Base(destAudio), filepath.Ext(destAudio))
	videoTemplate := filepath.Join(workDir, base+".source.%(ext)s")
	infoPath := filepath.Join(workDir, base+".source.info.json")

	args := []string{
		"--no-playlist",
		"--no-progress",
		"--no-warnings",
		"--write-info-json",
		"-o", videoTemplate,
		url,
	}
	output, err := s.run(ctx, args...)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, services.Wrap(services.ErrTimeout, "download", "fetch", "yt-dlp exceeded time budget", err)
		}
		return nil, classify("fetch", string(output), err)
	}

	videoPath, err := findDownloadedVideo(workDir, base+".source.")
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "download", "fetch", "downloaded file missing", err)
	}
	defer os.Remove(videoPath)
	defer os.Remove(infoPath)

	metadata, err := parseInfoJSON(infoPath)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "download", "metadata", "", err)
	}

	if err := media.ExtractAudio(ctx, s.ffmpegBinary, videoPath, destAudio); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, services.Wrap(services.ErrTimeout, "download", "extract audio", "", err)
		}
		return nil, services.Wrap(services.ErrCorruptMedia, "download", "extract audio", "", err)
	}
	return metadata, nil
}

func (s *Service) run(ctx context.Context, args ...string) ([]byte, error) {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, s.binary, args...)
	}
	cmd := exec.CommandContext(ctx, s.binary, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

func findDownloadedVideo(dir, prefix string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		if strings.HasSuffix(name, ".info.json") || strings.HasSuffix(name, ".part") {
			continue
		}
		return filepath.Join(dir, name), nil
	}
	return "", fmt.Errorf("no file matching %s* in %s", prefix, dir)
}

// infoPayload mirrors the subset of yt-dlp's info JSON the pipeline keeps.
type infoPayload struct {
	Title       string  `json:"title"`
	Uploader    string  `json:"uploader"`
	UploaderID  string  `json:"uploader_id"`
	UploadDate  string  `json:"upload_date"`
	Duration    float64 `json:"duration"`
	ViewCount   int64   `json:"view_count"`
	LikeCount   int64   `json:"like_count"`
	CommentCnt  int64   `json:"comment_count"`
	Description string  `json:"description"`
}

func parseInfoJSON(path string) (*queue.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read info json: %w", err)
	}
	return ParseInfo(data)
}

// ParseInfo decodes a yt-dlp info JSON document into job metadata.
func ParseInfo(data []byte) (*queue.Metadata, error) {
	var payload infoPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse info json: %w", err)
	}
	return &queue.Metadata{
		Title:           payload.Title,
		Uploader:        payload.Uploader,
		UploaderID:      payload.UploaderID,
		UploadDate:      payload.UploadDate,
		DurationSeconds: payload.Duration,
		ViewCount:       payload.ViewCount,
		LikeCount:       payload.LikeCount,
		CommentCount:    payload.CommentCnt,
		Description:     payload.Description,
	}, nil
}

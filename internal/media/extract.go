// Package media wraps ffmpeg for audio extraction.
package media

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// ExtractAudio converts a downloaded video into a mono 16kHz WAV file, the
// input format the whisper wrapper expects.
func ExtractAudio(ctx context.Context, ffmpegBinary, source, dest string) error {
	if source == "" || dest == "" {
		return fmt.Errorf("extract audio: source and dest required")
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
	cmd := exec.CommandContext(ctx, ffmpegBinary, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg extract: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

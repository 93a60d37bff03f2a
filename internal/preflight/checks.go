// Package preflight verifies the host before a run starts: external tools
// must resolve on PATH and the workspace needs headroom for downloaded
// media.
package preflight

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"

	"clipscribe/internal/config"
)

// minFreeBytes is the workspace headroom required to start a run. Short
// videos are small but yt-dlp keeps the container alongside the extracted
// WAV until cleanup.
const minFreeBytes = 500 * 1024 * 1024

// Result is one check outcome.
type Result struct {
	Name   string
	OK     bool
	Detail string
}

// Run executes every check and returns the results in a fixed order. A
// failed check does not stop the remaining checks.
func Run(ctx context.Context, cfg *config.Config) []Result {
	results := []Result{
		checkBinary(cfg.YtDlpBinary()),
		checkBinary(cfg.FFmpegBinary()),
		checkBinary(cfg.WhisperBinary()),
		checkDiskSpace(cfg.Paths.WorkDir),
	}
	return results
}

// Ok reports whether every result passed.
func Ok(results []Result) bool {
	for _, result := range results {
		if !result.OK {
			return false
		}
	}
	return true
}

func checkBinary(name string) Result {
	path, err := exec.LookPath(name)
	if err != nil {
		return Result{Name: name, OK: false, Detail: "not found on PATH"}
	}
	return Result{Name: name, OK: true, Detail: path}
}

func checkDiskSpace(dir string) Result {
	name := "workspace disk space"
	if dir == "" {
		return Result{Name: name, OK: false, Detail: "work directory not configured"}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{Name: name, OK: false, Detail: err.Error()}
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return Result{Name: name, OK: false, Detail: err.Error()}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < minFreeBytes {
		return Result{
			Name:   name,
			OK:     false,
			Detail: fmt.Sprintf("%d MB free, need at least %d MB", free/(1024*1024), minFreeBytes/(1024*1024)),
		}
	}
	return Result{Name: name, OK: true, Detail: fmt.Sprintf("%d MB free", free/(1024*1024))}
}

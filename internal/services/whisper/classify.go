package whisper

import (
	"strings"

	"clipscribe/internal/services"
)

// corruptKeywords indicate the audio itself cannot be decoded. Retrying the
// same file cannot help.
var corruptKeywords = []string{
	"failed to load audio",
	"invalid data found",
	"could not decode",
	"end of file",
	"header missing",
}

// runtimeKeywords indicate model or accelerator trouble that sometimes
// clears on a second attempt.
var runtimeKeywords = []string{
	"out of memory",
	"cuda error",
	"cudnn",
	"mps backend",
	"killed",
}

// classify maps whisper output onto the services error taxonomy. Unknown
// failures are treated as runtime errors so they get the single retry.
func classify(operation, output string, err error) error {
	lowered := strings.ToLower(output)
	for _, keyword := range corruptKeywords {
		if strings.Contains(lowered, keyword) {
			return services.Wrap(services.ErrCorruptMedia, "transcribe", operation, firstLine(output), err)
		}
	}
	for _, keyword := range runtimeKeywords {
		if strings.Contains(lowered, keyword) {
			return services.Wrap(services.ErrRuntime, "transcribe", operation, firstLine(output), err)
		}
	}
	return services.Wrap(services.ErrRuntime, "transcribe", operation, firstLine(output), err)
}

func firstLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// Package language normalizes the language hints passed to transcription.
//
// Hints arrive from config or CLI flags as anything from "en" to "english" to
// full BCP 47 tags; whisper wants a bare ISO 639-1 code or no hint at all.
package language

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Auto is the hint value requesting model-side language detection.
const Auto = "auto"

// Normalize converts a language hint to the bare code whisper accepts.
// Empty input and "auto" normalize to Auto; anything else must parse as a
// BCP 47 tag and is reduced to its base language code.
func Normalize(hint string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(hint))
	if trimmed == "" || trimmed == Auto {
		return Auto, nil
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("language hint %q: %w", hint, err)
	}
	base, conf := tag.Base()
	if conf == language.No {
		return "", fmt.Errorf("language hint %q: no base language", hint)
	}
	return base.String(), nil
}

// Display returns a human-readable name for a normalized code.
// Auto and unparseable codes render as-is.
func Display(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" || strings.EqualFold(trimmed, Auto) {
		return "Auto-detect"
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return trimmed
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return trimmed
}

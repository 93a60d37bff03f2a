package ytdlp

import (
	"strings"

	"clipscribe/internal/services"
)

// unavailableKeywords indicate the source itself is gone or locked. Retrying
// cannot help.
var unavailableKeywords = []string{
	"private video",
	"video unavailable",
	"video not available",
	"has been removed",
	"account has been banned",
	"couldn't find this account",
	"this post is unavailable",
	"blocked in your country",
	"geo restricted",
	"age-restricted",
}

// transientKeywords indicate network or service conditions that typically
// clear on retry.
var transientKeywords = []string{
	"timed out",
	"timeout",
	"connection reset",
	"connection refused",
	"network is unreachable",
	"temporary failure",
	"rate limit",
	"too many requests",
	"http error 429",
	"http error 5",
	"unable to download webpage",
}

// classify maps yt-dlp output onto the services error taxonomy. Unknown
// failures default to transient so a flaky extractor gets its retries.
func classify(operation, output string, err error) error {
	lowered := strings.ToLower(output)
	for _, keyword := range unavailableKeywords {
		if strings.Contains(lowered, keyword) {
			return services.Wrap(services.ErrUnavailable, "download", operation, firstLine(output), err)
		}
	}
	for _, keyword := range transientKeywords {
		if strings.Contains(lowered, keyword) {
			return services.Wrap(services.ErrTransient, "download", operation, firstLine(output), err)
		}
	}
	return services.Wrap(services.ErrTransient, "download", operation, firstLine(output), err)
}

// firstLine keeps error records readable: yt-dlp can emit pages of output,
// but the first ERROR line carries the reason.
func firstLine(output string) string {
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "ERROR") {
			return trimmed
		}
	}
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) > 0 {
		return strings.TrimSpace(lines[0])
	}
	return ""
}

// Package urls validates and canonicalizes TikTok video links before jobs
// are created. Canonicalization keeps duplicate detection honest: two inputs
// that differ only in scheme, host case, tracking parameters, or trailing
// slashes map to the same canonical form.
package urls

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	// ErrInvalid marks input that is not a recognized TikTok video link.
	ErrInvalid = errors.New("invalid url")
	// ErrDuplicate marks a URL already accepted earlier in the same batch.
	ErrDuplicate = errors.New("duplicate url")
)

var (
	videoPathRe = regexp.MustCompile(`^/@[^/]+/video/(\d+)/?$`)
	shortCodeRe = regexp.MustCompile(`^/([A-Za-z0-9]+)/?$`)
	extractRe   = regexp.MustCompile(`https?://(?:www\.)?(?:v[mt]\.)?tiktok\.com/[^\s,'"<>]+`)
)

// Normalize validates a single link and returns its canonical form.
// Accepted shapes:
//
//	https://www.tiktok.com/@user/video/<id>
//	https://vm.tiktok.com/<code>
//	https://vt.tiktok.com/<code>
func Normalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty input", ErrInvalid)
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalid, raw)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalid, parsed.Scheme)
	}

	host := strings.ToLower(parsed.Hostname())
	switch host {
	case "tiktok.com", "www.tiktok.com", "m.tiktok.com":
		match := videoPathRe.FindStringSubmatch(parsed.Path)
		if match == nil {
			return "", fmt.Errorf("%w: %q is not a video link", ErrInvalid, raw)
		}
		user := strings.SplitN(strings.TrimPrefix(parsed.Path, "/"), "/", 2)[0]
		return fmt.Sprintf("https://www.tiktok.com/%s/video/%s", user, match[1]), nil
	case "vm.tiktok.com", "vt.tiktok.com":
		match := shortCodeRe.FindStringSubmatch(parsed.Path)
		if match == nil {
			return "", fmt.Errorf("%w: %q is not a short link", ErrInvalid, raw)
		}
		return fmt.Sprintf("https://%s/%s", host, match[1]), nil
	default:
		return "", fmt.Errorf("%w: unsupported host %q", ErrInvalid, host)
	}
}

// Normalizer accumulates canonical URLs for one batch, rejecting duplicates.
type Normalizer struct {
	seen  map[string]struct{}
	order []string
}

// NewNormalizer returns an empty batch normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{seen: make(map[string]struct{})}
}

// Add canonicalizes one input and records it. Returns the canonical URL, or
// ErrInvalid/ErrDuplicate.
func (n *Normalizer) Add(raw string) (string, error) {
	canonical, err := Normalize(raw)
	if err != nil {
		return "", err
	}
	if _, dup := n.seen[canonical]; dup {
		return canonical, fmt.Errorf("%w: %s", ErrDuplicate, canonical)
	}
	n.seen[canonical] = struct{}{}
	n.order = append(n.order, canonical)
	return canonical, nil
}

// Accepted returns the canonical URLs in the order they were added.
func (n *Normalizer) Accepted() []string {
	cp := make([]string, len(n.order))
	copy(cp, n.order)
	return cp
}

// ExtractFromText pulls TikTok links out of free-form text, such as a pasted
// note or chat export. Matches are returned in order of appearance; callers
// still run them through a Normalizer.
func ExtractFromText(text string) []string {
	matches := extractRe.FindAllString(text, -1)
	for i, match := range matches {
		matches[i] = strings.TrimRight(match, "!.,;:)]}")
	}
	return matches
}

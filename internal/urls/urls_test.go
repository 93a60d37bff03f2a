package urls_test

import (
	"errors"
	"testing"

	"clipscribe/internal/urls"
)

func TestNormalizeCanonicalForms(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"full link", "https://www.tiktok.com/@alice/video/7301234567890123456", "https://www.tiktok.com/@alice/video/7301234567890123456"},
		{"bare host", "tiktok.com/@alice/video/7301234567890123456", "https://www.tiktok.com/@alice/video/7301234567890123456"},
		{"http scheme", "http://www.tiktok.com/@alice/video/7301234567890123456", "https://www.tiktok.com/@alice/video/7301234567890123456"},
		{"trailing slash", "https://www.tiktok.com/@alice/video/7301234567890123456/", "https://www.tiktok.com/@alice/video/7301234567890123456"},
		{"tracking params", "https://www.tiktok.com/@alice/video/7301234567890123456?is_from_webapp=1&sender_device=pc", "https://www.tiktok.com/@alice/video/7301234567890123456"},
		{"mobile host", "https://m.tiktok.com/@alice/video/7301234567890123456", "https://www.tiktok.com/@alice/video/7301234567890123456"},
		{"vm short", "https://vm.tiktok.com/ZMabc123/", "https://vm.tiktok.com/ZMabc123"},
		{"vt short", "https://vt.tiktok.com/ZSxy9Z/", "https://vt.tiktok.com/ZSxy9Z"},
		{"surrounding whitespace", "  https://vm.tiktok.com/ZMabc123  ", "https://vm.tiktok.com/ZMabc123"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := urls.Normalize(tc.in)
			if err != nil {
				t.Fatalf("Normalize(%q): %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"wrong host", "https://www.youtube.com/watch?v=abc"},
		{"profile link", "https://www.tiktok.com/@alice"},
		{"non numeric id", "https://www.tiktok.com/@alice/video/notanid"},
		{"short link with path", "https://vm.tiktok.com/abc/def"},
		{"ftp scheme", "ftp://vm.tiktok.com/ZMabc123"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := urls.Normalize(tc.in); !errors.Is(err, urls.ErrInvalid) {
				t.Fatalf("Normalize(%q) err = %v, want ErrInvalid", tc.in, err)
			}
		})
	}
}

func TestNormalizerRejectsDuplicates(t *testing.T) {
	n := urls.NewNormalizer()
	first, err := n.Add("https://www.tiktok.com/@alice/video/123")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := n.Add("tiktok.com/@alice/video/123?utm_source=x"); !errors.Is(err, urls.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if _, err := n.Add("https://www.tiktok.com/@alice/video/456"); err != nil {
		t.Fatalf("distinct url rejected: %v", err)
	}

	accepted := n.Accepted()
	if len(accepted) != 2 || accepted[0] != first {
		t.Fatalf("accepted = %v", accepted)
	}
}

func TestExtractFromText(t *testing.T) {
	text := "check these out: https://www.tiktok.com/@alice/video/123?x=1, " +
		"and https://vm.tiktok.com/ZMabc123/ (so good)\nhttps://vt.tiktok.com/ZSxy9Z"
	got := urls.ExtractFromText(text)
	if len(got) != 3 {
		t.Fatalf("extracted %d links, want 3: %v", len(got), got)
	}
	if got[1] != "https://vm.tiktok.com/ZMabc123/" {
		t.Fatalf("second link = %q", got[1])
	}
}

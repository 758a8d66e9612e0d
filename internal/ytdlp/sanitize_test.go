package ytdlp

import (
	"strings"
	"testing"
)

func TestSanitizeTitle(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"Plain Title", "Plain_Title"},
		{`A/B\C:D*E?F"G<H>I|J`, "ABCDEFGHIJ"},
		{"  spaced   out \t title ", "spaced_out_title"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := SanitizeTitle(tc.input); got != tc.want {
			t.Fatalf("SanitizeTitle(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestSanitizeTitleTruncates(t *testing.T) {
	long := strings.Repeat("a", 500)
	if got := SanitizeTitle(long); len(got) != 200 {
		t.Fatalf("expected 200-char stem, got %d chars", len(got))
	}
}

func TestFallbackTitle(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"https://example.com/my-great-video", "My Great Video"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://example.com/clip?utm=1", "clip"},
		{"nonsense", "nonsense"},
	}
	for _, tc := range cases {
		if got := FallbackTitle(tc.input); got != tc.want {
			t.Fatalf("FallbackTitle(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestIsSupportedURL(t *testing.T) {
	supported := []string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"http://youtube.com/watch?v=abc_123",
		"https://youtu.be/dQw4w9WgXcQ",
		"https://www.youtube.com/shorts/abc-def",
	}
	for _, url := range supported {
		if !IsSupportedURL(url) {
			t.Fatalf("expected %q to be supported", url)
		}
	}

	rejected := []string{
		"https://example.com/watch?v=abc",
		"ftp://youtube.com/watch?v=abc",
		"https://www.youtube.com/playlist?list=xyz",
		"",
	}
	for _, url := range rejected {
		if IsSupportedURL(url) {
			t.Fatalf("expected %q to be rejected", url)
		}
	}
}

package ytdlp

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const maxStemLength = 200

var (
	illegalChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	whitespace   = regexp.MustCompile(`\s+`)
	slugSeps     = regexp.MustCompile(`[-_]+`)

	titleCaser = cases.Title(language.English)
)

// SanitizeTitle converts a job title into a filesystem-safe stem: strips
// characters illegal in file names, collapses whitespace to underscores,
// and truncates so the resulting path cannot exceed OS limits.
func SanitizeTitle(title string) string {
	stem := illegalChars.ReplaceAllString(strings.TrimSpace(title), "")
	stem = whitespace.ReplaceAllString(stem, "_")
	if len(stem) > maxStemLength {
		stem = stem[:maxStemLength]
	}
	return stem
}

// FallbackTitle derives a human-readable title from a URL when metadata
// lookup supplied none. Hyphenated slugs become title-cased words; opaque
// video ids are returned unchanged.
func FallbackTitle(url string) string {
	trimmed := strings.TrimRight(url, "/")
	idx := strings.LastIndexByte(trimmed, '/')
	if idx < 0 || idx == len(trimmed)-1 {
		return url
	}
	slug := trimmed[idx+1:]
	if cut := strings.IndexByte(slug, '?'); cut >= 0 {
		slug = slug[:cut]
	}
	if slug == "" {
		return url
	}
	words := slugSeps.ReplaceAllString(slug, " ")
	if words == slug {
		return slug
	}
	return titleCaser.String(words)
}

package ytdlp

import (
	"errors"
	"regexp"
)

// ErrUnsupportedURL marks a source link the engine refuses to queue.
var ErrUnsupportedURL = errors.New("not a recognized video URL")

var urlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https?://(www\.)?youtube\.com/watch\?v=[\w-]+`),
	regexp.MustCompile(`^https?://youtu\.be/[\w-]+`),
	regexp.MustCompile(`^https?://(www\.)?youtube\.com/shorts/[\w-]+`),
}

// IsSupportedURL reports whether url points at a fetchable video page.
func IsSupportedURL(url string) bool {
	for _, pattern := range urlPatterns {
		if pattern.MatchString(url) {
			return true
		}
	}
	return false
}

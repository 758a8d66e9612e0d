package ytdlp

import (
	"regexp"
	"strconv"
)

// ProgressUpdate holds whichever fields a chunk of process output yielded.
// Each field matches independently; absent fields stay nil.
type ProgressUpdate struct {
	Progress   *float64
	Speed      *string
	ETA        *string
	Downloaded *string
}

// Empty reports whether the chunk yielded nothing recognizable.
func (u ProgressUpdate) Empty() bool {
	return u.Progress == nil && u.Speed == nil && u.ETA == nil && u.Downloaded == nil
}

var (
	progressPattern   = regexp.MustCompile(`(\d+\.?\d*)%`)
	speedPattern      = regexp.MustCompile(`([\d.]+\s*[KMG]iB/s|[\d.]+\s*[KMG]B/s)`)
	etaPattern        = regexp.MustCompile(`ETA\s+([\d:]+)`)
	downloadedPattern = regexp.MustCompile(`(?i)(\d+\.?\d*\s*(?:KiB|MiB|GiB|KB|MB|GB))(?:\s+of)?`)
)

// ParseProgress extracts progress fields from a chunk of yt-dlp output.
// Unrecognized chunks produce an empty update. The chunk need not be a
// complete line; partial patterns simply fail to match.
func ParseProgress(chunk string) ProgressUpdate {
	var update ProgressUpdate

	if m := progressPattern.FindStringSubmatch(chunk); m != nil {
		if value, err := strconv.ParseFloat(m[1], 64); err == nil {
			update.Progress = &value
		}
	}
	if m := speedPattern.FindStringSubmatch(chunk); m != nil {
		update.Speed = &m[1]
	}
	if m := etaPattern.FindStringSubmatch(chunk); m != nil {
		update.ETA = &m[1]
	}
	if m := downloadedPattern.FindStringSubmatch(chunk); m != nil {
		update.Downloaded = &m[1]
	}
	return update
}

package download

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound reports an operation against an unknown job id.
var ErrNotFound = errors.New("download not found")

// Status represents the lifecycle of a download job.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusDownloading Status = "downloading"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusCancelled   Status = "cancelled"
)

var allStatuses = []Status{
	StatusQueued,
	StatusDownloading,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status permits no further transitions.
// Terminal records only change through an explicit retry, which creates a
// fresh job instead of reviving the old one.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Download is one user-requested fetch job and its tracked state.
type Download struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Format    string    `json:"format"`
	AudioOnly bool      `json:"audioOnly"`
	Status    Status    `json:"status"`
	Progress  float64   `json:"progress"`
	Speed     string    `json:"speed"`
	ETA       string    `json:"eta"`
	Size      string    `json:"size"`
	Downloaded string   `json:"downloaded"`
	Timestamp time.Time `json:"timestamp"`
	FilePath  string    `json:"filePath,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Mutation carries a partial field update for a job. Nil fields are left
// untouched.
type Mutation struct {
	Status     *Status
	Progress   *float64
	Speed      *string
	ETA        *string
	Size       *string
	Downloaded *string
	FilePath   *string
	Error      *string
}

func ptr[T any](v T) *T { return &v }

// StatusMutation builds a mutation that only changes the status.
func StatusMutation(status Status) Mutation {
	return Mutation{Status: ptr(status)}
}

func (m Mutation) apply(d *Download) bool {
	changed := false
	if m.Status != nil && *m.Status != d.Status {
		d.Status = *m.Status
		changed = true
	}
	if m.Progress != nil && *m.Progress != d.Progress {
		d.Progress = clampProgress(*m.Progress)
		changed = true
	}
	if m.Speed != nil && *m.Speed != d.Speed {
		d.Speed = *m.Speed
		changed = true
	}
	if m.ETA != nil && *m.ETA != d.ETA {
		d.ETA = *m.ETA
		changed = true
	}
	if m.Size != nil && *m.Size != d.Size {
		d.Size = *m.Size
		changed = true
	}
	if m.Downloaded != nil && *m.Downloaded != d.Downloaded {
		d.Downloaded = *m.Downloaded
		changed = true
	}
	if m.FilePath != nil && *m.FilePath != d.FilePath {
		d.FilePath = *m.FilePath
		changed = true
	}
	if m.Error != nil && *m.Error != d.Error {
		d.Error = *m.Error
		changed = true
	}
	return changed
}

func clampProgress(value float64) float64 {
	switch {
	case value < 0:
		return 0
	case value > 100:
		return 100
	default:
		return value
	}
}

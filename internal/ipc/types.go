package ipc

import (
	"time"

	"snatch/internal/download"
	"snatch/internal/settings"
	"snatch/internal/ytdlp"
)

// Job is the wire representation of a download record.
type Job struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Format     string  `json:"format"`
	AudioOnly  bool    `json:"audioOnly"`
	Status     string  `json:"status"`
	Progress   float64 `json:"progress"`
	Speed      string  `json:"speed"`
	ETA        string  `json:"eta"`
	Size       string  `json:"size"`
	Downloaded string  `json:"downloaded"`
	Timestamp  string  `json:"timestamp"`
	FilePath   string  `json:"filePath,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// FromDownload converts a job record into its wire form.
func FromDownload(d download.Download) Job {
	return Job{
		ID:         d.ID,
		Title:      d.Title,
		URL:        d.URL,
		Format:     d.Format,
		AudioOnly:  d.AudioOnly,
		Status:     string(d.Status),
		Progress:   d.Progress,
		Speed:      d.Speed,
		ETA:        d.ETA,
		Size:       d.Size,
		Downloaded: d.Downloaded,
		Timestamp:  d.Timestamp.Format(time.RFC3339Nano),
		FilePath:   d.FilePath,
		Error:      d.Error,
	}
}

// InfoRequest resolves a source URL into selectable encodings.
type InfoRequest struct {
	URL string `json:"url"`
}

// InfoResponse carries the shaped metadata.
type InfoResponse struct {
	Info ytdlp.Info `json:"info"`
}

// AddRequest submits a new download.
type AddRequest struct {
	URL       string `json:"url"`
	FormatID  string `json:"format_id"`
	Title     string `json:"title"`
	AudioOnly bool   `json:"audio_only"`
}

// AddResponse reports the created job.
type AddResponse struct {
	Job Job `json:"job"`
}

// ListRequest filters the job listing by status.
type ListRequest struct {
	Statuses []string `json:"statuses"`
}

// ListResponse contains job entries, newest first.
type ListResponse struct {
	Jobs []Job `json:"jobs"`
}

// DescribeRequest fetches a single job by id.
type DescribeRequest struct {
	ID string `json:"id"`
}

// DescribeResponse contains a single job.
type DescribeResponse struct {
	Job Job `json:"job"`
}

// CancelRequest cancels a job.
type CancelRequest struct {
	ID string `json:"id"`
}

// CancelResponse reports whether the job was known.
type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// RetryRequest clones a finished job into a fresh queued one.
type RetryRequest struct {
	ID string `json:"id"`
}

// RetryResponse reports the new job.
type RetryResponse struct {
	Job Job `json:"job"`
}

// RemoveRequest deletes a job from history.
type RemoveRequest struct {
	ID string `json:"id"`
}

// RemoveResponse reports whether anything was deleted.
type RemoveResponse struct {
	Removed bool `json:"removed"`
}

// ClearCompletedRequest removes all completed downloads from history.
type ClearCompletedRequest struct{}

// ClearCompletedResponse reports the number of removed jobs.
type ClearCompletedResponse struct {
	Removed int `json:"removed"`
}

// GetSettingsRequest fetches the active runtime settings.
type GetSettingsRequest struct{}

// SettingsResponse carries runtime settings.
type SettingsResponse struct {
	Settings settings.Settings `json:"settings"`
}

// SaveSettingsRequest replaces the runtime settings.
type SaveSettingsRequest struct {
	Settings settings.Settings `json:"settings"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// DependencyStatus reports the availability of an external program.
type DependencyStatus struct {
	Name      string `json:"name"`
	Command   string `json:"command"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

// StatusResponse represents daemon runtime information.
type StatusResponse struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	Active       int                `json:"active"`
	Pending      int                `json:"pending"`
	Counts       map[string]int     `json:"counts"`
	Dependencies []DependencyStatus `json:"dependencies"`
	DBPath       string             `json:"db_path"`
	LockPath     string             `json:"lock_path"`
}

// EventsRequest polls for change events after the given cursor, waiting up
// to WaitMillis for one to arrive.
type EventsRequest struct {
	After      int64 `json:"after"`
	WaitMillis int   `json:"wait_millis"`
}

// Event is the wire form of a change notification.
type Event struct {
	Seq   int64  `json:"seq"`
	Type  string `json:"type"`
	JobID string `json:"job_id"`
	Job   *Job   `json:"job,omitempty"`
}

// EventsResponse returns events and the cursor to resume from.
type EventsResponse struct {
	Events []Event `json:"events"`
	Cursor int64   `json:"cursor"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

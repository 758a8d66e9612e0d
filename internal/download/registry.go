package download

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"snatch/internal/logging"
	"snatch/internal/store"
)

// Registry holds every known job and is the only component allowed to
// mutate them. All reads hand out copies; the backing map never escapes.
type Registry struct {
	store  *store.Store
	logger *slog.Logger
	hub    *Hub

	mu   sync.Mutex
	jobs map[string]*Download
}

// NewRegistry builds an empty registry backed by the given blob store.
func NewRegistry(blobs *store.Store, logger *slog.Logger, hub *Hub) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Registry{
		store:  blobs,
		logger: logging.WithComponent(logger, "registry"),
		hub:    hub,
		jobs:   make(map[string]*Download),
	}
}

// Load replaces in-memory state with the persisted job list. Records that
// fail coercion are skipped; a corrupt aggregate resets to empty rather
// than blocking startup.
func (r *Registry) Load(ctx context.Context) error {
	var raw []map[string]any
	found, err := r.store.Get(ctx, store.KeyDownloads, &raw)
	if err != nil {
		r.logger.Warn("persisted downloads unreadable, starting empty",
			logging.Error(err))
		r.mu.Lock()
		r.jobs = make(map[string]*Download)
		r.mu.Unlock()
		return nil
	}

	jobs := make(map[string]*Download, len(raw))
	dropped := 0
	if found {
		for _, record := range raw {
			d, ok := FromRaw(record)
			if !ok {
				dropped++
				continue
			}
			job := d
			jobs[job.ID] = &job
		}
	}

	r.mu.Lock()
	r.jobs = jobs
	r.mu.Unlock()

	if dropped > 0 {
		r.logger.Warn("skipped malformed download records",
			logging.Int("dropped", dropped))
	}
	r.logger.Info("download history loaded",
		logging.Int("jobs", len(jobs)))
	return nil
}

// Create registers a new queued job and persists the updated aggregate.
func (r *Registry) Create(ctx context.Context, title, url, format string, audioOnly bool) (Download, error) {
	job := Download{
		ID:         uuid.NewString(),
		Title:      strings.TrimSpace(title),
		URL:        strings.TrimSpace(url),
		Format:     format,
		AudioOnly:  audioOnly,
		Status:     StatusQueued,
		Speed:      "0 KB/s",
		ETA:        "Unknown",
		Size:       "Unknown",
		Downloaded: "0 MB",
		Timestamp:  time.Now().UTC(),
	}
	if job.Title == "" {
		job.Title = job.URL
	}

	r.mu.Lock()
	stored := job
	r.jobs[job.ID] = &stored
	err := r.persistLocked(ctx)
	r.mu.Unlock()
	if err != nil {
		return Download{}, err
	}

	r.publishUpdated(job)
	r.logger.Info("download queued",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldJobTitle, job.Title),
		logging.String(logging.FieldURL, job.URL))
	return job, nil
}

// Mutate applies a partial update to the identified job. Updates for
// unknown ids are dropped silently; a cancelled process often reports a
// final progress line after its record is already terminal.
func (r *Registry) Mutate(ctx context.Context, id string, mutation Mutation) (Download, bool) {
	r.mu.Lock()
	job, ok := r.jobs[id]
	if !ok {
		r.mu.Unlock()
		return Download{}, false
	}
	if !mutation.apply(job) {
		snapshot := *job
		r.mu.Unlock()
		return snapshot, true
	}
	snapshot := *job
	if err := r.persistLocked(ctx); err != nil {
		r.logger.Error("persist after mutation failed",
			logging.String(logging.FieldJobID, id),
			logging.Error(err))
	}
	r.mu.Unlock()

	r.publishUpdated(snapshot)
	return snapshot, true
}

// Transition moves the job from one status to another only if it still
// holds the expected current status, reporting whether the swap happened.
// Admission uses this so a job cancelled between being popped from the
// pending queue and actually starting stays cancelled.
func (r *Registry) Transition(ctx context.Context, id string, from, to Status) (Download, bool) {
	r.mu.Lock()
	job, ok := r.jobs[id]
	if !ok || job.Status != from {
		r.mu.Unlock()
		return Download{}, false
	}
	job.Status = to
	snapshot := *job
	if err := r.persistLocked(ctx); err != nil {
		r.logger.Error("persist after transition failed",
			logging.String(logging.FieldJobID, id),
			logging.Error(err))
	}
	r.mu.Unlock()

	r.publishUpdated(snapshot)
	return snapshot, true
}

// Get returns a copy of the identified job.
func (r *Registry) Get(id string) (Download, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return Download{}, false
	}
	return *job, true
}

// List returns copies of every job, newest first. Ties fall back to id so
// the order is stable.
func (r *Registry) List() []Download {
	r.mu.Lock()
	out := make([]Download, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, *job)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Delete removes the identified job from history.
func (r *Registry) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	if _, ok := r.jobs[id]; !ok {
		r.mu.Unlock()
		return false, nil
	}
	delete(r.jobs, id)
	err := r.persistLocked(ctx)
	r.mu.Unlock()
	if err != nil {
		return false, err
	}

	r.publishDeleted(id)
	return true, nil
}

// ClearCompleted removes every successfully finished job and reports how
// many were dropped. Failed and cancelled records stay so they can still
// be retried.
func (r *Registry) ClearCompleted(ctx context.Context) (int, error) {
	r.mu.Lock()
	removed := make([]string, 0)
	for id, job := range r.jobs {
		if job.Status == StatusCompleted {
			removed = append(removed, id)
		}
	}
	for _, id := range removed {
		delete(r.jobs, id)
	}
	var err error
	if len(removed) > 0 {
		err = r.persistLocked(ctx)
	}
	r.mu.Unlock()
	if err != nil {
		return 0, err
	}

	for _, id := range removed {
		r.publishDeleted(id)
	}
	return len(removed), nil
}

// ResetInterrupted marks jobs left in downloading by a previous process as
// failed. Queued jobs are left alone; the scheduler re-admits them.
func (r *Registry) ResetInterrupted(ctx context.Context) []Download {
	message := "Interrupted by shutdown"
	reset := make([]Download, 0)

	r.mu.Lock()
	for _, job := range r.jobs {
		if job.Status != StatusDownloading {
			continue
		}
		job.Status = StatusFailed
		job.Error = message
		job.Speed = ""
		job.ETA = ""
		reset = append(reset, *job)
	}
	var err error
	if len(reset) > 0 {
		err = r.persistLocked(ctx)
	}
	r.mu.Unlock()

	if err != nil {
		r.logger.Error("persist after interrupted reset failed", logging.Error(err))
	}
	for _, job := range reset {
		r.publishUpdated(job)
		r.logger.Warn("stale downloading job marked failed",
			logging.String(logging.FieldJobID, job.ID),
			logging.String(logging.FieldJobTitle, job.Title))
	}
	return reset
}

// Queued returns copies of queued jobs in submission order.
func (r *Registry) Queued() []Download {
	jobs := r.List()
	out := make([]Download, 0)
	for i := len(jobs) - 1; i >= 0; i-- {
		if jobs[i].Status == StatusQueued {
			out = append(out, jobs[i])
		}
	}
	return out
}

// CountByStatus tallies jobs per status.
func (r *Registry) CountByStatus() map[Status]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[Status]int, len(allStatuses))
	for _, job := range r.jobs {
		counts[job.Status]++
	}
	return counts
}

func (r *Registry) persistLocked(ctx context.Context) error {
	list := make([]Download, 0, len(r.jobs))
	for _, job := range r.jobs {
		list = append(list, *job)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].Timestamp.Equal(list[j].Timestamp) {
			return list[i].Timestamp.Before(list[j].Timestamp)
		}
		return list[i].ID < list[j].ID
	})
	return r.store.Set(ctx, store.KeyDownloads, list)
}

func (r *Registry) publishUpdated(job Download) {
	if r.hub == nil {
		return
	}
	cp := job
	r.hub.publish(EventUpdated, job.ID, &cp)
}

func (r *Registry) publishDeleted(id string) {
	if r.hub == nil {
		return
	}
	r.hub.publish(EventDeleted, id, nil)
}

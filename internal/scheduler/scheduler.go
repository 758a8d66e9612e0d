// Package scheduler admits queued jobs into execution under a bounded
// concurrency limit, preserving submission order among pending jobs.
package scheduler

import (
	"log/slog"
	"sync"

	"snatch/internal/logging"
)

// Starter launches execution for an admitted job id. A non-nil error means
// the job never started and its slot is released immediately; the starter
// is responsible for recording the failure on the job itself.
type Starter func(id string) error

// Scheduler tracks pending and active job ids. It never blocks: admission
// is a counter check, and slots free up when Done is called.
type Scheduler struct {
	limit  func() int
	logger *slog.Logger

	mu      sync.Mutex
	pending []string
	active  map[string]struct{}
	start   Starter
}

// New builds a scheduler. The limit func is consulted on every admission
// pass so settings changes apply without restart.
func New(limit func() int, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scheduler{
		limit:  limit,
		logger: logging.WithComponent(logger, "scheduler"),
		active: make(map[string]struct{}),
	}
}

// SetStarter wires the execution callback. Must be called before the first
// Enqueue; kept separate from New because the supervisor needs the
// scheduler to signal completion.
func (s *Scheduler) SetStarter(start Starter) {
	s.mu.Lock()
	s.start = start
	s.mu.Unlock()
}

// Enqueue appends a job id to the pending queue and runs an admission pass.
func (s *Scheduler) Enqueue(id string) {
	s.mu.Lock()
	s.pending = append(s.pending, id)
	depth := len(s.pending)
	s.mu.Unlock()

	s.logger.Debug("job enqueued",
		logging.String(logging.FieldJobID, id),
		logging.Int(logging.FieldQueueDepth, depth))
	s.Kick()
}

// Kick admits pending jobs while concurrency slots are free. Safe to call
// from any goroutine at any time.
func (s *Scheduler) Kick() {
	for {
		s.mu.Lock()
		if s.start == nil || len(s.pending) == 0 || len(s.active) >= s.effectiveLimit() {
			s.mu.Unlock()
			return
		}
		id := s.pending[0]
		s.pending = s.pending[1:]
		s.active[id] = struct{}{}
		start := s.start
		s.mu.Unlock()

		if err := start(id); err != nil {
			s.logger.Warn("job failed to start",
				logging.String(logging.FieldJobID, id),
				logging.Error(err))
			s.mu.Lock()
			delete(s.active, id)
			s.mu.Unlock()
		}
	}
}

func (s *Scheduler) effectiveLimit() int {
	limit := 1
	if s.limit != nil {
		limit = s.limit()
	}
	if limit < 1 {
		limit = 1
	}
	return limit
}

// Done releases the slot held by id and admits the next pending job.
func (s *Scheduler) Done(id string) {
	s.mu.Lock()
	delete(s.active, id)
	s.mu.Unlock()
	s.Kick()
}

// Remove drops id from the pending queue, reporting whether it was there.
// Used when a job is cancelled before admission.
func (s *Scheduler) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, pending := range s.pending {
		if pending == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Active reports the number of jobs currently holding slots.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Pending reports the number of jobs waiting for a slot.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// IsActive reports whether id currently holds a slot.
func (s *Scheduler) IsActive(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[id]
	return ok
}

package download

import (
	"context"
	"sync"
	"time"
)

// EventType distinguishes change notifications emitted by the Registry.
type EventType string

const (
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// Event is one change notification. Updated events carry a copy of the job;
// deleted events carry only the id.
type Event struct {
	Seq   int64     `json:"seq"`
	Type  EventType `json:"type"`
	JobID string    `json:"job_id"`
	Job   *Download `json:"job,omitempty"`
}

// Hub buffers change events for polling listeners. It keeps a bounded
// window of recent events; listeners that fall behind the window observe a
// gap and are expected to re-list.
type Hub struct {
	mu      sync.Mutex
	events  []Event
	nextSeq int64
	cap     int
	signal  chan struct{}
}

// NewHub builds a hub retaining at most capacity events.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Hub{
		nextSeq: 1,
		cap:     capacity,
		signal:  make(chan struct{}),
	}
}

func (h *Hub) publish(eventType EventType, jobID string, job *Download) {
	if h == nil {
		return
	}
	h.mu.Lock()
	event := Event{Seq: h.nextSeq, Type: eventType, JobID: jobID, Job: job}
	h.nextSeq++
	h.events = append(h.events, event)
	if len(h.events) > h.cap {
		h.events = h.events[len(h.events)-h.cap:]
	}
	closed := h.signal
	h.signal = make(chan struct{})
	h.mu.Unlock()

	close(closed)
}

// Since returns buffered events with a sequence greater than after, plus
// the cursor to resume from.
func (h *Hub) Since(after int64) ([]Event, int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	cursor := h.nextSeq - 1
	if len(h.events) == 0 || after >= cursor {
		return nil, cursor
	}
	idx := len(h.events)
	for i, event := range h.events {
		if event.Seq > after {
			idx = i
			break
		}
	}
	out := make([]Event, len(h.events)-idx)
	copy(out, h.events[idx:])
	return out, cursor
}

// Wait blocks until an event newer than after arrives, the wait duration
// elapses, or ctx is done. It then returns whatever Since would.
func (h *Hub) Wait(ctx context.Context, after int64, wait time.Duration) ([]Event, int64) {
	events, cursor := h.Since(after)
	if len(events) > 0 || wait <= 0 {
		return events, cursor
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		h.mu.Lock()
		signal := h.signal
		h.mu.Unlock()

		select {
		case <-ctx.Done():
			return h.Since(after)
		case <-timer.C:
			return h.Since(after)
		case <-signal:
			events, cursor = h.Since(after)
			if len(events) > 0 {
				return events, cursor
			}
		}
	}
}

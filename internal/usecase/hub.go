package usecase

import (
	"sync"

	"announce-helper/internal/domain"
)

// EventKind tells subscribers what changed.
type EventKind string

const (
	EventPhase    EventKind = "phase"
	EventLog      EventKind = "log"
	EventDevices  EventKind = "devices"
	EventSettings EventKind = "settings"
	EventSchedule EventKind = "schedule"
	EventLogReset EventKind = "log-reset"
)

// Event is a state-change notification. Subscribers are expected to re-read
// the snapshot they care about; the payload is only a hint.
type Event struct {
	Kind  EventKind
	Phase domain.SessionPhase
	Entry *domain.LogEntry
}

// Hub fans events out to subscribers. Sends never block: a subscriber whose
// buffer is full misses the event.
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Event
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Event)}
}

// Subscribe registers a new subscriber. The returned func unregisters it and
// closes the channel.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers ev to every subscriber. A nil hub is a no-op.
func (h *Hub) Publish(ev Event) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

package store

import (
	"sync"

	"github.com/craterdb/crater/internal/logger"
	"github.com/craterdb/crater/internal/metrics"
	"github.com/google/uuid"
)

// Event is a notification emitted by the store. An event is only ever
// delivered after the mutation it describes is visible to readers.
type Event interface {
	event()
}

// Written is emitted after each successful set, once the pair is durably
// appended and indexed.
type Written struct {
	Key   []byte
	Value []byte
}

// Compacted is emitted after a merge cycle swaps a compacted segment in
// place of the sealed segments it consumed.
type Compacted struct {
	Removed []uint64
	Created uint64
}

func (Written) event()   {}
func (Compacted) event() {}

// hub fans events out to subscribers. Publishing never blocks the engine:
// an event that does not fit a subscriber's buffer is dropped.
type hub struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]chan Event
	buf    int
	closed bool
}

func newHub(buf int) *hub {
	return &hub{
		subs: make(map[uuid.UUID]chan Event),
		buf:  buf,
	}
}

func (h *hub) subscribe() (uuid.UUID, <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := uuid.New()
	ch := make(chan Event, h.buf)
	if h.closed {
		close(ch)
		return id, ch
	}
	h.subs[id] = ch
	return id, ch
}

func (h *hub) unsubscribe(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

func (h *hub) publish(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}
	for id, ch := range h.subs {
		select {
		case ch <- e:
		default:
			metrics.DroppedEventsTotal.Inc()
			logger.Warn("dropping event for slow subscriber %s", id)
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

package events

import (
	"sync"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/core/ports"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/domain"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/logger"
)

const defaultBuffer = 64

// Hub fans fleet events out to live subscribers. Publish never blocks: a
// subscriber whose buffer is full misses the event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]chan domain.FleetEvent
	nextID uint64
	buffer int
	log    *logger.Logger
}

func NewHub(buffer int, log *logger.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{subs: make(map[uint64]chan domain.FleetEvent), buffer: buffer, log: log}
}

var _ ports.EventPublisher = (*Hub)(nil)

func (h *Hub) Publish(event domain.FleetEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.subs {
		select {
		case ch <- event:
		default:
			if h.log != nil {
				h.log.Warnw("event_hub_subscriber_lagging", "subscriber", id, "type", event.Type)
			}
		}
	}
}

// Subscribe registers a listener. The returned cancel func closes the channel
// and is safe to call more than once.
func (h *Hub) Subscribe() (<-chan domain.FleetEvent, func()) {
	ch := make(chan domain.FleetEvent, h.buffer)

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = ch
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if cur, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(cur)
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close drops every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

// ABOUTME: Per-device event hub fanning read-aloud events out to server-sent event subscribers
// ABOUTME: Publishing never blocks; a subscriber with a full buffer misses the event

package remote

import (
	"sync"
	"sync/atomic"
)

// DefaultBuffer is the per-subscriber event buffer
const DefaultBuffer = 32

// Subscription receives the events of one device until unsubscribed.
// C is closed by Unsubscribe.
type Subscription struct {
	DeviceID string
	C        <-chan interface{}

	ch chan interface{}
}

// Stats counts hub deliveries
type Stats struct {
	Subscribers int    `json:"subscribers"`
	Sent        uint64 `json:"sent"`
	Dropped     uint64 `json:"dropped"`
}

// Hub routes events to the subscribers of a device
type Hub struct {
	buffer int

	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// NewHub creates a hub; buffer < 1 uses DefaultBuffer
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = DefaultBuffer
	}
	return &Hub{
		buffer: buffer,
		subs:   make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe registers a new subscriber for deviceID
func (h *Hub) Subscribe(deviceID string) *Subscription {
	ch := make(chan interface{}, h.buffer)
	s := &Subscription{DeviceID: deviceID, C: ch, ch: ch}

	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[deviceID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[deviceID] = set
	}
	set[s] = struct{}{}
	return s
}

// Unsubscribe removes s and closes its channel. It returns the number of
// subscribers the device has left.
func (h *Hub) Unsubscribe(s *Subscription) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.subs[s.DeviceID]
	if _, ok := set[s]; !ok {
		return len(set)
	}
	delete(set, s)
	close(s.ch)
	if len(set) == 0 {
		delete(h.subs, s.DeviceID)
	}
	return len(set)
}

// Subscribers returns the number of subscribers of deviceID
func (h *Hub) Subscribers(deviceID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[deviceID])
}

// Publish offers ev to every subscriber of deviceID and returns how many
// accepted it
func (h *Hub) Publish(deviceID string, ev interface{}) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for s := range h.subs[deviceID] {
		select {
		case s.ch <- ev:
			delivered++
			h.sent.Add(1)
		default:
			h.dropped.Add(1)
		}
	}
	return delivered
}

// Stats returns delivery counters
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	n := 0
	for _, set := range h.subs {
		n += len(set)
	}
	h.mu.RUnlock()

	return Stats{Subscribers: n, Sent: h.sent.Load(), Dropped: h.dropped.Load()}
}

// Package observer lets host code watch a cache facade's population
// lifecycle without the facade knowing who is listening.
//
// A Hub is owned by the component that owns the cache. Subscribers get
// their own buffered channel; publishing never blocks the cache, so a
// subscriber that falls behind loses events rather than slowing reads.
package observer

import (
	"sync"
	"sync/atomic"
	"time"
)

// Kind identifies what happened to a key.
type Kind int

const (
	Hit Kind = iota + 1
	Miss
	BeforePopulate
	AfterPopulate
	PopulateFailed
	Set
	Removed
	Refreshed
)

var kindNames = map[Kind]string{
	Hit:            "hit",
	Miss:           "miss",
	BeforePopulate: "before-populate",
	AfterPopulate:  "after-populate",
	PopulateFailed: "populate-failed",
	Set:            "set",
	Removed:        "removed",
	Refreshed:      "refreshed",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Event is one lifecycle notification. Key is the resolved key.
type Event struct {
	Kind Kind
	Key  string
	Err  error
	At   time.Time
}

// Hub fans events out to subscribers. The zero value is not usable; a nil
// *Hub is, and drops everything.
type Hub struct {
	mu      sync.RWMutex
	subs    map[uint64]chan Event
	next    uint64
	closed  bool
	dropped atomic.Int64
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]chan Event)}
}

// Subscribe registers a subscriber with the given channel buffer. The
// returned func unregisters it and closes the channel; calling it more
// than once is safe.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
}

// Publish delivers ev to every subscriber that has buffer room.
func (h *Hub) Publish(ev Event) {
	if h == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			// subscriber is full; drop rather than stall the cache
			h.dropped.Add(1)
		}
	}
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (h *Hub) Dropped() int64 {
	if h == nil {
		return 0
	}
	return h.dropped.Load()
}

// Close unregisters and closes every subscriber. Later Subscribe calls get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
	h.closed = true
}

// Package feed merges events arriving from several relays into one bounded,
// deduplicated, newest first list, and hands snapshots of it to a consumer.
package feed

import (
	"slices"
	"sync"

	"longform.lol/event"
)

// DefaultCap is the number of events a merger keeps when no capacity is given.
const DefaultCap = 50

// Merger is a set of events keyed by ID, ordered by created_at descending then
// ID ascending, truncated to a capacity.
//
// Once the buffer is full its last element only ever moves towards the front,
// so an evicted or refused event can never sort into the buffer again. seen
// therefore only needs the IDs of buffered events, and every ID is still
// accepted at most once.
type Merger struct {
	mx    sync.Mutex
	cap   int
	seen  map[string]struct{}
	items []*event.T
}

// NewMerger creates a merger holding at most capacity events, DefaultCap if
// capacity is not positive.
func NewMerger(capacity int) *Merger {
	if capacity <= 0 {
		capacity = DefaultCap
	}
	return &Merger{
		cap:   capacity,
		seen:  make(map[string]struct{}),
		items: make([]*event.T, 0, capacity+1),
	}
}

// Add inserts ev unless its ID was seen before. It reports whether ev is in
// the buffer afterwards, which is false for duplicates and for events older
// than everything in a full buffer.
func (m *Merger) Add(ev *event.T) (kept bool) {
	if ev == nil || len(ev.ID) == 0 {
		return
	}
	m.mx.Lock()
	defer m.mx.Unlock()
	id := string(ev.ID)
	if _, ok := m.seen[id]; ok {
		return
	}
	i, _ := slices.BinarySearchFunc(m.items, ev, event.Compare)
	if i >= m.cap {
		return
	}
	m.seen[id] = struct{}{}
	m.items = slices.Insert(m.items, i, ev)
	if len(m.items) > m.cap {
		for _, old := range m.items[m.cap:] {
			delete(m.seen, string(old.ID))
		}
		clear(m.items[m.cap:])
		m.items = m.items[:m.cap]
	}
	return true
}

// Items returns a copy of the buffer in order.
func (m *Merger) Items() []*event.T {
	m.mx.Lock()
	defer m.mx.Unlock()
	return slices.Clone(m.items)
}

// Len is the number of events in the buffer.
func (m *Merger) Len() int {
	m.mx.Lock()
	defer m.mx.Unlock()
	return len(m.items)
}

// Cap is the maximum number of events kept.
func (m *Merger) Cap() int { return m.cap }

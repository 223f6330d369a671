package fleet

import (
	"sync"

	"github.com/kilianp07/wastefleet/core/model"
)

// Mailbox is the thread-safe stop queue of a vehicle agent. The message bus
// delivery context appends to it while the owning agent reads and drains it,
// so every access takes the lock.
type Mailbox struct {
	mu    sync.Mutex
	stops []model.Coord
}

// Push appends a stop in assignment order.
func (m *Mailbox) Push(c model.Coord) {
	m.mu.Lock()
	m.stops = append(m.stops, c)
	m.mu.Unlock()
}

// Snapshot returns a copy of the pending stops.
func (m *Mailbox) Snapshot() []model.Coord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Coord, len(m.stops))
	copy(out, m.stops)
	return out
}

// Len returns the number of pending stops.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stops)
}

// Drain removes the first n stops. Called by the owning agent once the route
// derived from a snapshot of that length has been fully consumed; stops
// pushed after the snapshot stay queued.
func (m *Mailbox) Drain(n int) {
	m.mu.Lock()
	if n >= len(m.stops) {
		m.stops = nil
	} else if n > 0 {
		m.stops = append([]model.Coord(nil), m.stops[n:]...)
	}
	m.mu.Unlock()
}

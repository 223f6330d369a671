package tracker

import (
	"sync"

	"github.com/kilianp07/wastefleet/core/logger"
	"github.com/kilianp07/wastefleet/core/model"
)

// Store holds the latest known position per vehicle. It is written from the
// message-delivery context and read by the assignment engine, so all access
// goes through a read-write lock.
type Store struct {
	mu        sync.RWMutex
	positions map[int]model.VehiclePosition
	log       logger.Logger
}

// New creates an empty position store.
func New(log logger.Logger) *Store {
	return &Store{positions: make(map[int]model.VehiclePosition), log: log}
}

// Update overwrites the stored position for the vehicle. Malformed reports
// are discarded with a warning and no state change. It returns true when the
// report was accepted.
func (s *Store) Update(p model.VehiclePosition) bool {
	if !p.Valid() {
		if s.log != nil {
			s.log.Warnf("discarding malformed position report for vehicle %d (%.6f,%.6f)",
				p.VehicleID, p.Latitude, p.Longitude)
		}
		return false
	}
	s.mu.Lock()
	s.positions[p.VehicleID] = p
	s.mu.Unlock()
	return true
}

// Lookup returns the last reported position for the vehicle. The second
// return value is false until the first valid report arrives. Lookup never
// blocks beyond the read lock.
func (s *Store) Lookup(vehicleID int) (model.VehiclePosition, bool) {
	s.mu.RLock()
	p, ok := s.positions[vehicleID]
	s.mu.RUnlock()
	return p, ok
}

// Known returns the number of vehicles with at least one valid report.
func (s *Store) Known() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.positions)
}
